package host

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/mat-xc/blueprint-mode/internal/app"
	"github.com/mat-xc/blueprint-mode/internal/config"
	"github.com/mat-xc/blueprint-mode/internal/contracts"
	"github.com/mat-xc/blueprint-mode/internal/indent"
	"github.com/mat-xc/blueprint-mode/internal/log"
	"github.com/mat-xc/blueprint-mode/internal/syntax"
)

const (
	namespaceName = "blueprint-mode"
	filePattern   = "*.blp"

	// bufferSetup makes Neovim call back into BlueprintIndent for every
	// line it indents, and re-indent after typing a leading closer.
	bufferSetup = `setlocal filetype=blueprint indentexpr=BlueprintIndent(v:lnum) indentkeys=0},0],!^F,o,O commentstring=//\ %s`
)

// Commands is a state container for Neovim command handlers.
// It holds the indentation engine, the highlight classifier and the live
// preview, and tracks the buffer being previewed.
type Commands struct {
	mu sync.Mutex

	cfg        config.Config
	engine     *indent.Engine
	classifier *syntax.Classifier
	preview    *app.LivePreview

	active bool
	client Client

	ns        int
	nsCreated bool

	lastCursorLine int
	lastCursorCol  int
}

func NewCommands(cfg config.Config) *Commands {
	c := &Commands{
		cfg:        cfg,
		engine:     indent.NewEngine(cfg.IndentConfig()),
		classifier: syntax.NewClassifier(5 * time.Minute),
		preview:    app.NewLivePreview(cfg.Preview.Addr, cfg.Preview.Style),
	}
	c.preview.SetGoToLineHandler(c.handleGoToLine)
	return c
}

// Register loads the configuration and registers Neovim command,
// function and autocmd handlers.
func Register(p *plugin.Plugin) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	commands := NewCommands(cfg)

	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})

	p.HandleFunction(&plugin.FunctionOptions{Name: "BlueprintIndent"}, commands.BlueprintIndent)
	p.HandleCommand(&plugin.CommandOptions{Name: "BlueprintIndentLine"}, commands.BlueprintIndentLine)
	p.HandleCommand(&plugin.CommandOptions{Name: "BlueprintIndentBuffer"}, commands.BlueprintIndentBuffer)
	p.HandleCommand(&plugin.CommandOptions{Name: "BlueprintHighlight"}, commands.BlueprintHighlight)
	p.HandleFunction(&plugin.FunctionOptions{Name: "BlueprintInternalHighlight"}, commands.BlueprintHighlight)
	p.HandleCommand(&plugin.CommandOptions{Name: "BlueprintPreviewStart"}, commands.BlueprintPreviewStart)
	p.HandleCommand(&plugin.CommandOptions{Name: "BlueprintPreviewStop"}, commands.BlueprintPreviewStop)

	p.HandleFunction(&plugin.FunctionOptions{Name: "BlueprintInternalUpdate"}, commands.BlueprintUpdate)
	p.HandleFunction(&plugin.FunctionOptions{Name: "BlueprintInternalCursor"}, commands.BlueprintCursor)

	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "BufRead,BufNewFile",
		Group:   namespaceName,
		Pattern: filePattern,
	}, commands.BlueprintSetupBuffer)
	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "BufEnter,TextChanged,InsertLeave",
		Group:   namespaceName,
		Pattern: filePattern,
	}, commands.BlueprintUpdate)
	p.HandleAutocmd(&plugin.AutocmdOptions{
		Event:   "CursorMoved",
		Group:   namespaceName,
		Pattern: filePattern,
	}, commands.BlueprintCursor)

	log.Info(log.CatHost, "handlers registered", "tab_width", cfg.Indent.TabWidth)
	return nil
}

// initLogging sends plugin logs to the configured file. Without one,
// logging stays off: Neovim keeps a remote plugin's stderr in memory for
// the whole session.
func initLogging(cfg config.Config) error {
	if cfg.Log.Path == "" {
		log.SetEnabled(false)
		return nil
	}
	_, err := log.Init(cfg.Log.Path, log.ParseLevel(cfg.Log.Level))
	return err
}

// BlueprintIndent is the indentexpr hook: it returns the indentation of
// line args[0]. Negative results are reported as 0, since -1 means "keep
// the current indent" to Neovim.
func (c *Commands) BlueprintIndent(v *nvim.Nvim, args []int) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("BlueprintIndent: missing line number")
	}
	return c.indentAt(nvimClient{v}, args[0])
}

// BlueprintIndentLine re-indents the cursor line.
func (c *Commands) BlueprintIndentLine(v *nvim.Nvim) error {
	return c.indentCursorLine(nvimClient{v})
}

// BlueprintIndentBuffer re-indents the whole buffer.
func (c *Commands) BlueprintIndentBuffer(v *nvim.Nvim) error {
	return c.indentBuffer(nvimClient{v})
}

// BlueprintHighlight re-applies syntax highlights to the current buffer.
func (c *Commands) BlueprintHighlight(v *nvim.Nvim) error {
	return c.highlight(nvimClient{v})
}

// BlueprintSetupBuffer configures a freshly opened Blueprint buffer.
func (c *Commands) BlueprintSetupBuffer(v *nvim.Nvim) error {
	return c.setupBuffer(nvimClient{v})
}

func (c *Commands) BlueprintPreviewStart(v *nvim.Nvim) error {
	return c.previewStart(nvimClient{v})
}

func (c *Commands) BlueprintPreviewStop(v *nvim.Nvim) error {
	return c.previewStop()
}

// BlueprintUpdate re-highlights the buffer and republishes the preview.
func (c *Commands) BlueprintUpdate(v *nvim.Nvim) error {
	return c.update(nvimClient{v})
}

func (c *Commands) BlueprintCursor(v *nvim.Nvim) error {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if !active {
		return nil
	}
	return c.publishCursor(nvimClient{v})
}

func (c *Commands) indentAt(cl Client, lnum int) (int, error) {
	buf, err := cl.CurrentBuffer()
	if err != nil {
		return 0, err
	}
	doc, err := snapshot(cl, buf, lnum, c.engine.Config())
	if err != nil {
		return 0, err
	}
	columns := c.engine.ComputeIndent(doc, lnum)
	log.Debug(log.CatIndent, "indentexpr", "line", lnum, "indent", columns)
	return max(columns, 0), nil
}

// indentCursorLine is the line-edit-committed event: compute the cursor
// line's indentation and rewrite its leading whitespace.
func (c *Commands) indentCursorLine(cl Client) error {
	var lnum int
	if err := cl.Eval(`line(".")`, &lnum); err != nil {
		return err
	}
	buf, err := cl.CurrentBuffer()
	if err != nil {
		return err
	}
	ed, err := snapshot(cl, buf, lnum, c.engine.Config())
	if err != nil {
		return err
	}
	columns, err := c.engine.OnLineEditCommitted(ed, lnum)
	if err != nil {
		return fmt.Errorf("indent line %d: %w", lnum, err)
	}
	log.Debug(log.CatIndent, "line indented", "line", lnum, "indent", columns)
	return nil
}

func (c *Commands) indentBuffer(cl Client) error {
	buf, err := cl.CurrentBuffer()
	if err != nil {
		return err
	}
	ed, err := snapshot(cl, buf, -1, c.engine.Config())
	if err != nil {
		return err
	}

	changed := 0
	reindented := indent.Reindent(ed.lines, c.engine.Config())
	for i, line := range reindented {
		if line == ed.lines[i] {
			continue
		}
		if err := cl.SetBufferLines(buf, i, i+1, true, [][]byte{[]byte(line)}); err != nil {
			return fmt.Errorf("set line %d: %w", i+1, err)
		}
		changed++
	}
	log.Info(log.CatIndent, "buffer reindented", "lines", len(reindented), "changed", changed)
	return nil
}

func (c *Commands) setupBuffer(cl Client) error {
	if err := cl.Command(bufferSetup); err != nil {
		return err
	}
	return c.highlight(cl)
}

func (c *Commands) highlight(cl Client) error {
	buf, err := cl.CurrentBuffer()
	if err != nil {
		return err
	}
	lines, err := cl.BufferLines(buf, 0, -1, true)
	if err != nil {
		return err
	}
	spans, err := c.classifier.Classify(string(bytes.Join(lines, []byte("\n"))))
	if err != nil {
		return err
	}

	ns, err := c.namespace(cl)
	if err != nil {
		return err
	}
	if err := cl.ClearBufferNamespace(buf, ns, 0, -1); err != nil {
		return err
	}

	hls := make([]Highlight, 0, len(spans))
	for _, s := range spans {
		group := s.Category.HighlightGroup()
		if group == "" {
			continue
		}
		hls = append(hls, Highlight{Group: group, Line: s.Line, StartCol: s.Start, EndCol: s.Start + s.Length})
	}
	log.Debug(log.CatSyntax, "highlights applied", "count", len(hls))
	return cl.AddBufferHighlights(buf, ns, hls)
}

func (c *Commands) namespace(cl Client) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nsCreated {
		return c.ns, nil
	}
	ns, err := cl.CreateNamespace(namespaceName)
	if err != nil {
		return 0, fmt.Errorf("create namespace: %w", err)
	}
	c.ns, c.nsCreated = ns, true
	return ns, nil
}

func (c *Commands) update(cl Client) error {
	if err := c.highlight(cl); err != nil {
		return err
	}
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if !active {
		return nil
	}
	return c.publishBuffer(cl)
}

func (c *Commands) previewStart(cl Client) error {
	c.mu.Lock()
	c.active = true
	c.lastCursorLine = 0
	c.lastCursorCol = 0
	c.client = cl
	c.mu.Unlock()

	if err := c.publishBuffer(cl); err != nil {
		return err
	}
	if err := c.publishCursor(cl); err != nil {
		return err
	}
	return cl.Command(fmt.Sprintf(`echom "[blueprint-mode] preview: %s"`, c.preview.URL()))
}

func (c *Commands) previewStop() error {
	c.mu.Lock()
	c.active = false
	c.client = nil
	c.mu.Unlock()
	return c.preview.Stop()
}

func (c *Commands) publishBuffer(cl Client) error {
	buf, err := cl.CurrentBuffer()
	if err != nil {
		return err
	}
	lines, err := cl.BufferLines(buf, 0, -1, true)
	if err != nil {
		return err
	}
	path, err := cl.BufferName(buf)
	if err != nil {
		return err
	}

	source := bytes.Join(lines, []byte("\n"))
	if err := c.preview.PublishSource(source, path); err != nil {
		log.ErrorErr(log.CatPreview, "publish failed", err, "path", path)
		return err
	}
	return nil
}

func (c *Commands) publishCursor(cl Client) error {
	var line int
	if err := cl.Eval(`line(".")`, &line); err != nil {
		return err
	}
	var col int
	if err := cl.Eval(`col(".")`, &col); err != nil {
		return err
	}

	c.mu.Lock()
	if line == c.lastCursorLine && col == c.lastCursorCol {
		c.mu.Unlock()
		return nil
	}
	c.lastCursorLine = line
	c.lastCursorCol = col
	c.mu.Unlock()

	return c.preview.PublishCursor(line, col)
}

func (c *Commands) handleGoToLine(msg contracts.GoToLineMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.client == nil || msg.Line < 1 || msg.Line == c.lastCursorLine {
		return
	}

	cl := c.client
	win, err := cl.CurrentWindow()
	if err != nil {
		log.ErrorErr(log.CatHost, "go to line: current window", err)
		return
	}
	if err := cl.SetWindowCursor(win, [2]int{msg.Line, 0}); err != nil {
		log.ErrorErr(log.CatHost, "go to line: set cursor", err, "line", msg.Line)
		return
	}

	_ = cl.Command("normal! zz")
	c.lastCursorLine = msg.Line
	c.lastCursorCol = 0
}
