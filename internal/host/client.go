package host

import (
	"fmt"

	"github.com/neovim/go-client/nvim"

	"github.com/mat-xc/blueprint-mode/internal/indent"
)

// Client is the part of the Neovim API the handlers use.
type Client interface {
	CurrentBuffer() (nvim.Buffer, error)
	BufferLines(buffer nvim.Buffer, start, end int, strict bool) ([][]byte, error)
	SetBufferLines(buffer nvim.Buffer, start, end int, strict bool, replacement [][]byte) error
	BufferName(buffer nvim.Buffer) (string, error)
	Eval(expr string, result interface{}) error
	Command(cmd string) error
	CurrentWindow() (nvim.Window, error)
	SetWindowCursor(window nvim.Window, pos [2]int) error
	CreateNamespace(name string) (int, error)
	ClearBufferNamespace(buffer nvim.Buffer, nsID int, lineStart, lineEnd int) error
	AddBufferHighlights(buffer nvim.Buffer, nsID int, hls []Highlight) error
}

// Highlight is one highlight group applied to a byte range of a 0-based line.
type Highlight struct {
	Group    string
	Line     int
	StartCol int
	EndCol   int
}

// nvimClient adapts *nvim.Nvim to Client, sending highlights in one batch.
type nvimClient struct {
	*nvim.Nvim
}

func (c nvimClient) AddBufferHighlights(buffer nvim.Buffer, nsID int, hls []Highlight) error {
	if len(hls) == 0 {
		return nil
	}
	b := c.NewBatch()
	ids := make([]int, len(hls))
	for i, hl := range hls {
		b.AddBufferHighlight(buffer, nsID, hl.Group, hl.Line, hl.StartCol, hl.EndCol, &ids[i])
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("add highlights: %w", err)
	}
	return nil
}

// bufferEditor is an indent.Editor over a snapshot of a buffer's first
// lines. Indentation changes are written through to Neovim.
type bufferEditor struct {
	client Client
	buf    nvim.Buffer
	lines  indent.Lines
	cfg    indent.Config
}

// snapshot reads lines 1..upTo of buf. upTo < 0 reads the whole buffer.
func snapshot(cl Client, buf nvim.Buffer, upTo int, cfg indent.Config) (*bufferEditor, error) {
	raw, err := cl.BufferLines(buf, 0, upTo, false)
	if err != nil {
		return nil, fmt.Errorf("read buffer lines: %w", err)
	}
	lines := make(indent.Lines, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}
	return &bufferEditor{client: cl, buf: buf, lines: lines, cfg: cfg}, nil
}

func (e *bufferEditor) Len() int { return e.lines.Len() }

func (e *bufferEditor) Line(n int) string { return e.lines.Line(n) }

func (e *bufferEditor) SetLeadingWhitespace(n, columns int) error {
	if n < 1 || n > len(e.lines) {
		return nil
	}
	text := indent.SetLeadingWhitespace(e.lines[n-1], columns, e.cfg)
	if err := e.client.SetBufferLines(e.buf, n-1, n, true, [][]byte{[]byte(text)}); err != nil {
		return fmt.Errorf("set line %d: %w", n, err)
	}
	e.lines[n-1] = text
	return nil
}
