// Package indent infers the indentation of a Blueprint line from the
// brace and bracket nesting of the lines above it.
//
// The computation is a line-local heuristic, not a parser: it looks at the
// nearest non-blank line above the target, adds one level per unclosed
// opener on it, and removes one level when the target starts with a closer.
// Well-formed documents come out right; unbalanced ones get a well-defined
// but possibly odd answer, which may be negative.
package indent

import "strings"

// DefaultTabWidth is the number of columns per nesting level.
const DefaultTabWidth = 2

// Config controls indentation.
type Config struct {
	TabWidth int
	UseTabs  bool
}

// DefaultConfig returns two-space indentation.
func DefaultConfig() Config {
	return Config{TabWidth: DefaultTabWidth}
}

func (c Config) tabWidth() int {
	if c.TabWidth <= 0 {
		return DefaultTabWidth
	}
	return c.TabWidth
}

// ComputeIndent returns the indentation, in columns, that line lineNumber
// of doc should have. The first line is never indented.
func ComputeIndent(doc Document, lineNumber int, cfg Config) int {
	if lineNumber <= 1 {
		return 0
	}
	width := cfg.tabWidth()

	indent := referenceIndent(doc, lineNumber-1, width)
	if StartsWithCloser(doc.Line(lineNumber)) {
		indent -= width
	}
	return indent
}

// referenceIndent walks up from line n to the first non-blank line and
// returns its indentation adjusted by its delimiter balance.
func referenceIndent(doc Document, n, width int) int {
	if n > doc.Len() {
		n = doc.Len()
	}
	for ; n >= 1; n-- {
		line := doc.Line(n)
		if IsBlank(line) {
			continue
		}
		return LeadingColumns(line, width) + width*DelimiterBalance(line)
	}
	return 0
}

// Reindent recomputes the indentation of every line top-down, each line
// seeing the already reindented lines above it. Blank lines are emptied.
func Reindent(doc Lines, cfg Config) Lines {
	buf := NewBuffer(doc, cfg)
	for n := 1; n <= buf.Len(); n++ {
		if IsBlank(buf.Line(n)) {
			buf.Lines[n-1] = ""
			continue
		}
		_ = buf.SetLeadingWhitespace(n, ComputeIndent(buf, n, cfg))
	}
	return buf.Lines
}

// ReindentText reindents text, preserving whether it ends in a newline.
func ReindentText(text string, cfg Config) string {
	if text == "" {
		return ""
	}
	out := strings.Join(Reindent(SplitLines(text), cfg), "\n")
	if strings.HasSuffix(text, "\n") {
		return out + "\n"
	}
	return out
}

// Engine binds a Config to the host-facing indentation operations.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine using cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// ComputeIndent is ComputeIndent with the engine's configuration.
func (e *Engine) ComputeIndent(doc Document, lineNumber int) int {
	return ComputeIndent(doc, lineNumber, e.cfg)
}

// OnLineEditCommitted computes the indentation of lineNumber and asks the
// editor to apply it. It returns the applied column count, clamped at 0.
// Lines that already carry the right whitespace are left untouched.
func (e *Engine) OnLineEditCommitted(ed Editor, lineNumber int) (int, error) {
	columns := max(e.ComputeIndent(ed, lineNumber), 0)

	line := ed.Line(lineNumber)
	if SetLeadingWhitespace(line, columns, e.cfg) == line {
		return columns, nil
	}
	if err := ed.SetLeadingWhitespace(lineNumber, columns); err != nil {
		return 0, err
	}
	return columns, nil
}
