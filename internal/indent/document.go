package indent

import "strings"

// Document is read access to the lines of a buffer. Line numbers are 1-based.
type Document interface {
	Len() int
	Line(n int) string
}

// Editor is a Document whose host can rewrite a line's indentation.
type Editor interface {
	Document
	SetLeadingWhitespace(n, columns int) error
}

// Lines is an in-memory Document.
type Lines []string

// SplitLines splits text on newlines. A trailing newline does not produce
// an extra empty line.
func SplitLines(text string) Lines {
	if text == "" {
		return Lines{}
	}
	text = strings.TrimSuffix(text, "\n")
	return Lines(strings.Split(text, "\n"))
}

func (l Lines) Len() int { return len(l) }

// Line returns line n, or "" when n is out of range.
func (l Lines) Line(n int) string {
	if n < 1 || n > len(l) {
		return ""
	}
	return l[n-1]
}

// Buffer is an Editor over Lines that writes indentation according to cfg.
type Buffer struct {
	Lines  Lines
	Config Config
}

// NewBuffer returns a Buffer over a copy of lines.
func NewBuffer(lines Lines, cfg Config) *Buffer {
	return &Buffer{Lines: append(Lines(nil), lines...), Config: cfg}
}

func (b *Buffer) Len() int { return b.Lines.Len() }

func (b *Buffer) Line(n int) string { return b.Lines.Line(n) }

// SetLeadingWhitespace replaces the leading whitespace of line n. Out of
// range lines are ignored.
func (b *Buffer) SetLeadingWhitespace(n, columns int) error {
	if n < 1 || n > len(b.Lines) {
		return nil
	}
	b.Lines[n-1] = SetLeadingWhitespace(b.Lines[n-1], columns, b.Config)
	return nil
}

// String joins the buffer back into text with a trailing newline.
func (b *Buffer) String() string {
	if len(b.Lines) == 0 {
		return ""
	}
	return strings.Join(b.Lines, "\n") + "\n"
}
