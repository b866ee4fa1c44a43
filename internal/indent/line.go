package indent

import "strings"

// IsBlank reports whether line holds only whitespace.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// LeadingColumns returns the display width of line's leading whitespace.
// A tab advances to the next multiple of tabWidth.
func LeadingColumns(line string, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	col := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			col++
		case '\t':
			col += tabWidth - col%tabWidth
		default:
			return col
		}
	}
	return col
}

// StartsWithCloser reports whether the first non-whitespace character of
// line is a closing delimiter.
func StartsWithCloser(line string) bool {
	trimmed := strings.TrimLeft(line, " \t\r")
	return trimmed != "" && isCloser(trimmed[0])
}

// DelimiterBalance counts opening minus closing delimiters on line. A
// leading closer belongs to the enclosing level, so it is not counted.
//
// Delimiters inside strings and comments are counted too.
func DelimiterBalance(line string) int {
	balance := 0
	for i := 0; i < len(line); i++ {
		switch {
		case isOpener(line[i]):
			balance++
		case isCloser(line[i]):
			balance--
		}
	}
	if StartsWithCloser(line) {
		balance++
	}
	return balance
}

// SetLeadingWhitespace returns line with its indentation replaced by
// columns worth of whitespace. Negative columns are treated as 0.
func SetLeadingWhitespace(line string, columns int, cfg Config) string {
	return whitespace(columns, cfg) + strings.TrimLeft(line, " \t")
}

func whitespace(columns int, cfg Config) string {
	if columns <= 0 {
		return ""
	}
	if !cfg.UseTabs {
		return strings.Repeat(" ", columns)
	}
	w := cfg.tabWidth()
	return strings.Repeat("\t", columns/w) + strings.Repeat(" ", columns%w)
}

func isOpener(b byte) bool { return b == '{' || b == '[' }

func isCloser(b byte) bool { return b == '}' || b == ']' }

// NetDelimiters counts every opener minus every closer in doc. A non-zero
// result hints at unbalanced nesting; delimiters in strings and comments
// are counted like any other.
func NetDelimiters(doc Document) int {
	net := 0
	for n := 1; n <= doc.Len(); n++ {
		line := doc.Line(n)
		for i := 0; i < len(line); i++ {
			switch {
			case isOpener(line[i]):
				net++
			case isCloser(line[i]):
				net--
			}
		}
	}
	return net
}
