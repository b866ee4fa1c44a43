package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	alertcallouts "github.com/zmtcreative/gm-alert-callouts"

	"github.com/mat-xc/blueprint-mode/internal/indent"
	"github.com/mat-xc/blueprint-mode/internal/syntax"
)

const (
	bpLineAttribute = "data-bp-line"
	firstSourceLine = "1"
	// LineAnchorPrefix prefixes the id of every rendered source line.
	LineAnchorPrefix = "L"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "github"

// Renderer turns Blueprint source into highlighted HTML. It wraps the
// document in a markdown page and lets goldmark-highlighting run the
// registered Blueprint lexer over it.
type Renderer struct {
	md    goldmark.Markdown
	style string
}

//go:embed page.html
var pageTemplate string

func NewRenderer(style string) *Renderer {
	if styles.Get(style) == styles.Fallback {
		style = DefaultStyle
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			alertcallouts.AlertCallouts,
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithWrapperRenderer(renderHighlightedCodeWrapper),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
					chromahtml.WithLineNumbers(true),
					chromahtml.LinkableLineNumbers(true, LineAnchorPrefix),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Renderer{md: md, style: style}
}

// ConvertFragment renders source and returns the HTML fragment. The file
// name of sourcePath, when set, becomes the page heading.
func (r *Renderer) ConvertFragment(source []byte, sourcePath string) (string, error) {
	page := Markdown(source, sourcePath)
	doc := r.md.Parser().Parse(text.NewReader(page))
	decorateAST(doc)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, page, doc); err != nil {
		return "", fmt.Errorf("render %s: %w", displayName(sourcePath), err)
	}
	return buf.String(), nil
}

// RenderPage returns a complete HTML page with source rendered inside.
func (r *Renderer) RenderPage(source []byte, sourcePath string) (string, error) {
	fragment, err := r.ConvertFragment(source, sourcePath)
	if err != nil {
		return "", err
	}
	return r.fill(fragment), nil
}

// RenderShell returns an empty page shell for the initial WebSocket
// connection. Content is injected later via WebSocket messages.
func (r *Renderer) RenderShell() string {
	return r.fill("")
}

func (r *Renderer) fill(fragment string) string {
	var css bytes.Buffer
	_ = chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&css, styles.Get(r.style))
	page := strings.Replace(pageTemplate, "{{STYLE}}", css.String(), 1)
	return strings.Replace(page, "{{CONTENT}}", fragment, 1)
}

// Markdown builds the markdown page for source: a heading, a warning
// callout when the delimiters do not balance, and the source itself in a
// blueprint fenced block.
func Markdown(source []byte, sourcePath string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", displayName(sourcePath))

	if net := indent.NetDelimiters(indent.SplitLines(string(source))); net != 0 {
		b.WriteString("> [!WARNING]\n")
		if net > 0 {
			fmt.Fprintf(&b, "> %d opening delimiter(s) are not closed.\n\n", net)
		} else {
			fmt.Fprintf(&b, "> %d closing delimiter(s) have no opener.\n\n", -net)
		}
	}

	fence := strings.Repeat("`", max(3, longestRun(source, '`')+1))
	b.WriteString(fence)
	b.WriteString(syntax.Lexer.Config().Aliases[0])
	b.WriteByte('\n')
	b.Write(source)
	if len(source) > 0 && source[len(source)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
	return b.Bytes()
}

func displayName(sourcePath string) string {
	if sourcePath == "" {
		return "untitled.blp"
	}
	return filepath.Base(sourcePath)
}

func longestRun(source []byte, c byte) int {
	longest, run := 0, 0
	for _, b := range source {
		if b != c {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return longest
}

// decorateAST marks the source code block with the source line it starts
// at so the browser can map its line anchors back to editor lines.
func decorateAST(doc ast.Node) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindFencedCodeBlock {
			return ast.WalkContinue, nil
		}
		n.SetAttributeString(bpLineAttribute, firstSourceLine)
		return ast.WalkSkipChildren, nil
	})
}

// renderHighlightedCodeWrapper wraps highlighted code blocks in a div
// carrying the data-bp-line attribute set by decorateAST.
func renderHighlightedCodeWrapper(w util.BufWriter, context highlighting.CodeBlockContext, entering bool) {
	line, ok := highlightedCodeLine(context)
	if !ok {
		return
	}

	if entering {
		_, _ = w.WriteString(`<div class="bp-source" `)
		_, _ = w.WriteString(bpLineAttribute)
		_, _ = w.WriteString(`="`)
		_, _ = w.WriteString(line)
		_, _ = w.WriteString(`">`)
		return
	}

	_, _ = w.WriteString("</div>")
}

// highlightedCodeLine extracts the line attribute from a code block's
// rendering context.
func highlightedCodeLine(context highlighting.CodeBlockContext) (string, bool) {
	if context == nil {
		return "", false
	}

	attrs := context.Attributes()
	if attrs == nil {
		return "", false
	}

	v, ok := attrs.GetString(bpLineAttribute)
	if !ok {
		return "", false
	}

	switch typed := v.(type) {
	case string:
		return typed, typed != ""
	case []byte:
		if len(typed) == 0 {
			return "", false
		}
		return string(typed), true
	default:
		return "", false
	}
}
