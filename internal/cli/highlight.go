package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/alecthomas/chroma/styles"
	"github.com/spf13/cobra"

	"github.com/mat-xc/blueprint-mode/internal/indent"
	"github.com/mat-xc/blueprint-mode/internal/syntax"
)

const (
	formatSpans       = "spans"
	formatHTML        = "html"
	formatTerminal256 = "terminal256"
	formatTerminal16m = "terminal16m"
)

type highlightOptions struct {
	format string
	style  string
}

func newHighlightCmd(opts Options, g *globalFlags) *cobra.Command {
	hlOpts := highlightOptions{}
	cmd := &cobra.Command{
		Use:   "highlight [file|-]",
		Short: "Print a Blueprint document with syntax highlighting",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.New("highlight accepts at most one file path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			style := g.cfg.Preview.Style
			if cmd.Flags().Changed("style") {
				style = hlOpts.style
			}
			if _, ok := styles.Registry[style]; !ok {
				return fmt.Errorf("unknown style %q", style)
			}

			src, err := readSource(sourcePath(args), opts.Stdin)
			if err != nil {
				return err
			}

			switch hlOpts.format {
			case formatSpans:
				return writeSpans(opts.Stdout, string(src))
			case formatHTML:
				f := chromahtml.New(
					chromahtml.Standalone(true),
					chromahtml.WithLineNumbers(true),
					chromahtml.TabWidth(g.cfg.Indent.TabWidth),
				)
				return format(opts.Stdout, f, styles.Get(style), string(src))
			case formatTerminal256, formatTerminal16m:
				return format(opts.Stdout, formatters.Get(hlOpts.format), styles.Get(style), string(src))
			default:
				return fmt.Errorf("unknown format %q (want %s)", hlOpts.format,
					strings.Join([]string{formatTerminal256, formatTerminal16m, formatHTML, formatSpans}, ", "))
			}
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&hlOpts.format, "format", formatTerminal256, "output format: terminal256, terminal16m, html or spans")
	fs.StringVar(&hlOpts.style, "style", "", "chroma style name (default from config)")
	return cmd
}

func format(w io.Writer, f chroma.Formatter, style *chroma.Style, src string) error {
	it, err := syntax.Tokenise(src)
	if err != nil {
		return err
	}
	return f.Format(w, style, it)
}

// writeSpans prints one classified span per row: 1-based line and column,
// byte length, category and the covered text.
func writeSpans(w io.Writer, src string) error {
	spans, err := syntax.Classify(src)
	if err != nil {
		return err
	}
	lines := indent.SplitLines(src)

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, s := range spans {
		text := lines.Line(s.Line + 1)
		start, end := min(s.Start, len(text)), min(s.Start+s.Length, len(text))
		_, _ = fmt.Fprintf(tw, "%d:%d\t%d\t%s\t%q\n", s.Line+1, s.Start+1, s.Length, s.Category, text[start:end])
	}
	return tw.Flush()
}
