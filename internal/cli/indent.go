package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/mat-xc/blueprint-mode/internal/indent"
)

type indentOptions struct {
	tabWidth int
	useTabs  bool
	write    bool
	diff     bool
	line     int
}

func newIndentCmd(opts Options, g *globalFlags) *cobra.Command {
	indentOpts := indentOptions{}
	cmd := &cobra.Command{
		Use:   "indent [file|-]",
		Short: "Reindent a Blueprint document",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.New("indent accepts at most one file path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg.IndentConfig()
			fs := cmd.Flags()
			if fs.Changed("tab-width") {
				if indentOpts.tabWidth <= 0 {
					return fmt.Errorf("--tab-width must be positive, got %d", indentOpts.tabWidth)
				}
				cfg.TabWidth = indentOpts.tabWidth
			}
			if fs.Changed("tabs") {
				cfg.UseTabs = indentOpts.useTabs
			}

			path := sourcePath(args)
			src, err := readSource(path, opts.Stdin)
			if err != nil {
				return err
			}

			if fs.Changed("line") {
				doc := indent.SplitLines(string(src))
				if indentOpts.line < 1 || indentOpts.line > doc.Len() {
					return fmt.Errorf("--line %d out of range 1..%d", indentOpts.line, doc.Len())
				}
				_, err := fmt.Fprintln(opts.Stdout, indent.ComputeIndent(doc, indentOpts.line, cfg))
				return err
			}

			formatted := indent.ReindentText(string(src), cfg)
			switch {
			case indentOpts.write:
				return writeIndentedOutput(path, src, formatted)
			case indentOpts.diff:
				return writeLineDiff(opts.Stdout, string(src), formatted)
			}
			_, err = io.WriteString(opts.Stdout, formatted)
			return err
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&indentOpts.tabWidth, "tab-width", indent.DefaultTabWidth, "columns per indentation level")
	fs.BoolVar(&indentOpts.useTabs, "tabs", false, "use tabs for indentation")
	fs.BoolVarP(&indentOpts.write, "write", "w", false, "write result back to file")
	fs.BoolVar(&indentOpts.diff, "diff", false, "print a line diff instead of the result")
	fs.IntVar(&indentOpts.line, "line", 0, "print the computed indentation of a single 1-based line")
	cmd.MarkFlagsMutuallyExclusive("write", "diff", "line")
	return cmd
}

func writeIndentedOutput(path string, src []byte, formatted string) error {
	if path == "-" {
		return errors.New("--write requires a file path")
	}
	if formatted == string(src) {
		return nil
	}
	mode := os.FileMode(0o644)
	if st, statErr := os.Stat(path); statErr == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(formatted), mode); err != nil {
		return fmt.Errorf("write file %q: %w", path, err)
	}
	return nil
}

// writeLineDiff prints a line-level diff of before and after, each line
// prefixed with "-", "+" or " ". Nothing is printed when they are equal.
func writeLineDiff(w io.Writer, before, after string) error {
	if before == after {
		return nil
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
