package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mat-xc/blueprint-mode/internal/config"
	"github.com/mat-xc/blueprint-mode/internal/log"
)

type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type Options struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	BuildInfo BuildInfo
	// Context bounds long-running commands such as preview.
	Context context.Context
}

// globalFlags is shared by every subcommand through the root's
// persistent flags. cfg is populated before any subcommand runs.
type globalFlags struct {
	configPath string
	cfg        config.Config
}

func Run(args []string, opts Options) error {
	resolved := normalizeOptions(opts)
	root := newRootCmd(resolved)
	root.SetArgs(args)
	return root.ExecuteContext(resolved.Context)
}

func normalizeOptions(opts Options) Options {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return opts
}

func newRootCmd(opts Options) *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "blueprint-mode",
		Short:         "Indentation and highlighting for Blueprint UI files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetIn(opts.Stdin)
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default .blueprint-mode.yaml, then ~/.config/blueprint-mode/config.yaml)")
	cmd.AddCommand(
		newIndentCmd(opts, g),
		newHighlightCmd(opts, g),
		newPreviewCmd(opts, g),
		newConfigCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

// load reads the configuration and, when a log file is configured, starts
// logging to it. The CLI never logs to its own output streams.
func (g *globalFlags) load() error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	g.cfg = cfg
	if cfg.Log.Path != "" {
		if _, err := log.Init(cfg.Log.Path, log.ParseLevel(cfg.Log.Level)); err != nil {
			return err
		}
	}
	return nil
}

func readSource(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		src, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return src, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	return src, nil
}

// sourcePath returns the single optional path argument, "-" for stdin.
func sourcePath(args []string) string {
	if len(args) == 1 {
		if p := strings.TrimSpace(args[0]); p != "" {
			return p
		}
	}
	return "-"
}
