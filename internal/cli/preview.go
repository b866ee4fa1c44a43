package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mat-xc/blueprint-mode/internal/app"
	"github.com/mat-xc/blueprint-mode/internal/contracts"
	"github.com/mat-xc/blueprint-mode/internal/log"
	"github.com/mat-xc/blueprint-mode/internal/watcher"
)

type previewOptions struct {
	addr  string
	style string
	watch bool
}

func newPreviewCmd(opts Options, g *globalFlags) *cobra.Command {
	pvOpts := previewOptions{}
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Serve a live HTML preview of a Blueprint document",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("preview requires exactly one file path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, style := g.cfg.Preview.Addr, g.cfg.Preview.Style
			if cmd.Flags().Changed("addr") {
				addr = pvOpts.addr
			}
			if cmd.Flags().Changed("style") {
				style = pvOpts.style
			}
			return runPreview(cmd, opts, args[0], addr, style, pvOpts.watch)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&pvOpts.addr, "addr", "", "listen address (default from config)")
	fs.StringVar(&pvOpts.style, "style", "", "chroma style name (default from config)")
	fs.BoolVar(&pvOpts.watch, "watch", false, "republish when the file changes")
	return cmd
}

// runPreview serves path until the command's context is cancelled.
func runPreview(cmd *cobra.Command, opts Options, path, addr, style string, watch bool) error {
	lp := app.NewLivePreview(addr, style)
	defer func() { _ = lp.Stop() }()

	lp.SetGoToLineHandler(func(msg contracts.GoToLineMessage) {
		_, _ = fmt.Fprintf(opts.Stderr, "%s:%d\n", path, msg.Line)
	})

	publish := func() error {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read file %q: %w", path, err)
		}
		return lp.PublishSource(src, path)
	}
	if err := publish(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(opts.Stdout, "preview: %s\n", lp.URL()); err != nil {
		return err
	}

	var changes <-chan struct{}
	if watch {
		w, err := watcher.New(watcher.DefaultConfig(path))
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		if changes, err = w.Start(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := publish(); err != nil {
				log.ErrorErr(log.CatPreview, "republish failed", err, "path", path)
				_, _ = fmt.Fprintf(opts.Stderr, "preview: %v\n", err)
				continue
			}
			log.Debug(log.CatPreview, "republished", "path", path)
		}
	}
}
