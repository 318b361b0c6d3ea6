package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

type renderOpts struct {
	output   string
	renderer string
	timeout  time.Duration
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{timeout: 30 * time.Second}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render Mermaid text to a preview (SVG, PNG or text)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd.Context())
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			cfg := a.cfg
			if opts.renderer != "" {
				cfg.Renderer = opts.renderer
			}
			r, err := buildRenderer(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			start := time.Now()
			p, err := r.Render(ctx, string(data))
			if err != nil {
				return err
			}
			a.logger.Info("rendered preview",
				"renderer", p.Renderer,
				"format", string(p.Format),
				"bytes", len(p.Data),
				"elapsed", time.Since(start).Round(time.Millisecond))
			return writeOutput(cmd, opts.output, p.Data)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.renderer, "renderer", "r", "", "renderer: auto, mmdc, graphviz, ascii (default: from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "render timeout")
	return cmd
}
