package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/internal/session"
	"github.com/rendis/mermaidsync/internal/streaming"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// fileDebounce coalesces the burst of events a single save produces.
const fileDebounce = 50 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-render a Mermaid file every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, appFrom(ctx), args[0], func(data []byte) error {
				return writeOutput(cmd, output, data)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "preview file rewritten on each render (default: stdout)")
	return cmd
}

// runWatch loads path into a session, reloads it whenever the file changes
// and hands every successful preview to emit. Render failures are logged and
// the previous preview is kept.
func runWatch(ctx context.Context, a *app, path string, emit func([]byte) error) error {
	r, err := buildRenderer(a.cfg)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	hub := streaming.NewMemoryHub()
	defer hub.Close()
	mgr := session.NewManager(session.Options{
		Renderer: r,
		Hub:      hub,
		Debounce: time.Duration(a.cfg.DebounceMS) * time.Millisecond,
		Logger:   a.logger,
	})
	defer mgr.Shutdown()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sess, err := mgr.Create(ctx, name, grammar.Detect(string(data)))
	if err != nil {
		return err
	}
	events, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{
		DocumentID: sess.DocumentID(),
		EventTypes: []string{schema.EventPreviewRendered, schema.EventPreviewFailed},
	})
	if err != nil {
		return err
	}
	defer cancel()

	reload := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			a.logger.Warn("read watched file failed", "file", path, "error", err)
			return
		}
		if _, err := sess.LoadSource(ctx, string(data)); err != nil {
			a.logger.Warn("load watched file failed", "file", path, "error", err)
		}
	}
	reload()

	fw, err := newFileWatcher(path, fileDebounce, a.logger, reload)
	if err != nil {
		return err
	}
	go fw.Run(ctx)
	a.logger.Info("watching", "file", path, "document_id", sess.DocumentID())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p, ok := ev.Payload.(*session.Preview)
			if !ok {
				continue
			}
			if ev.EventType == schema.EventPreviewFailed {
				a.logger.Warn("preview failed", "version", p.Version, "code", p.Code, "error", p.Error)
				continue
			}
			if err := emit(p.Data); err != nil {
				return err
			}
			a.logger.Info("preview updated", "version", p.Version, "renderer", p.Renderer, "diagram_type", string(p.DiagramType))
		}
	}
}
