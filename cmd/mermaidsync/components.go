package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/render"
	"github.com/rendis/mermaidsync/internal/store"
)

func buildRenderer(cfg Config) (render.Renderer, error) {
	return render.New(render.Options{
		Renderer:    cfg.Renderer,
		MmdcPath:    cfg.MmdcPath,
		ASCIIBinDir: cfg.ASCIIBinDir,
	})
}

// buildLayouter returns Graphviz with the grid as fallback, or the grid alone.
func buildLayouter(cfg Config, logger *slog.Logger) layout.Layouter {
	if cfg.Layout == "grid" {
		return layout.NewGridLayouter()
	}
	return layout.NewFallback(logger, layout.NewGraphvizLayouter(), layout.NewGridLayouter())
}

// openStore opens and migrates the libSQL database at cfg.DBPath.
func openStore(ctx context.Context, cfg Config, v store.Validator) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	var opts []store.Option
	if v != nil {
		opts = append(opts, store.WithValidator(v))
	}
	st, err := store.NewLibSQLStore("file:"+cfg.DBPath, opts...)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// swapRenderer forwards to a renderer that can be replaced while sessions
// hold a reference to it.
type swapRenderer struct {
	current atomic.Pointer[render.Renderer]
}

func newSwapRenderer(r render.Renderer) *swapRenderer {
	s := &swapRenderer{}
	s.Swap(r)
	return s
}

func (s *swapRenderer) Swap(r render.Renderer) { s.current.Store(&r) }

func (s *swapRenderer) Name() string { return (*s.current.Load()).Name() }

func (s *swapRenderer) Render(ctx context.Context, source string) (*render.Preview, error) {
	return (*s.current.Load()).Render(ctx, source)
}
