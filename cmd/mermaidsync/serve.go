package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/logging"
	"github.com/rendis/mermaidsync/internal/panel"
	"github.com/rendis/mermaidsync/internal/scheduler"
	"github.com/rendis/mermaidsync/internal/session"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/internal/streaming"
	"github.com/rendis/mermaidsync/internal/validation"
	"github.com/rendis/mermaidsync/pkg/mcp"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor panel and the MCP tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd.Context())
			if listenAddr != "" {
				a.cfg.ListenAddr = listenAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen-addr", "", "TCP listen address (default: from config)")
	return cmd
}

// services is everything a server process wires together.
type services struct {
	app       *app
	validator *validation.DocumentValidator
	renderer  *swapRenderer
	layouter  layout.Layouter
	store     store.Store
	hub       *streaming.MemoryHub
	sessions  *session.Manager
	mcp       *mcp.Server
	closers   []func()
}

func newServices(ctx context.Context, a *app) (*services, error) {
	dv, err := validation.NewDocumentValidator()
	if err != nil {
		return nil, err
	}
	st, err := openStore(ctx, a.cfg, dv)
	if err != nil {
		return nil, err
	}
	r, err := buildRenderer(a.cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	svc := &services{
		app:       a,
		validator: dv,
		renderer:  newSwapRenderer(r),
		layouter:  buildLayouter(a.cfg, a.logger),
		store:     st,
		hub:       streaming.NewMemoryHub(),
	}
	svc.sessions = session.NewManager(session.Options{
		Renderer: svc.renderer,
		Layouter: svc.layouter,
		Hub:      svc.hub,
		Store:    st,
		Debounce: time.Duration(a.cfg.DebounceMS) * time.Millisecond,
		Logger:   a.logger,
	})
	svc.mcp = mcp.NewServer(mcp.ServerDeps{
		Sessions:  svc.sessions,
		Store:     st,
		Renderer:  svc.renderer,
		Layouter:  svc.layouter,
		Validator: dv,
		Logger:    a.logger,
		Version:   version,
	})
	svc.closers = []func(){
		svc.sessions.Shutdown,
		svc.hub.Close,
		func() { _ = st.Close() },
	}

	notifier := mcp.NewDocumentNotifier(svc.mcp)
	go func() {
		if err := notifier.Forward(ctx, svc.hub); err != nil {
			a.logger.Warn("mcp notifications stopped", "error", err)
		}
	}()
	return svc, nil
}

func (s *services) Close() {
	for _, c := range s.closers {
		c()
	}
}

func (s *services) panel() *panel.PanelServer {
	return panel.NewPanelServer(panel.PanelDeps{
		Sessions:  s.sessions,
		Store:     s.store,
		Hub:       s.hub,
		Renderer:  s.renderer,
		Layouter:  s.layouter,
		Validator: s.validator,
		Logger:    s.app.logger.With("component", "panel"),
	})
}

func runServe(ctx context.Context, a *app) error {
	svc, err := newServices(ctx, a)
	if err != nil {
		return err
	}
	defer svc.Close()

	autosaver, err := scheduler.NewAutosaver(svc.sessions, a.cfg.AutosaveCron, a.logger)
	if err != nil {
		return err
	}
	if err := autosaver.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := autosaver.Stop(stopCtx); err != nil {
			a.logger.Warn("final autosave incomplete", "error", err)
		}
	}()

	mcpHTTP := server.NewStreamableHTTPServer(svc.mcp.MCPServer())
	swapper := newHandlerSwapper(buildMux(a.cfg, svc.panel(), mcpHTTP))

	if w, err := watchConfig(a, svc, swapper, mcpHTTP); err != nil {
		a.logger.Debug("config hot reload disabled", "error", err)
	} else {
		go w.Run(ctx)
	}

	httpSrv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           swapper,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("mermaidsync serving", "addr", a.cfg.ListenAddr, "panel", a.cfg.Panel, "db_path", a.cfg.DBPath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", a.cfg.ListenAddr, err)
		}
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildMux mounts the MCP endpoint, a health check and, when enabled, the panel.
func buildMux(cfg Config, p *panel.PanelServer, mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if cfg.Panel {
		mux.Handle("/", p.Handler())
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "panel disabled", http.StatusNotFound)
		})
	}
	return mux
}

// watchConfig reloads the config file on change. The log level, the
// renderer and the panel toggle apply immediately; other fields are logged
// as needing a restart.
func watchConfig(a *app, svc *services, swapper *handlerSwapper, mcpHandler http.Handler) (*fileWatcher, error) {
	if _, err := os.Stat(a.configPath); err != nil {
		return nil, err
	}
	var mu sync.Mutex
	current := a.cfg
	return newFileWatcher(a.configPath, 500*time.Millisecond, a.logger, func() {
		mu.Lock()
		defer mu.Unlock()

		next, err := loadConfig(a.configPath)
		if err != nil {
			a.logger.Error("config reload failed", "error", err)
			return
		}
		// Flags given on the command line win over the file.
		next.ListenAddr = current.ListenAddr

		d := diffConfigs(current, next)
		if d.LogLevelChanged {
			if lvl, err := logging.ParseLevel(next.LogLevel); err == nil {
				a.level.Set(lvl)
				a.logger.Info("log level changed", "level", lvl.String())
			}
		}
		if d.RendererChanged {
			r, err := buildRenderer(next)
			if err != nil {
				a.logger.Error("renderer reload failed", "error", err)
				next.Renderer, next.MmdcPath, next.ASCIIBinDir = current.Renderer, current.MmdcPath, current.ASCIIBinDir
			} else {
				svc.renderer.Swap(r)
				a.logger.Info("renderer changed", "renderer", r.Name())
			}
		}
		if d.PanelChanged {
			swapper.Swap(buildMux(next, svc.panel(), mcpHandler))
			a.logger.Info("panel toggled", "panel", next.Panel)
		}
		if len(d.RestartNeeded) > 0 {
			a.logger.Warn("config changes need a restart", slog.Any("fields", d.RestartNeeded))
		}
		current = next
	})
}
