package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule saves dirty sessions every thirty seconds.
const DefaultSchedule = "@every 30s"

// Saver is the interface the autosaver uses to find and persist sessions
// with unsaved changes, keyed by document ID. Satisfied by session.Manager.
type Saver interface {
	Dirty() []string
	SaveSession(ctx context.Context, documentID string) error
}

// Autosaver saves dirty sessions on a cron schedule.
type Autosaver struct {
	saver    Saver
	parser   cron.Parser
	schedule cron.Schedule
	spec     string
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{} // session IDs currently saving (dedup)
}

// NewAutosaver creates an Autosaver. spec accepts standard five-field cron
// expressions, an optional leading seconds field and descriptors such as
// "@every 30s". An empty spec means DefaultSchedule.
func NewAutosaver(saver Saver, spec string, logger *slog.Logger) (*Autosaver, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Autosaver{
		saver:    saver,
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		spec:     spec,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
	schedule, err := a.parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse autosave schedule %q: %w", spec, err)
	}
	a.schedule = schedule
	return a, nil
}

// Start launches the background save loop.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return fmt.Errorf("autosaver already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	go a.loop(loopCtx)
	a.logger.Info("autosaver started", slog.String("schedule", a.spec))
	return nil
}

func (a *Autosaver) loop(ctx context.Context) {
	defer close(a.done)

	for {
		now := time.Now()
		timer := time.NewTimer(a.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			a.Flush(ctx)
		}
	}
}

// Flush saves every dirty session once and returns how many were saved.
// Sessions already being saved by another Flush are skipped.
func (a *Autosaver) Flush(ctx context.Context) int {
	saved := 0
	for _, id := range a.saver.Dirty() {
		if ctx.Err() != nil {
			break
		}
		if !a.tryAcquire(id) {
			continue
		}
		if err := a.saver.SaveSession(ctx, id); err != nil {
			a.logger.Error("autosave failed",
				slog.String("document_id", id),
				slog.String("error", err.Error()),
			)
		} else {
			saved++
		}
		a.release(id)
	}
	if saved > 0 {
		a.logger.Debug("autosaved sessions", slog.Int("count", saved))
	}
	return saved
}

// tryAcquire returns true and marks the session as in-flight if it is not already saving.
func (a *Autosaver) tryAcquire(id string) bool {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	if _, ok := a.inflight[id]; ok {
		return false
	}
	a.inflight[id] = struct{}{}
	return true
}

// release removes the session from the in-flight set.
func (a *Autosaver) release(id string) {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	delete(a.inflight, id)
}

// Next computes the next save time after from.
func (a *Autosaver) Next(from time.Time) time.Time {
	return a.schedule.Next(from)
}

// Stop gracefully shuts down the loop and flushes once more so no edits
// are lost on shutdown.
func (a *Autosaver) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return nil
	}

	a.cancel()
	<-a.done
	a.cancel = nil
	a.done = nil

	a.Flush(ctx)
	a.logger.Info("autosaver stopped")
	return nil
}
