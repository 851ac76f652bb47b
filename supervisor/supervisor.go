// Package supervisor owns the runtime lifecycle of one subagent process: a
// set of background updater.Task caches and the single session.Session that
// serves them over AgentX, grounded on the reference collector's App
// lifecycle (context cancellation, a shared WaitGroup, an ordered Stop) but
// generalized from "N pipeline stages over channels" to "N independent
// cache refreshers plus one protocol session", since this runtime has no
// inter-stage data flow to drain — each updater only ever writes to its own
// atomic snapshot, and the session only ever reads from the shared
// mib.Table built over those snapshots.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vpbank/ax-subagent/session"
)

// runnable is anything the supervisor starts as a goroutine and expects to
// return when ctx is cancelled. Both *updater.Task (via RunSupervised) and
// *session.Session (via Run) satisfy this after a thin adapter.
type runnable interface {
	run(ctx context.Context) error
}

type taskFunc func(ctx context.Context) error

func (f taskFunc) run(ctx context.Context) error { return f(ctx) }

// shutdownGrace bounds how long Stop waits for goroutines to exit on their
// own before giving up and returning anyway; the process is expected to
// exit shortly after Stop returns regardless.
const shutdownGrace = 10 * time.Second

// Supervisor starts and stops a session together with the updater tasks
// that keep its MIB table's caches fresh.
type Supervisor struct {
	logger *slog.Logger

	sess  *session.Session
	tasks []runnable

	cancel context.CancelFunc
	wg     sync.WaitGroup

	crashed chan error
}

// New builds a Supervisor. Updaters are registered via AddTask before
// calling Start; sess is the session to serve once the caches are running.
func New(sess *session.Session, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Supervisor{sess: sess, logger: logger, crashed: make(chan error, 1)}
}

// AddTask registers a background task (typically an *updater.Task's
// RunSupervised method) to run for the supervisor's lifetime. Call before
// Start.
func (s *Supervisor) AddTask(run func(ctx context.Context) error) {
	s.tasks = append(s.tasks, taskFunc(run))
}

// Start launches every registered task and the session, each in its own
// goroutine under a context derived from ctx. A task returning a non-nil
// error (an updater.ErrCrashed, in practice) is treated as abnormal and
// reported through Wait; the supervisor itself stops nothing, and the
// caller calls Stop in response.
func (s *Supervisor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sess.Run(runCtx); err != nil {
			s.reportCrash(err)
		}
	}()

	for _, t := range s.tasks {
		t := t
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := t.run(runCtx); err != nil {
				s.reportCrash(err)
			}
		}()
	}

	s.logger.Info("supervisor: started", "tasks", len(s.tasks))
}

func (s *Supervisor) reportCrash(err error) {
	select {
	case s.crashed <- err:
	default:
	}
}

// Wait blocks until a task reports an abnormal exit, or ctx is cancelled,
// whichever comes first. It does not itself stop anything — the caller is
// expected to call Stop afterward either way.
func (s *Supervisor) Wait(ctx context.Context) error {
	select {
	case err := <-s.crashed:
		return err
	case <-ctx.Done():
		return nil
	}
}

// Stop cancels every goroutine started by Start and waits up to
// shutdownGrace for them to exit.
func (s *Supervisor) Stop() {
	s.logger.Info("supervisor: shutting down")
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("supervisor: shutdown complete")
	case <-time.After(shutdownGrace):
		s.logger.Warn("supervisor: shutdown grace period elapsed, returning anyway")
	}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
