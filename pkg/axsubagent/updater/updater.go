// Package updater runs the periodic background tasks that keep MIB value
// caches fresh without blocking request handling, grounded on the reference
// collector's scheduler package: a per-task loop that sleeps a jittered
// interval between cycles, generalized from one
// "poll every device on its PollInterval" scheduler into one "refresh every
// registered cache on its own frequency/reinitRate" scheduler per task.
package updater

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// DataSource is the pair of refresh operations a cache adapter (arp, ifmib,
// fdb, ...) exposes to the runtime. ReinitData rebuilds identity/index maps
// from scratch and is permitted to fail — a failure leaves the previous
// snapshot in place. UpdateData is the cheap per-cycle refresh.
type DataSource interface {
	ReinitData(ctx context.Context) error
	UpdateData(ctx context.Context) error
}

// Params configures one Task's cadence.
type Params struct {
	// Name identifies this task in logs.
	Name string
	// Frequency is the nominal interval between UpdateData calls.
	Frequency time.Duration
	// ReinitRate is the number of UpdateData cycles between ReinitData
	// calls. Zero or negative selects the default of 12.
	ReinitRate int
}

const (
	defaultFrequency  = 5 * time.Second
	defaultReinitRate = 12
	jitterSpreadMs    = 2000 // jitter is uniform in [-2s, +2s]
)

func (p Params) normalized() Params {
	if p.Frequency <= 0 {
		p.Frequency = defaultFrequency
	}
	if p.ReinitRate <= 0 {
		p.ReinitRate = defaultReinitRate
	}
	return p
}

// Task drives one DataSource's ReinitData/UpdateData cycle per its Params.
type Task struct {
	params Params
	source DataSource
	logger *slog.Logger

	rand *rand.Rand
}

// New builds a Task. A nil logger falls back to a no-op logger.
func New(params Params, source DataSource, logger *slog.Logger) *Task {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	params = params.normalized()
	return &Task{
		params: params,
		source: source,
		logger: logger.With("updater", params.Name),
		rand:   rand.New(rand.NewSource(seed(params.Name))),
	}
}

// seed derives a deterministic-but-distinct jitter seed per task name, so
// tests remain reproducible while distinct updaters still desynchronize.
func seed(name string) int64 {
	var h int64 = 1469598103934665603 // FNV offset basis
	for _, b := range []byte(name) {
		h ^= int64(b)
		h *= 1099511628211
	}
	return h
}

// Run executes the loop until ctx is cancelled. The first cycle always
// reinitializes before updating, matching cold-start semantics.
func (t *Task) Run(ctx context.Context) {
	cycles := 0
	for {
		if cycles%t.params.ReinitRate == 0 {
			if err := t.source.ReinitData(ctx); err != nil {
				t.logger.Warn("reinit failed, keeping last snapshot", "error", err)
			}
		}
		cycles++

		if err := t.source.UpdateData(ctx); err != nil {
			t.logger.Warn("update failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.sleepDuration()):
		}
	}
}

func (t *Task) sleepDuration() time.Duration {
	jitterMs := t.rand.Intn(2*jitterSpreadMs+1) - jitterSpreadMs
	d := t.params.Frequency + time.Duration(jitterMs)*time.Millisecond
	if d < 0 {
		d = 0
	}
	return d
}

// ErrCrashed wraps a panic recovered from a DataSource call, surfaced to the
// supervisor as a child-abnormal signal.
var ErrCrashed = errors.New("updater: data source panicked")

// RunSupervised wraps Run with panic recovery: a panic in a DataSource call
// is logged and returned as ErrCrashed rather than unwinding the goroutine.
func (t *Task) RunSupervised(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("updater task panicked", "recovered", r)
			err = ErrCrashed
		}
	}()
	t.Run(ctx)
	return nil
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
