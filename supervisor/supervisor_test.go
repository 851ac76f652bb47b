package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/ax-subagent/mib"
	"github.com/vpbank/ax-subagent/session"
	"github.com/vpbank/ax-subagent/wire"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()
	tbl, err := mib.NewBuilder().
		AddScalar(wire.ParseOIDMust("1.3.6.1.2.1.1.1"), func() (wire.Value, bool) {
			return wire.OctetStringValue([]byte("test")), true
		}).
		Build()
	require.NoError(t, err)
	cfg := session.Config{
		SocketPath:    filepath.Join(t.TempDir(), "nonexistent.sock"),
		DialTimeout:   50 * time.Millisecond,
		RetryInterval: 50 * time.Millisecond,
	}
	return session.New(cfg, tbl, nil, slog.New(slog.NewTextHandler(discard{}, nil)))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestStartAndStopRunsAllTasks(t *testing.T) {
	s := New(testSession(t), slog.New(slog.NewTextHandler(discard{}, nil)))

	var started1, started2 int
	s.AddTask(func(ctx context.Context) error {
		started1++
		<-ctx.Done()
		return nil
	})
	s.AddTask(func(ctx context.Context) error {
		started2++
		<-ctx.Done()
		return nil
	})

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	assert.Equal(t, 1, started1)
	assert.Equal(t, 1, started2)
}

func TestCrashedTaskIsReportedToWait(t *testing.T) {
	s := New(testSession(t), slog.New(slog.NewTextHandler(discard{}, nil)))

	crashErr := errors.New("boom")
	s.AddTask(func(ctx context.Context) error {
		return crashErr
	})
	s.AddTask(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	s.Start(context.Background())
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.Wait(ctx)
	assert.ErrorIs(t, err, crashErr)
}

func TestStopReturnsWithoutCrashedTask(t *testing.T) {
	s := New(testSession(t), slog.New(slog.NewTextHandler(discard{}, nil)))
	s.AddTask(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	s.Start(context.Background())
	s.Stop()
}
