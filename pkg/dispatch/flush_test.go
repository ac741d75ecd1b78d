package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmiles/backend/pkg/messages"
	"github.com/greenmiles/backend/pkg/prefs"
)

func TestFlush_InlinePathFlushesResponseFirst(t *testing.T) {
	t.Parallel()

	env := newTestEnv()

	var order []string
	gw := &recordingGateway{}
	d := NewDispatcher(env.store, env.prefs, &orderedGateway{inner: gw, order: &order},
		WithResolver(staticResolver("t@example.com", "")),
		WithResponseFlusher(func() { order = append(order, "response") }))

	d.Notify(context.Background(), NotifyParams{
		ReceiverID: 1,
		Title:      "x",
		Category:   prefs.CategorySystem,
		Priority:   messages.PriorityNormal,
	})
	require.Equal(t, 1, d.Pending())

	d.Flush(context.Background())

	require.Equal(t, []string{"response", "send"}, order,
		"client response is pushed before any email work runs")
	assert.Zero(t, d.Pending())
	assert.Equal(t, stateDone, d.state)
}

// orderedGateway records the relative order of sends against other events.
type orderedGateway struct {
	inner *recordingGateway
	order *[]string
}

func (g *orderedGateway) Send(ctx context.Context, job Job) error {
	*g.order = append(*g.order, "send")
	return g.inner.Send(ctx, job)
}

func TestFlush_SpawnFailureFallsBackSynchronously(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	env := newTestEnv()
	d := NewDispatcher(env.store, env.prefs, env.gateway,
		WithResolver(staticResolver("t@example.com", "")),
		WithConfig(Config{
			WorkerPath: filepath.Join(tempDir, "no-such-worker"),
			TempDir:    tempDir,
		}))

	for range 3 {
		d.Notify(context.Background(), NotifyParams{
			ReceiverID: 1,
			Title:      "x",
			Category:   prefs.CategorySystem,
			Priority:   messages.PriorityNormal,
		})
	}
	require.Equal(t, 3, d.Pending())

	d.Flush(context.Background())

	assert.Len(t, env.gateway.jobs(), 3, "every queued job still delivered")
	assert.Equal(t, stateDone, d.state)

	// The partially-created job file must not survive a failed spawn.
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFlush_SpawnedPathDoesNotRunInProcess(t *testing.T) {
	t.Parallel()

	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}

	tempDir := t.TempDir()
	env := newTestEnv()
	d := NewDispatcher(env.store, env.prefs, env.gateway,
		WithResolver(staticResolver("t@example.com", "")),
		WithConfig(Config{WorkerPath: "/bin/true", TempDir: tempDir}))

	d.Notify(context.Background(), NotifyParams{
		ReceiverID: 1,
		Title:      "x",
		Category:   prefs.CategorySystem,
		Priority:   messages.PriorityNormal,
	})

	d.Flush(context.Background())

	assert.Empty(t, env.gateway.jobs(), "spawned path hands off, never sends in-process")

	// Ownership of the job file transferred to the worker.
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	jobs, err := ReadJobFile(filepath.Join(tempDir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, JobMessageNotification, jobs[0].Type)
}

func TestFlush_AtMostOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	d := NewDispatcher(env.store, env.prefs, env.gateway,
		WithResolver(staticResolver("t@example.com", "")),
		WithResponseFlusher(func() {}))

	d.Notify(context.Background(), NotifyParams{
		ReceiverID: 1,
		Title:      "x",
		Category:   prefs.CategorySystem,
		Priority:   messages.PriorityNormal,
	})

	d.Flush(context.Background())
	d.Flush(context.Background())

	assert.Len(t, env.gateway.jobs(), 1, "second flush is a no-op")
}

func TestFlush_EmptyIsNoOp(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	d := NewDispatcher(env.store, env.prefs, env.gateway,
		WithConfig(Config{TempDir: t.TempDir()}))

	d.Flush(context.Background())

	assert.Empty(t, env.gateway.jobs())
	assert.Equal(t, stateQueued, d.state, "no state transition for an empty batch")
}

func TestFlush_JobFailureDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	env.gateway.failOn = map[JobType]error{
		JobExchangeConfirmation: errors.New("smtp down"),
	}

	d := NewDispatcher(env.store, env.prefs, env.gateway,
		WithResolver(staticResolver("t@example.com", "")),
		WithResponseFlusher(func() {}))

	d.ExchangeConfirmed(ctx, ExchangeConfirmation{UserID: 1, ProductName: "Mug"})
	d.Notify(ctx, NotifyParams{
		ReceiverID: 1,
		Title:      "runs after the failure",
		Category:   prefs.CategorySystem,
		Priority:   messages.PriorityNormal,
	})
	require.Equal(t, 2, d.Pending())

	d.Flush(ctx)

	sent := env.gateway.jobs()
	require.Len(t, sent, 2, "failing job does not stop the batch")
	assert.Equal(t, JobExchangeConfirmation, sent[0].Type)
	assert.Equal(t, JobMessageNotification, sent[1].Type)
}

func TestResolveWorkerPath(t *testing.T) {
	t.Run("configured path wins", func(t *testing.T) {
		d := &Dispatcher{workerPath: "/opt/bin/emailworker"}
		path, err := d.resolveWorkerPath()
		require.NoError(t, err)
		assert.Equal(t, "/opt/bin/emailworker", path)
	})

	t.Run("missing worker reported", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())
		d := &Dispatcher{}
		_, err := d.resolveWorkerPath()
		require.ErrorIs(t, err, ErrWorkerNotConfigured)
	})
}
