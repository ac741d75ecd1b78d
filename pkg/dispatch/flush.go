package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/greenmiles/backend/pkg/logger"
)

// flushState tracks where a dispatcher's batch is in its lifecycle:
// Queued -> {InlineFlush | Spawned | SynchronousFallback} -> Done.
type flushState int

const (
	stateQueued flushState = iota
	stateInlineFlush
	stateSpawned
	stateSyncFallback
	stateDone
)

func (s flushState) String() string {
	switch s {
	case stateQueued:
		return "queued"
	case stateInlineFlush:
		return "inline_flush"
	case stateSpawned:
		return "spawned"
	case stateSyncFallback:
		return "synchronous_fallback"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// Flush drains the pending batch exactly once, choosing the least blocking
// execution path available:
//
//  1. InlineFlush: a response flusher is available, so the response is
//     pushed to the client first and the jobs run in-process afterwards.
//  2. Spawned: the batch is serialized to a temp file and handed to a
//     detached worker process; the request does not wait for it.
//  3. SynchronousFallback: spawning failed, so the jobs run in-process
//     before the request finishes. Delivery still happens; only the
//     non-blocking property is lost.
//
// The batch is taken off the dispatcher before any execution starts, so a
// job can never be flushed twice. Flushing an empty dispatcher is a no-op.
func (d *Dispatcher) Flush(ctx context.Context) {
	jobs := d.pending
	d.pending = nil
	if len(jobs) == 0 {
		return
	}

	switch {
	case d.responseFlush != nil:
		d.setState(ctx, stateInlineFlush)
		d.responseFlush()
		d.runAll(ctx, jobs)

	default:
		if err := d.spawnWorker(jobs); err != nil {
			d.log.LogAttrs(ctx, slog.LevelWarn, "failed to spawn email worker, delivering synchronously",
				logger.Component("dispatch"),
				logger.JobCount(len(jobs)),
				logger.Error(err),
			)
			d.setState(ctx, stateSyncFallback)
			d.runAll(ctx, jobs)
		} else {
			d.setState(ctx, stateSpawned)
		}
	}

	d.setState(ctx, stateDone)
}

func (d *Dispatcher) setState(ctx context.Context, s flushState) {
	d.state = s
	d.log.LogAttrs(ctx, slog.LevelDebug, "dispatch state change",
		logger.Component("dispatch"),
		slog.String("state", s.String()),
	)
}

// runAll executes jobs in order. A failure inside one job is logged and does
// not abort its siblings.
func (d *Dispatcher) runAll(ctx context.Context, jobs []Job) {
	for _, job := range jobs {
		d.run(ctx, job)
	}
}

func (d *Dispatcher) run(ctx context.Context, job Job) {
	if d.gateway == nil {
		return
	}
	if err := d.gateway.Send(ctx, job); err != nil {
		d.log.LogAttrs(ctx, slog.LevelError, "email job failed",
			logger.Component("dispatch"),
			logger.JobType(job.Type),
			logger.Error(err),
		)
	}
}

// spawnWorker writes the batch to a job file and launches the worker process
// detached, with the file path as its only argument. On any failure the
// partially-created file is removed so the synchronous fallback starts
// clean; on success file ownership transfers to the worker, which removes it
// after consuming the jobs.
func (d *Dispatcher) spawnWorker(jobs []Job) error {
	worker, err := d.resolveWorkerPath()
	if err != nil {
		return err
	}

	path, err := WriteJobFile(d.tempDir, jobs)
	if err != nil {
		return err
	}

	cmd := exec.Command(worker, path)
	if err := cmd.Start(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("start email worker %s: %w", worker, err)
	}

	// Fire-and-forget: the parent never inspects the worker's outcome. The
	// goroutine only reaps the child so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()

	return nil
}

func (d *Dispatcher) resolveWorkerPath() (string, error) {
	if d.workerPath != "" {
		return d.workerPath, nil
	}
	path, err := exec.LookPath("emailworker")
	if err != nil {
		return "", errors.Join(ErrWorkerNotConfigured, err)
	}
	return path, nil
}
