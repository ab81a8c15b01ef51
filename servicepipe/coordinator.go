// Package servicepipe chains the pipeline stages together. The Coordinator
// owns the per-stage frame (status bookkeeping, payload persistence, hop to
// the next stage); the stage packages only transform the payload.
package servicepipe

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/zk94007/osum-vsl/shared/types"
)

// JobStore is the slice of the status store the coordinator needs.
type JobStore interface {
	SetProgress(ctx context.Context, jobID string, step types.Stage, status string, pct int) error
	AppendFiles(ctx context.Context, jobID string, files ...types.FileRef) error
	StoreJobData(ctx context.Context, jobID string, data *types.JobData) (string, error)
	ReadJobData(ctx context.Context, ref string) (*types.JobData, error)
	RemoveJobData(ctx context.Context, ref string) error
	IsCancelled(ctx context.Context, jobID string) (bool, error)
}

// Enqueuer publishes stage hops.
type Enqueuer interface {
	Enqueue(stage types.Stage, msg *types.StageMessage) error
}

// StageJob is handed to stage handlers. Progress is both a status update and
// the cancellation checkpoint: stages must call it at their natural
// milestones and stop when it returns types.ErrJobCancelled.
type StageJob struct {
	JobID string
	Stage types.Stage
	store JobStore
}

// NewStageJob builds the handler frame for one stage run.
func NewStageJob(jobID string, stage types.Stage, store JobStore) *StageJob {
	return &StageJob{JobID: jobID, Stage: stage, store: store}
}

// Progress records pct for the running stage and polls the cancel flag.
func (j *StageJob) Progress(ctx context.Context, pct int) error {
	cancelled, err := j.store.IsCancelled(ctx, j.JobID)
	if err != nil {
		return err
	}
	if cancelled {
		return types.ErrJobCancelled
	}
	return j.store.SetProgress(ctx, j.JobID, j.Stage, types.StatusInProgress, pct)
}

// Handler transforms the payload for one stage. Returned files are appended
// to the job's status record. The handler owns its scratch space and must
// clean it up on every path, including cancellation.
type Handler func(ctx context.Context, job *StageJob, data *types.JobData) ([]types.FileRef, error)

// Coordinator runs stage handlers inside the shared frame.
type Coordinator struct {
	store JobStore
	queue Enqueuer
}

func NewCoordinator(store JobStore, queue Enqueuer) *Coordinator {
	return &Coordinator{store: store, queue: queue}
}

// StartJob creates a job: persists the payload, writes the initial status
// record and enqueues the first stage. Returns the job id.
func (c *Coordinator) StartJob(ctx context.Context, data *types.JobData) (string, error) {
	jobID := uuid.NewString()

	ref, err := c.store.StoreJobData(ctx, jobID, data)
	if err != nil {
		return "", fmt.Errorf("persist job payload: %w", err)
	}
	if err := c.store.SetProgress(ctx, jobID, types.StageOrder[0], types.StatusInProgress, 0); err != nil {
		return "", err
	}
	if err := c.queue.Enqueue(types.StageOrder[0], &types.StageMessage{JobID: jobID, PayloadRef: ref}); err != nil {
		return "", err
	}

	log.Printf("🎬 Started job %s", jobID)
	return jobID, nil
}

// Run executes one stage for one message. Errors never propagate to the
// queue layer: a failed job is marked failed and the message is consumed, a
// cancelled job is marked deleted. Only infrastructure errors (status store
// unreachable) are returned for redelivery.
func (c *Coordinator) Run(ctx context.Context, stage types.Stage, msg *types.StageMessage, handler Handler) error {
	jobID := msg.JobID

	if err := c.store.SetProgress(ctx, jobID, stage, types.StatusInProgress, 0); err != nil {
		return err
	}

	data, err := c.store.ReadJobData(ctx, msg.PayloadRef)
	if err != nil {
		log.Printf("❌ Job %s failed at %s: %v", jobID, stage, err)
		return c.store.SetProgress(ctx, jobID, stage, types.StatusFailed, 0)
	}

	job := NewStageJob(jobID, stage, c.store)
	files, err := handler(ctx, job, data)
	if err != nil {
		if errors.Is(err, types.ErrJobCancelled) {
			log.Printf("Job %s cancelled during %s", jobID, stage)
			return c.store.SetProgress(ctx, jobID, stage, types.StatusDeleted, 0)
		}
		log.Printf("❌ Job %s failed at %s: %v", jobID, stage, err)
		return c.store.SetProgress(ctx, jobID, stage, types.StatusFailed, 0)
	}

	ref, err := c.store.StoreJobData(ctx, jobID, data)
	if err != nil {
		log.Printf("❌ Job %s failed at %s: %v", jobID, stage, err)
		return c.store.SetProgress(ctx, jobID, stage, types.StatusFailed, 0)
	}

	if len(files) > 0 {
		if err := c.store.AppendFiles(ctx, jobID, files...); err != nil {
			return err
		}
	}

	// The consumed payload is never read again once the new ref exists.
	if err := c.store.RemoveJobData(ctx, msg.PayloadRef); err != nil {
		log.Printf("Job %s: drop stale payload %s: %v", jobID, msg.PayloadRef, err)
	}

	next, ok := types.NextStage(stage)
	if !ok {
		log.Printf("✅ Job %s completed", jobID)
		return c.store.SetProgress(ctx, jobID, types.StepCompleted, types.StatusCompleted, 100)
	}

	if err := c.store.SetProgress(ctx, jobID, next, types.StatusInProgress, 0); err != nil {
		return err
	}
	return c.queue.Enqueue(next, &types.StageMessage{JobID: jobID, PayloadRef: ref})
}
