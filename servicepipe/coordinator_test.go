package servicepipe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/zk94007/osum-vsl/shared/types"
)

type progressCall struct {
	step   types.Stage
	status string
	pct    int
}

type fakeJobStore struct {
	progress  []progressCall
	files     []types.FileRef
	payloads  map[string]*types.JobData
	removed   []string
	nextRef   int
	cancelled bool
	readErr   error
	storeErr  error
	removeErr error
}

func newFakeJobStore(data *types.JobData) *fakeJobStore {
	return &fakeJobStore{payloads: map[string]*types.JobData{"ref-0": data}}
}

func (f *fakeJobStore) SetProgress(_ context.Context, _ string, step types.Stage, status string, pct int) error {
	f.progress = append(f.progress, progressCall{step, status, pct})
	return nil
}

func (f *fakeJobStore) AppendFiles(_ context.Context, _ string, files ...types.FileRef) error {
	f.files = append(f.files, files...)
	return nil
}

func (f *fakeJobStore) StoreJobData(_ context.Context, _ string, data *types.JobData) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.nextRef++
	ref := fmt.Sprintf("ref-%d", f.nextRef)
	f.payloads[ref] = data
	return ref, nil
}

func (f *fakeJobStore) ReadJobData(_ context.Context, ref string) (*types.JobData, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	data, ok := f.payloads[ref]
	if !ok {
		return nil, fmt.Errorf("no payload at %s", ref)
	}
	return data, nil
}

func (f *fakeJobStore) RemoveJobData(_ context.Context, ref string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, ref)
	delete(f.payloads, ref)
	return nil
}

func (f *fakeJobStore) IsCancelled(context.Context, string) (bool, error) {
	return f.cancelled, nil
}

func (f *fakeJobStore) lastProgress() progressCall {
	return f.progress[len(f.progress)-1]
}

type fakeEnqueuer struct {
	stages   []types.Stage
	messages []*types.StageMessage
}

func (f *fakeEnqueuer) Enqueue(stage types.Stage, msg *types.StageMessage) error {
	f.stages = append(f.stages, stage)
	f.messages = append(f.messages, msg)
	return nil
}

func TestStartJobEnqueuesFirstStage(t *testing.T) {
	store := newFakeJobStore(nil)
	queue := &fakeEnqueuer{}
	c := NewCoordinator(store, queue)

	jobID, err := c.StartJob(context.Background(), &types.JobData{Script: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if jobID == "" {
		t.Fatal("empty job id")
	}
	if len(queue.stages) != 1 || queue.stages[0] != types.StageOrder[0] {
		t.Errorf("enqueued stages = %v", queue.stages)
	}
	if queue.messages[0].JobID != jobID || queue.messages[0].PayloadRef == "" {
		t.Errorf("message = %+v", queue.messages[0])
	}
	last := store.lastProgress()
	if last.step != types.StageOrder[0] || last.status != types.StatusInProgress || last.pct != 0 {
		t.Errorf("initial progress = %+v", last)
	}
}

func TestRunAdvancesToNextStage(t *testing.T) {
	store := newFakeJobStore(&types.JobData{Script: "hello"})
	queue := &fakeEnqueuer{}
	c := NewCoordinator(store, queue)

	handler := func(_ context.Context, job *StageJob, data *types.JobData) ([]types.FileRef, error) {
		data.SSML = "<speak>hello</speak>"
		return []types.FileRef{{"transcript": "t.txt"}}, nil
	}
	msg := &types.StageMessage{JobID: "job-1", PayloadRef: "ref-0"}
	if err := c.Run(context.Background(), types.StageSSMLEnhancer, msg, handler); err != nil {
		t.Fatal(err)
	}

	if len(queue.stages) != 1 || queue.stages[0] != types.StageGoogleTTS {
		t.Fatalf("enqueued stages = %v", queue.stages)
	}
	if queue.messages[0].PayloadRef == "ref-0" {
		t.Error("next stage reuses the stale payload ref")
	}
	stored := store.payloads[queue.messages[0].PayloadRef]
	if stored == nil || stored.SSML == "" {
		t.Errorf("handler mutation not persisted: %+v", stored)
	}
	if len(store.files) != 1 || store.files[0]["transcript"] != "t.txt" {
		t.Errorf("files = %+v", store.files)
	}
	last := store.lastProgress()
	if last.step != types.StageGoogleTTS || last.status != types.StatusInProgress || last.pct != 0 {
		t.Errorf("next stage progress = %+v", last)
	}
	if len(store.removed) != 1 || store.removed[0] != "ref-0" {
		t.Errorf("consumed payload not dropped: removed = %v", store.removed)
	}
}

func TestRunToleratesPayloadDropFailure(t *testing.T) {
	store := newFakeJobStore(&types.JobData{Script: "hello"})
	store.removeErr = errors.New("blob store flaked")
	queue := &fakeEnqueuer{}
	c := NewCoordinator(store, queue)

	handler := func(context.Context, *StageJob, *types.JobData) ([]types.FileRef, error) {
		return nil, nil
	}
	msg := &types.StageMessage{JobID: "job-1", PayloadRef: "ref-0"}
	if err := c.Run(context.Background(), types.StageSSMLEnhancer, msg, handler); err != nil {
		t.Fatalf("payload drop failure leaked to the queue layer: %v", err)
	}
	if len(queue.stages) != 1 {
		t.Errorf("job did not advance: %v", queue.stages)
	}
}

func TestRunMarksLastStageCompleted(t *testing.T) {
	store := newFakeJobStore(&types.JobData{Script: "hello"})
	queue := &fakeEnqueuer{}
	c := NewCoordinator(store, queue)

	handler := func(context.Context, *StageJob, *types.JobData) ([]types.FileRef, error) {
		return nil, nil
	}
	msg := &types.StageMessage{JobID: "job-1", PayloadRef: "ref-0"}
	if err := c.Run(context.Background(), types.StageVideoRender, msg, handler); err != nil {
		t.Fatal(err)
	}

	if len(queue.stages) != 0 {
		t.Errorf("stages enqueued after the last one: %v", queue.stages)
	}
	last := store.lastProgress()
	if last.step != types.StepCompleted || last.status != types.StatusCompleted || last.pct != 100 {
		t.Errorf("final progress = %+v", last)
	}
}

func TestRunMarksFailureAndConsumesMessage(t *testing.T) {
	store := newFakeJobStore(&types.JobData{Script: "hello"})
	queue := &fakeEnqueuer{}
	c := NewCoordinator(store, queue)

	handler := func(context.Context, *StageJob, *types.JobData) ([]types.FileRef, error) {
		return nil, errors.New("ffmpeg exploded")
	}
	msg := &types.StageMessage{JobID: "job-1", PayloadRef: "ref-0"}
	if err := c.Run(context.Background(), types.StageGentle, msg, handler); err != nil {
		t.Fatalf("handler error leaked to the queue layer: %v", err)
	}

	last := store.lastProgress()
	if last.step != types.StageGentle || last.status != types.StatusFailed {
		t.Errorf("failure progress = %+v", last)
	}
	if len(queue.stages) != 0 {
		t.Errorf("failed job still advanced: %v", queue.stages)
	}
}

func TestRunMarksCancelledJobDeleted(t *testing.T) {
	store := newFakeJobStore(&types.JobData{Script: "hello"})
	queue := &fakeEnqueuer{}
	c := NewCoordinator(store, queue)

	handler := func(context.Context, *StageJob, *types.JobData) ([]types.FileRef, error) {
		return nil, types.ErrJobCancelled
	}
	msg := &types.StageMessage{JobID: "job-1", PayloadRef: "ref-0"}
	if err := c.Run(context.Background(), types.StageOpenAI, msg, handler); err != nil {
		t.Fatal(err)
	}

	last := store.lastProgress()
	if last.status != types.StatusDeleted {
		t.Errorf("cancelled job status = %+v", last)
	}
	if len(queue.stages) != 0 {
		t.Errorf("cancelled job still advanced: %v", queue.stages)
	}
}

func TestRunMarksUnreadablePayloadFailed(t *testing.T) {
	store := newFakeJobStore(nil)
	store.readErr = errors.New("blob store down")
	c := NewCoordinator(store, &fakeEnqueuer{})

	handlerCalled := false
	handler := func(context.Context, *StageJob, *types.JobData) ([]types.FileRef, error) {
		handlerCalled = true
		return nil, nil
	}
	msg := &types.StageMessage{JobID: "job-1", PayloadRef: "ref-0"}
	if err := c.Run(context.Background(), types.StageGoogleTTS, msg, handler); err != nil {
		t.Fatal(err)
	}
	if handlerCalled {
		t.Error("handler ran without a payload")
	}
	if store.lastProgress().status != types.StatusFailed {
		t.Errorf("progress = %+v", store.lastProgress())
	}
}

func TestProgressReturnsCancellationSentinel(t *testing.T) {
	store := newFakeJobStore(nil)
	store.cancelled = true
	job := &StageJob{JobID: "job-1", Stage: types.StageGentle, store: store}

	err := job.Progress(context.Background(), 40)
	if !errors.Is(err, types.ErrJobCancelled) {
		t.Errorf("err = %v, want ErrJobCancelled", err)
	}
	if len(store.progress) != 0 {
		t.Errorf("progress written for a cancelled job: %+v", store.progress)
	}
}

func TestProgressRecordsPercentage(t *testing.T) {
	store := newFakeJobStore(nil)
	job := &StageJob{JobID: "job-1", Stage: types.StageGentle, store: store}

	if err := job.Progress(context.Background(), 40); err != nil {
		t.Fatal(err)
	}
	last := store.lastProgress()
	if last.step != types.StageGentle || last.status != types.StatusInProgress || last.pct != 40 {
		t.Errorf("progress = %+v", last)
	}
}
