package googletts

import (
	"context"
	"fmt"
	"os"

	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/media"
	"github.com/zk94007/osum-vsl/shared/types"
	"github.com/zk94007/osum-vsl/shared/xfs"
)

// AssetStore is the blob surface this stage needs.
type AssetStore interface {
	UploadAsset(ctx context.Context, jobID, path, ext, contentType string) (string, error)
}

// Stage synthesizes the narration: split the SSML, render each batch, join
// the audio and publish it for the alignment stage.
type Stage struct {
	synth Synthesizer
	store AssetStore
}

func NewStage(synth Synthesizer, store AssetStore) *Stage {
	return &Stage{synth: synth, store: store}
}

func (s *Stage) Handle(ctx context.Context, job *servicepipe.StageJob, data *types.JobData) ([]types.FileRef, error) {
	if err := data.RequireSSML(); err != nil {
		return nil, err
	}
	if err := job.Progress(ctx, 10); err != nil {
		return nil, err
	}

	batches, err := SplitSSML(data.SSML, MaxBatchBytes)
	if err != nil {
		return nil, err
	}
	if err := job.Progress(ctx, 20); err != nil {
		return nil, err
	}

	tmp, err := xfs.NewTmpDir()
	if err != nil {
		return nil, err
	}
	defer tmp.Cleanup()

	// Synthesis spans the 20..70 progress window.
	var listFile string
	list, err := os.Create(tmp.File("segments.txt"))
	if err != nil {
		return nil, err
	}
	listFile = list.Name()

	for i, batch := range batches {
		audio, err := s.synth.Synthesize(ctx, batch, data.VoiceGender)
		if err != nil {
			list.Close()
			return nil, fmt.Errorf("synthesize batch %d: %w", i+1, err)
		}
		seg := tmp.File(fmt.Sprintf("segment_%03d.wav", i))
		if err := os.WriteFile(seg, audio, 0o644); err != nil {
			list.Close()
			return nil, err
		}
		if _, err := fmt.Fprintf(list, "file '%s'\n", seg); err != nil {
			list.Close()
			return nil, err
		}
		pct := 20 + (i+1)*50/len(batches)
		if err := job.Progress(ctx, pct); err != nil {
			list.Close()
			return nil, err
		}
	}
	if err := list.Close(); err != nil {
		return nil, err
	}

	merged := tmp.File("narration.wav")
	if err := media.ConcatAudio(ctx, listFile, merged); err != nil {
		return nil, fmt.Errorf("join narration segments: %w", err)
	}
	if err := job.Progress(ctx, 90); err != nil {
		return nil, err
	}

	key, err := s.store.UploadAsset(ctx, job.JobID, merged, "wav", "audio/wav")
	if err != nil {
		return nil, fmt.Errorf("upload narration: %w", err)
	}
	data.TTSWavFileURL = key

	if err := job.Progress(ctx, 100); err != nil {
		return nil, err
	}
	return nil, nil
}
