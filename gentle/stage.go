package gentle

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
	FetchAsset(ctx context.Context, key, path string) error
	UploadAsset(ctx context.Context, jobID, path, ext, contentType string) (string, error)
	URL(key string) string
}

// Stage aligns the narration audio against the script and writes the timing
// products back to the payload: words, rows, sentences, annotation time
// ranges and the SRT/CSV exports.
type Stage struct {
	aligner Aligner
	store   AssetStore
	rowCap  int
}

func NewStage(aligner Aligner, store AssetStore, rowCap int) *Stage {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	return &Stage{aligner: aligner, store: store, rowCap: rowCap}
}

func (s *Stage) Handle(ctx context.Context, job *servicepipe.StageJob, data *types.JobData) ([]types.FileRef, error) {
	if err := data.RequireTTSAudio(); err != nil {
		return nil, err
	}
	if err := job.Progress(ctx, 10); err != nil {
		return nil, err
	}

	tmp, err := xfs.NewTmpDir()
	if err != nil {
		return nil, err
	}
	defer tmp.Cleanup()

	wav := tmp.File("narration.wav")
	if err := s.store.FetchAsset(ctx, data.TTSWavFileURL, wav); err != nil {
		return nil, err
	}
	duration, err := media.Duration(wav)
	if err != nil {
		return nil, err
	}

	tokens := SeparateWords(data.PlainText)
	spoken := NormalizeSpokenWords(tokens)

	result, err := s.aligner.Align(ctx, wav, SpokenText(spoken))
	if err != nil {
		return nil, err
	}
	if err := job.Progress(ctx, 60); err != nil {
		return nil, err
	}

	if len(result.Words) != len(spoken) {
		return nil, fmt.Errorf("aligner returned %d words for %d transcript tokens", len(result.Words), len(spoken))
	}
	aligned := make([]AlignedWord, len(result.Words))
	for i, w := range result.Words {
		aligned[i] = AlignedWord{Word: spoken[i].Text, Case: w.Case, Start: w.Start, End: w.End}
	}

	repaired := RepairTimings(aligned, duration)
	data.Words = repaired

	orig := MergeExpandedWords(repaired, spoken, tokens)
	rows, sentences := BuildRows(orig, s.rowCap, duration)
	data.Rows = WithTextContext(rows)
	data.Sentences = sentences

	if err := s.resolveAnnotations(data, orig); err != nil {
		return nil, err
	}
	if err := job.Progress(ctx, 70); err != nil {
		return nil, err
	}

	srtPath := tmp.File("subtitles.srt")
	if err := os.WriteFile(srtPath, []byte(SRT(rows)), 0o644); err != nil {
		return nil, err
	}
	srtKey, err := s.store.UploadAsset(ctx, job.JobID, srtPath, "srt", "application/x-subrip")
	if err != nil {
		return nil, err
	}
	data.SubtitleSRTURL = srtKey

	csvPath := tmp.File("subtitles.csv")
	if err := os.WriteFile(csvPath, []byte(CSV(rows)), 0o644); err != nil {
		return nil, err
	}
	csvKey, err := s.store.UploadAsset(ctx, job.JobID, csvPath, "csv", "text/csv")
	if err != nil {
		return nil, err
	}
	data.SubtitleCSVURL = csvKey

	if err := job.Progress(ctx, 100); err != nil {
		return nil, err
	}
	return []types.FileRef{
		{"subtitles_srt": s.store.URL(srtKey)},
		{"subtitles_csv": s.store.URL(csvKey)},
	}, nil
}

// resolveAnnotations stamps time ranges onto disclaimers, citations and image
// markers. A marker matching several places in the text yields one entry per
// occurrence.
func (s *Stage) resolveAnnotations(data *types.JobData, words []types.Word) error {
	var disclaimers []types.Disclaimer
	for _, d := range data.Disclaimers {
		spans, err := ResolveSpans(data.PlainText, words, d.Text)
		if err != nil {
			return err
		}
		for _, sp := range spans {
			resolved := d
			resolved.StartTime = sp.StartTimeMs
			resolved.EndTime = sp.EndTimeMs
			disclaimers = append(disclaimers, resolved)
		}
	}
	data.Disclaimers = disclaimers

	var citations []types.Citation
	for _, c := range data.Citations {
		spans, err := ResolveSpans(data.PlainText, words, c.Text)
		if err != nil {
			return err
		}
		for _, sp := range spans {
			resolved := c
			resolved.StartTime = sp.StartTimeMs
			resolved.EndTime = sp.EndTimeMs
			citations = append(citations, resolved)
		}
	}
	data.Citations = citations

	var images []types.Image
	for _, img := range data.Images {
		spans, err := ResolveSpans(data.PlainText, words, img.Text)
		if err != nil {
			return err
		}
		for _, sp := range spans {
			resolved := img
			resolved.StartTime = sp.StartTimeMs
			resolved.EndTime = sp.EndTimeMs
			images = append(images, resolved)
		}
	}
	data.Images = images

	return nil
}
