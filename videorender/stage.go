package videorender

import (
	"context"
	"fmt"
	"os"

	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/types"
	"github.com/zk94007/osum-vsl/shared/util"
	"github.com/zk94007/osum-vsl/shared/xfs"
)

// AssetStore is the blob surface this stage needs.
type AssetStore interface {
	FetchAsset(ctx context.Context, key, path string) error
	UploadAsset(ctx context.Context, jobID, path, ext, contentType string) (string, error)
	Publish(ctx context.Context, key string) (string, error)
}

// Stage renders the final video once per aspect profile and publishes the
// results.
type Stage struct {
	store    AssetStore
	profiles []Profile
}

func NewStage(store AssetStore, profiles []Profile) *Stage {
	return &Stage{store: store, profiles: profiles}
}

// renderSteps is the per-profile step count used for progress weighting.
const renderSteps = 6

func (s *Stage) Handle(ctx context.Context, job *servicepipe.StageJob, data *types.JobData) ([]types.FileRef, error) {
	if err := data.RequireRows(types.StageVideoRender); err != nil {
		return nil, err
	}
	if data.TTSWavFileURL == "" {
		return nil, &types.MissingFieldError{Stage: types.StageVideoRender, Field: "ttsWavFileUrl"}
	}
	for i, r := range data.Rows {
		if r.Content == nil {
			return nil, fmt.Errorf("row %d has no selected content", i)
		}
	}
	if err := job.Progress(ctx, 1); err != nil {
		return nil, err
	}

	tmp, err := xfs.NewTmpDir()
	if err != nil {
		return nil, err
	}
	defer tmp.Cleanup()

	narration := tmp.File("narration.wav")
	if err := s.store.FetchAsset(ctx, data.TTSWavFileURL, narration); err != nil {
		return nil, err
	}
	music := ""
	if data.BackgroundAudioFileURL != "" {
		music = tmp.File("music.mp3")
		if err := util.DownloadFile(ctx, data.BackgroundAudioFileURL, music); err != nil {
			return nil, err
		}
	}

	// Overlay images come from the user's upload, not the blob store.
	overlayPaths := make([]string, len(data.Images))
	for i, img := range data.Images {
		p := tmp.File(fmt.Sprintf("overlay_%d.%s", i, types.ImageExt))
		if err := util.DownloadFile(ctx, img.RawContent, p); err != nil {
			return nil, fmt.Errorf("overlay image %q: %w", img.OriginalName, err)
		}
		overlayPaths[i] = p
	}
	if err := job.Progress(ctx, 10); err != nil {
		return nil, err
	}

	var files []types.FileRef
	totalSteps := len(s.profiles) * renderSteps
	step := 0
	progress := func(ctx context.Context) error {
		step++
		return job.Progress(ctx, 10+step*90/totalSteps)
	}

	for pi := range s.profiles {
		p := &s.profiles[pi]

		url, err := s.renderProfile(ctx, job.JobID, tmp, data, p, narration, music, overlayPaths, progress)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", p.Name, err)
		}
		files = append(files, types.FileRef{p.Name: url})
	}

	return files, nil
}

func (s *Stage) renderProfile(ctx context.Context, jobID string, tmp *xfs.TmpDir, data *types.JobData, p *Profile, narration, music string, overlayPaths []string, progress func(context.Context) error) (string, error) {
	// Step 1: cut every row to its scene duration in the profile geometry.
	list, err := os.Create(tmp.File("clips_" + p.Name + ".txt"))
	if err != nil {
		return "", err
	}
	for i := range data.Rows {
		row := &data.Rows[i]
		key := profileContent(row.Content, p.Name)
		if key == "" {
			list.Close()
			return "", fmt.Errorf("row %d has no %s content", i, p.Name)
		}

		ext := types.VideoExt
		if row.Type == types.ImageDataType {
			ext = types.ImageExt
		}
		local := tmp.File(fmt.Sprintf("content_%s_%d.%s", p.Name, i, ext))
		if err := s.store.FetchAsset(ctx, key, local); err != nil {
			list.Close()
			return "", err
		}

		scene := float64(row.EndTime-row.StartTime) / 1000
		if scene <= 0 {
			list.Close()
			return "", fmt.Errorf("row %d: non-positive scene duration %.3fs", i, scene)
		}

		clip := tmp.File(fmt.Sprintf("clip_%s_%d.ts", p.Name, i))
		if row.Type == types.ImageDataType {
			err = StillClip(ctx, local, clip, p, scene)
		} else {
			err = CutClip(ctx, local, clip, p, scene)
		}
		if err != nil {
			list.Close()
			return "", err
		}
		if _, err := fmt.Fprintf(list, "file '%s'\n", clip); err != nil {
			list.Close()
			return "", err
		}
	}
	if err := list.Close(); err != nil {
		return "", err
	}
	if err := progress(ctx); err != nil {
		return "", err
	}

	// Step 2: concatenate.
	merged := tmp.File("merged_" + p.Name + "." + types.VideoExt)
	if err := MergeClips(ctx, list.Name(), merged); err != nil {
		return "", err
	}
	if err := progress(ctx); err != nil {
		return "", err
	}

	// Step 3: overlay product/guarantee images at their resolved spans.
	current := merged
	for i, img := range data.Images {
		next := tmp.File(fmt.Sprintf("overlaid_%s_%d.%s", p.Name, i, types.VideoExt))
		start := float64(img.StartTime) / 1000
		end := float64(img.EndTime) / 1000
		if err := OverlayImage(ctx, current, overlayPaths[i], next, p, start, end); err != nil {
			return "", err
		}
		current = next
	}
	if err := progress(ctx); err != nil {
		return "", err
	}

	// Step 4: burn subtitles, disclaimers and citations.
	items := collectTextItems(data)
	if segments := PartitionTextItems(items); len(segments) > 0 {
		script := tmp.File("text_" + p.Name + ".filter")
		if err := WriteTextFilterScript(segments, p, script); err != nil {
			return "", err
		}
		burned := tmp.File("burned_" + p.Name + "." + types.VideoExt)
		if err := BurnText(ctx, current, script, burned); err != nil {
			return "", err
		}
		current = burned
	}
	if err := progress(ctx); err != nil {
		return "", err
	}

	// Step 5: mix narration (and optional music).
	final := tmp.File("final_" + p.Name + "." + types.VideoExt)
	if err := MixAudio(ctx, current, narration, music, final, SpeechVolume); err != nil {
		return "", err
	}
	if err := progress(ctx); err != nil {
		return "", err
	}

	// Step 6: upload and publish.
	key, err := s.store.UploadAsset(ctx, jobID, final, types.VideoExt, "video/mp4")
	if err != nil {
		return "", err
	}
	url, err := s.store.Publish(ctx, key)
	if err != nil {
		return "", err
	}
	if err := progress(ctx); err != nil {
		return "", err
	}
	return url, nil
}

func collectTextItems(data *types.JobData) []TextItem {
	var items []TextItem
	for _, r := range data.Rows {
		items = append(items, TextItem{Text: r.Text, Kind: KindSubtitle, StartTime: r.StartTime, EndTime: r.EndTime})
	}
	for _, d := range data.Disclaimers {
		text := d.Disclaimer
		if text == "" {
			text = d.Text
		}
		items = append(items, TextItem{Text: text, Kind: KindDisclaimer, StartTime: d.StartTime, EndTime: d.EndTime})
	}
	for _, c := range data.Citations {
		text := c.Citation
		if text == "" {
			text = c.Text
		}
		items = append(items, TextItem{Text: text, Kind: KindCitation, StartTime: c.StartTime, EndTime: c.EndTime})
	}
	return items
}

func profileContent(c *types.MediaContent, profile string) string {
	switch profile {
	case "landscape":
		return c.Landscape
	case "portrait":
		return c.Portrait
	case "square":
		return c.Square
	}
	return ""
}
