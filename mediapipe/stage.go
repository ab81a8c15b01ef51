package mediapipe

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/zk94007/osum-vsl/servicepipe"
	"github.com/zk94007/osum-vsl/shared/media"
	"github.com/zk94007/osum-vsl/shared/types"
	"github.com/zk94007/osum-vsl/shared/xfs"
	"github.com/zk94007/osum-vsl/videorender"
)

// AssetStore is the blob surface this stage needs.
type AssetStore interface {
	FetchAsset(ctx context.Context, key, path string) error
	UploadAsset(ctx context.Context, jobID, path, ext, contentType string) (string, error)
	URL(key string) string
}

// Stage turns each row's raw content into three profile-sized variants.
// Video rows are tracked, cut to their highest-activity window, reframed and
// resized; image rows are smart-cropped. Profiles run strictly sequentially
// per clip: concurrent reframe processes starve the CPU and trip stalled-job
// detection.
type Stage struct {
	tracker  Tracker
	reframer Reframer
	cropper  Cropper
	store    AssetStore
	profiles []videorender.Profile
}

func NewStage(tracker Tracker, reframer Reframer, cropper Cropper, store AssetStore, profiles []videorender.Profile) *Stage {
	return &Stage{tracker: tracker, reframer: reframer, cropper: cropper, store: store, profiles: profiles}
}

func (s *Stage) Handle(ctx context.Context, job *servicepipe.StageJob, data *types.JobData) ([]types.FileRef, error) {
	if err := data.RequireRows(types.StageMediaPipe); err != nil {
		return nil, err
	}
	if err := job.Progress(ctx, 5); err != nil {
		return nil, err
	}

	tmp, err := xfs.NewTmpDir()
	if err != nil {
		return nil, err
	}
	defer tmp.Cleanup()

	// Materialize every video row's clip locally once; tracking and cutting
	// both read it.
	locals := make([]string, len(data.Rows))
	for i := range data.Rows {
		row := &data.Rows[i]
		if row.Type != types.VideoDataType {
			continue
		}
		local := tmp.File("source_" + strconv.Itoa(i) + "." + types.VideoExt)
		if err := s.store.FetchAsset(ctx, row.RawContent, local); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		locals[i] = local
	}
	if err := job.Progress(ctx, 20); err != nil {
		return nil, err
	}

	objects := make([][]TrackedObject, len(data.Rows))
	for i := range data.Rows {
		if data.Rows[i].Type != types.VideoDataType {
			continue
		}
		tracked, err := s.tracker.Track(ctx, locals[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		objects[i] = tracked
		if err := job.Progress(ctx, 25+(i+1)*25/len(data.Rows)); err != nil {
			return nil, err
		}
	}

	for i := range data.Rows {
		row := &data.Rows[i]
		var err error
		if row.Type == types.VideoDataType {
			err = s.prepareVideo(ctx, job.JobID, tmp, row, locals[i], objects[i], i)
		} else {
			err = s.prepareImage(ctx, job.JobID, tmp, row, i)
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if err := job.Progress(ctx, 50+(i+1)*50/len(data.Rows)); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(data.Rows, func(a, b int) bool {
		return data.Rows[a].StartTime < data.Rows[b].StartTime
	})
	return nil, nil
}

func (s *Stage) prepareVideo(ctx context.Context, jobID string, tmp *xfs.TmpDir, row *types.Row, local string, tracked []TrackedObject, idx int) error {
	clipDuration, err := media.Duration(local)
	if err != nil {
		return err
	}
	scene := float64(row.EndTime-row.StartTime) / 1000
	if scene <= 0 {
		return fmt.Errorf("non-positive scene duration %.3fs", scene)
	}

	if len(tracked) == 0 {
		tracked = []TrackedObject{{Description: "clip", StartTime: 0, EndTime: clipDuration}}
	}
	start, end := HighActivityInterval(tracked, clipDuration, scene, nil)

	cut := tmp.File(fmt.Sprintf("cut_%d.%s", idx, types.VideoExt))
	err = media.ExecFFmpeg(ctx,
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", end-start),
		"-i", local,
		"-c:v", "libx264", "-preset", "fast", "-an",
		cut,
	)
	if err != nil {
		return fmt.Errorf("cut activity window: %w", err)
	}

	content := &types.MediaContent{}
	for _, p := range s.profiles {
		reframed := tmp.File(fmt.Sprintf("reframed_%d_%s.%s", idx, p.Name, types.VideoExt))
		if err := s.reframer.Reframe(ctx, cut, reframed, p.Aspect); err != nil {
			return err
		}
		resized := tmp.File(fmt.Sprintf("resized_%d_%s.%s", idx, p.Name, types.VideoExt))
		if err := media.Resize(reframed, resized, p.Width, p.Height); err != nil {
			return err
		}
		key, err := s.store.UploadAsset(ctx, jobID, resized, types.VideoExt, "video/mp4")
		if err != nil {
			return err
		}
		setProfileContent(content, p.Name, key)
	}
	row.Content = content
	return nil
}

func (s *Stage) prepareImage(ctx context.Context, jobID string, tmp *xfs.TmpDir, row *types.Row, idx int) error {
	src := s.store.URL(row.RawContent)

	content := &types.MediaContent{}
	for _, p := range s.profiles {
		cropped := tmp.RandomFile(types.ImageExt)
		if err := s.cropper.Crop(ctx, src, cropped, p.Width, p.Height); err != nil {
			return err
		}
		key, err := s.store.UploadAsset(ctx, jobID, cropped, types.ImageExt, "image/jpeg")
		if err != nil {
			return err
		}
		setProfileContent(content, p.Name, key)
	}
	row.Content = content
	return nil
}

func setProfileContent(c *types.MediaContent, profile, key string) {
	switch profile {
	case "landscape":
		c.Landscape = key
	case "portrait":
		c.Portrait = key
	case "square":
		c.Square = key
	}
}
