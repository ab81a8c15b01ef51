package videorender

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/zk94007/osum-vsl/shared/media"
)

// CutClip re-encodes a source clip to exactly the profile geometry and the
// scene duration: upscale by the larger axis ratio, center-crop to the
// target frame, strip audio, and emit MPEG-TS so clips can be concatenated
// by stream copy.
func CutClip(ctx context.Context, in, out string, p *Profile, durationSec float64) error {
	vw, vh, err := media.Dimensions(in)
	if err != nil {
		return err
	}
	if vw <= 0 || vh <= 0 {
		return fmt.Errorf("bad source dimensions %dx%d for %s", vw, vh, in)
	}

	ratio := math.Max(float64(p.Width)/float64(vw), float64(p.Height)/float64(vh))
	sw := int(math.Round(float64(vw)*ratio)) / 2 * 2
	sh := int(math.Round(float64(vh)*ratio)) / 2 * 2
	if sw < p.Width {
		sw = p.Width
	}
	if sh < p.Height {
		sh = p.Height
	}

	vf := fmt.Sprintf("scale=%d:%d,crop=%d:%d:(iw-%d)/2:(ih-%d)/2",
		sw, sh, p.Width, p.Height, p.Width, p.Height)

	return media.ExecFFmpeg(ctx,
		"-y",
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-i", in,
		"-vf", vf,
		"-c:v", "libx264", "-preset", "fast",
		"-an",
		"-bsf:v", "h264_mp4toannexb",
		"-f", "mpegts",
		out,
	)
}

// StillClip turns a profile-sized still image into a clip of the scene
// duration, same output format as CutClip.
func StillClip(ctx context.Context, image, out string, p *Profile, durationSec float64) error {
	return media.ExecFFmpeg(ctx,
		"-y",
		"-loop", "1",
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-i", image,
		"-vf", fmt.Sprintf("scale=%d:%d", p.Width, p.Height),
		"-c:v", "libx264", "-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-an",
		"-bsf:v", "h264_mp4toannexb",
		"-f", "mpegts",
		out,
	)
}

// MergeClips concatenates MPEG-TS segments by stream copy into one MP4.
// listFile must contain `file '<path>'` lines in time order.
func MergeClips(ctx context.Context, listFile, out string) error {
	return media.ExecFFmpeg(ctx,
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		out,
	)
}

// OverlayImage composites an image over the video for [startSec, endSec],
// scaled to the profile's overlay box, horizontally centered with the
// profile's vertical margin, fading in and out over FadeDuration.
func OverlayImage(ctx context.Context, video, image, out string, p *Profile, startSec, endSec float64) error {
	fadeOutStart := endSec - FadeDuration
	if fadeOutStart < startSec {
		fadeOutStart = startSec
	}

	filter := fmt.Sprintf(
		"[1:v]scale=%d:%d:force_original_aspect_ratio=decrease,format=rgba,"+
			"fade=in:st=%.3f:d=%.3f:alpha=1,fade=out:st=%.3f:d=%.3f:alpha=1[ovr];"+
			"[0:v][ovr]overlay=(W-w)/2:%d:enable='between(t,%.3f,%.3f)'",
		p.ImageWidth, p.ImageHeight,
		startSec, FadeDuration, fadeOutStart, FadeDuration,
		p.ImageMarginY, startSec, endSec,
	)

	return media.ExecFFmpeg(ctx,
		"-y",
		"-i", video,
		"-i", image,
		"-filter_complex", filter,
		"-c:v", "libx264", "-preset", "fast",
		"-c:a", "copy",
		out,
	)
}

// BurnText applies a drawtext filter chain from a script file. The chain can
// run to thousands of characters for long scripts, past any sane command
// line limit, hence the script file.
func BurnText(ctx context.Context, video, scriptPath, out string) error {
	return media.ExecFFmpeg(ctx,
		"-y",
		"-i", video,
		"-filter_complex_script", scriptPath,
		"-c:v", "libx264", "-preset", "fast",
		"-c:a", "copy",
		out,
	)
}

// WriteTextFilterScript materializes the filter chain for BurnText.
func WriteTextFilterScript(segments []Segment, p *Profile, path string) error {
	script := BuildTextFilterScript(segments, p)
	if script == "" {
		return fmt.Errorf("no text to burn")
	}
	return os.WriteFile(path, []byte(script), 0o644)
}

// MixAudio lays the narration (and optional background music) under the
// video. The narration is volume-scaled and padded so the audio never ends
// before the picture; -shortest then trims at the video's end.
func MixAudio(ctx context.Context, video, narration, music, out string, volume float64) error {
	args := []string{"-y", "-i", video, "-i", narration}
	var filter string
	if music != "" {
		args = append(args, "-i", music)
		filter = fmt.Sprintf(
			"[1:a]volume=%.2f[a1];[2:a]volume=0.20[a2];[a1][a2]amix=inputs=2:duration=first[am];[am]apad[a]",
			volume)
	} else {
		filter = fmt.Sprintf("[1:a]volume=%.2f[a1];[a1]apad[a]", volume)
	}

	args = append(args,
		"-filter_complex", filter,
		"-map", "0:v", "-map", "[a]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		out,
	)
	return media.ExecFFmpeg(ctx, args...)
}
