// Package media wraps ffmpeg/ffprobe for the pipeline stages.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"
)

// ProcessError reports a media tool child process that exited non-zero.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, e.Stderr)
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Duration returns the media duration of a local file in seconds.
func Duration(path string) (float64, error) {
	raw, err := ffmpeg_go.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	var pf probeFormat
	if err := json.Unmarshal([]byte(raw), &pf); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}
	d, err := strconv.ParseFloat(pf.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", pf.Format.Duration, err)
	}
	return d, nil
}

// Dimensions returns the pixel size of the first video stream.
func Dimensions(path string) (width, height int, err error) {
	raw, err := ffmpeg_go.Probe(path)
	if err != nil {
		return 0, 0, fmt.Errorf("probe %s: %w", path, err)
	}
	var pf probeFormat
	if err := json.Unmarshal([]byte(raw), &pf); err != nil {
		return 0, 0, fmt.Errorf("parse probe output: %w", err)
	}
	for _, s := range pf.Streams {
		if s.CodecType == "video" {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, fmt.Errorf("no video stream in %s", path)
}

// ExecFFmpeg runs ffmpeg with the given arguments. The process is killed when
// the context is cancelled. Non-zero exit becomes a *ProcessError carrying the
// captured stderr tail.
func ExecFFmpeg(ctx context.Context, args ...string) error {
	return execTool(ctx, "ffmpeg", args...)
}

// ExecCommand runs an arbitrary external media tool (e.g. the reframe binary)
// under the same cancellation and error rules as ExecFFmpeg.
func ExecCommand(ctx context.Context, name string, args ...string) error {
	return execTool(ctx, name, args...)
}

func execTool(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessError{
			Command:  name,
			ExitCode: exitErr.ExitCode(),
			Stderr:   tail(stderr.String(), 2048),
		}
	}
	return fmt.Errorf("run %s: %w", name, err)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Resize rescales a video to exactly width x height pixels.
func Resize(in, out string, width, height int) error {
	err := ffmpeg_go.Input(in).
		Filter("scale", ffmpeg_go.Args{fmt.Sprintf("%d:%d", width, height)}).
		Output(out, ffmpeg_go.KwArgs{"c:v": "libx264", "preset": "fast"}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("resize %s: %w", in, err)
	}
	return nil
}

// ConcatAudio joins WAV segments into one file using the concat demuxer.
// listFile must contain `file '<path>'` lines.
func ConcatAudio(ctx context.Context, listFile, out string) error {
	return ExecFFmpeg(ctx,
		"-y", "-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c", "copy",
		out,
	)
}
