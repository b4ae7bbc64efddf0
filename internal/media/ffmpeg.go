// Package media wraps the ffmpeg and ffprobe binaries used for capture,
// conversion and thumbnail extraction.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoDuration is returned when neither the container nor a decode pass
// yields a duration.
var ErrNoDuration = errors.New("media duration unavailable")

// Tool runs ffmpeg and ffprobe.
type Tool struct {
	FFmpeg  string
	FFprobe string
}

// New returns a Tool using the given binaries, defaulting to the ones on PATH.
func New(ffmpeg, ffprobe string) *Tool {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Tool{FFmpeg: ffmpeg, FFprobe: ffprobe}
}

// Check verifies that ffmpeg and ffprobe can be found.
func (t *Tool) Check() error {
	if _, err := exec.LookPath(t.FFmpeg); err != nil {
		return fmt.Errorf("ffmpeg not found (%s). Install ffmpeg and make sure it is on PATH", t.FFmpeg)
	}
	if _, err := exec.LookPath(t.FFprobe); err != nil {
		return fmt.Errorf("ffprobe not found (%s). It ships with ffmpeg", t.FFprobe)
	}
	return nil
}

// ToolError carries the tail of a failed process's stderr.
type ToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	if tail := stderrTail(e.Stderr, 3); tail != "" {
		return fmt.Sprintf("%s failed: %s", e.Tool, tail)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Command builds an ffmpeg command with the quiet flags every caller wants.
func (t *Tool) Command(ctx context.Context, args ...string) *exec.Cmd {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, args...)
	return exec.CommandContext(ctx, t.FFmpeg, full...)
}

// Run runs ffmpeg to completion.
func (t *Tool) Run(ctx context.Context, args ...string) error {
	_, err := t.Output(ctx, args...)
	return err
}

// Output runs ffmpeg and returns its stdout.
func (t *Tool) Output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := t.Command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ToolError{Tool: "ffmpeg", Err: err, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}

// Duration returns the media duration in seconds. WebM files written by a
// streaming muxer often carry no duration, so a decode pass is the fallback.
func (t *Tool) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, &ToolError{Tool: "ffprobe", Err: err, Stderr: stderr.String()}
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil && d > 0 {
		return d, nil
	}
	return t.decodeDuration(ctx, path)
}

var timeProgress = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

func (t *Tool) decodeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.FFmpeg, "-hide_banner", "-nostdin", "-i", path, "-f", "null", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, &ToolError{Tool: "ffmpeg", Err: err, Stderr: stderr.String()}
	}
	return parseProgressDuration(stderr.String())
}

func parseProgressDuration(stderr string) (float64, error) {
	matches := timeProgress.FindAllStringSubmatch(stderr, -1)
	if len(matches) == 0 {
		return 0, ErrNoDuration
	}
	last := matches[len(matches)-1]
	h, _ := strconv.Atoi(last[1])
	m, _ := strconv.Atoi(last[2])
	s, _ := strconv.ParseFloat(last[3], 64)
	d := float64(h)*3600 + float64(m)*60 + s
	if d <= 0 {
		return 0, ErrNoDuration
	}
	return d, nil
}

// FrameAt decodes the frame shown at the given offset (seconds).
func (t *Tool) FrameAt(ctx context.Context, path string, at float64) (image.Image, error) {
	out, err := t.Output(ctx,
		"-ss", formatSeconds(at),
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frame at %.2fs", at)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// GrabFrame captures a single frame from a live input described by inputArgs
// (for example an x11grab region).
func (t *Tool) GrabFrame(ctx context.Context, inputArgs []string) (image.Image, error) {
	args := append([]string{}, inputArgs...)
	args = append(args, "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "pipe:1")
	out, err := t.Output(ctx, args...)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func stderrTail(stderr string, n int) string {
	var lines []string
	for _, l := range strings.Split(stderr, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
