// Package convert transcodes recordings with ffmpeg.
package convert

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// ThumbnailOffset is where in the converted file a missing thumbnail is
// taken from, as a fraction of its duration.
const ThumbnailOffset = 0.2

// GIF output settings.
const (
	GIFFramerate = 10
	GIFMaxWidth  = 480
)

var (
	ErrUnsupportedFormat = errors.New("unsupported target format")
	ErrCollision         = errors.New("target file already exists")
)

// formatArgs are the fixed encoder settings per target container.
var formatArgs = map[string][]string{
	"mp4": {"-c:v", "libx264", "-preset", "veryfast", "-crf", "23", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "160k", "-movflags", "+faststart"},
	"mov": {"-c:v", "libx264", "-preset", "veryfast", "-crf", "23", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "160k"},
	"mkv": {"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-c:a", "aac", "-b:a", "160k"},
	"webm": {"-c:v", "libvpx-vp9", "-b:v", "0", "-crf", "32", "-row-mt", "1",
		"-c:a", "libopus", "-b:a", "128k"},
	"gif": {"-vf", fmt.Sprintf("fps=%d,scale='min(%d,iw)':-1:flags=lanczos", GIFFramerate, GIFMaxWidth),
		"-loop", "0", "-an"},
}

// Formats lists the supported target formats.
func Formats() []string {
	out := make([]string, 0, len(formatArgs))
	for f := range formatArgs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Normalize lowercases a format and strips a leading dot.
func Normalize(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// Transcoder is the subset of media.Tool the converter needs.
type Transcoder interface {
	Run(ctx context.Context, args ...string) error
	Duration(ctx context.Context, path string) (float64, error)
	FrameAt(ctx context.Context, path string, at float64) (image.Image, error)
}

// Converter runs conversions. A conversion holds the shared path locks of
// its source and target, so conversions of the same source are serialized
// while different sources convert concurrently. A started conversion is
// never cancelled.
type Converter struct {
	tool             Transcoder
	locks            *library.Locks
	log              hclog.Logger
	thumbnailTimeout time.Duration
}

// New returns a Converter. locks should be the library store's, so that a
// rename or delete of a file waits for its conversion.
func New(tool Transcoder, locks *library.Locks, log hclog.Logger) *Converter {
	if locks == nil {
		locks = library.NewLocks()
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Converter{
		tool:             tool,
		locks:            locks,
		log:              log.Named("convert"),
		thumbnailTimeout: 10 * time.Second,
	}
}

// TargetPath picks "<base>.<format>", then "<base>_converted.<format>".
// Both being taken is a collision; nothing is overwritten.
func TargetPath(src, format string, exists func(string) bool) (string, error) {
	base := strings.TrimSuffix(src, filepath.Ext(src))
	for _, p := range []string{base + "." + format, base + "_converted." + format} {
		if p != src && !exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(base+"_converted."+format), ErrCollision)
}

// reserveTarget claims the first free target name by creating it empty.
// Two conversions racing for the same name get different ones.
func reserveTarget(src, format string) (string, error) {
	for {
		dst, err := TargetPath(src, format, fileExists)
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return dst, f.Close()
	}
}

// Args builds the ffmpeg arguments converting src into dst. dst is the
// reserved placeholder and gets overwritten.
func Args(src, dst, format string) ([]string, error) {
	fa, ok := formatArgs[format]
	if !ok {
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	args := []string{"-y", "-i", src}
	args = append(args, fa...)
	return append(args, dst), nil
}

// Convert transcodes src to format and returns the new file's path. The
// source is left untouched. A missing thumbnail for the new file is not an
// error.
func (c *Converter) Convert(ctx context.Context, src, format string) (string, error) {
	format = Normalize(format)
	if _, ok := formatArgs[format]; !ok {
		return "", fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}

	if err := checkSource(src); err != nil {
		return "", err
	}
	dst, err := reserveTarget(src, format)
	if err != nil {
		return "", err
	}
	unlock := c.locks.Lock(src, dst)
	defer unlock()
	// The source may have gone while waiting for the lock.
	if err := checkSource(src); err != nil {
		os.Remove(dst)
		return "", err
	}
	args, _ := Args(src, dst, format)

	start := time.Now()
	c.log.Info("converting", "src", src, "dst", dst, "format", format)
	// ffmpeg keeps running to completion even if the caller gives up.
	if err := c.tool.Run(context.WithoutCancel(ctx), args...); err != nil {
		os.Remove(dst)
		c.log.Warn("conversion failed", "src", src, "error", err)
		return "", fmt.Errorf("convert to %s: %w", format, err)
	}
	c.log.Info("converted", "dst", dst, "took", time.Since(start).Round(time.Millisecond))

	if err := c.thumbnail(ctx, src, dst); err != nil {
		c.log.Warn("thumbnail for converted file", "dst", dst, "error", err)
	}
	return dst, nil
}

func (c *Converter) thumbnail(ctx context.Context, src, dst string) error {
	srcThumb, dstThumb := library.SidecarPath(src), library.SidecarPath(dst)
	if srcThumb == dstThumb && fileExists(srcThumb) {
		return nil
	}
	if fileExists(srcThumb) {
		data, err := os.ReadFile(srcThumb)
		if err != nil {
			return err
		}
		return os.WriteFile(dstThumb, data, 0o644)
	}

	ctx, cancel := context.WithTimeout(ctx, c.thumbnailTimeout)
	defer cancel()
	d, err := c.tool.Duration(ctx, dst)
	if err != nil {
		return err
	}
	img, err := c.tool.FrameAt(ctx, dst, d*ThumbnailOffset)
	if err != nil {
		return err
	}
	data, err := thumbnail.Encode(img)
	if err != nil {
		return err
	}
	return os.WriteFile(dstThumb, data, 0o644)
}

func checkSource(src string) error {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(src), library.ErrNotFound)
		}
		return err
	}
	return nil
}

func fileExists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
