// Package thumbnail captures, scales and encodes recording thumbnails.
package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/image/draw"
)

// Fixed output box and JPEG quality for every thumbnail.
const (
	Width   = 320
	Height  = 180
	Quality = 80
)

// DefaultTimeout bounds a single capture strategy.
const DefaultTimeout = 4 * time.Second

const dataURLPrefix = "data:image/jpeg;base64,"

var errNoLiveStream = errors.New("no live stream")

// Strategy is one way of obtaining a frame.
type Strategy struct {
	Name    string
	Timeout time.Duration
	Capture func(ctx context.Context) (image.Image, error)
}

// FirstOf tries each strategy in order and returns the JPEG of the first frame
// captured. It returns nil when every strategy fails; thumbnails never block a save.
func FirstOf(ctx context.Context, log hclog.Logger, strategies ...Strategy) []byte {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	for _, s := range strategies {
		img, err := attempt(ctx, s)
		if err != nil {
			log.Debug("thumbnail strategy failed", "strategy", s.Name, "error", err)
			continue
		}
		data, err := Encode(img)
		if err != nil {
			log.Debug("thumbnail encode failed", "strategy", s.Name, "error", err)
			continue
		}
		return data
	}
	return nil
}

func attempt(ctx context.Context, s Strategy) (image.Image, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := s.Capture(ctx)
		ch <- result{img, err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.img == nil {
			return nil, errors.New("empty frame")
		}
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshotter grabs the frame currently shown by a live video source.
type Snapshotter interface {
	Snapshot(ctx context.Context) (image.Image, error)
}

// LiveFrame captures from a still-open video source. It is the cheap tier,
// available only until the source is released.
func LiveFrame(src Snapshotter, timeout time.Duration) Strategy {
	return Strategy{
		Name:    "live",
		Timeout: timeout,
		Capture: func(ctx context.Context) (image.Image, error) {
			if src == nil {
				return nil, errNoLiveStream
			}
			return src.Snapshot(ctx)
		},
	}
}

// Decoder reads durations and frames from a media file.
type Decoder interface {
	Duration(ctx context.Context, path string) (float64, error)
	FrameAt(ctx context.Context, path string, at float64) (image.Image, error)
}

// DecodedFrame loads finalized media into a decoder and captures the frame at
// SeekOffset of its duration.
func DecodedFrame(dec Decoder, data []byte, timeout time.Duration) Strategy {
	return Strategy{
		Name:    "decode",
		Timeout: timeout,
		Capture: func(ctx context.Context) (image.Image, error) {
			if len(data) == 0 {
				return nil, errors.New("no media data")
			}
			f, err := os.CreateTemp("", "screenrec-thumb-*.webm")
			if err != nil {
				return nil, fmt.Errorf("create temp media: %w", err)
			}
			defer os.Remove(f.Name())
			if _, err := f.Write(data); err != nil {
				f.Close()
				return nil, fmt.Errorf("write temp media: %w", err)
			}
			if err := f.Close(); err != nil {
				return nil, err
			}

			d, err := dec.Duration(ctx, f.Name())
			if err != nil {
				return nil, err
			}
			return dec.FrameAt(ctx, f.Name(), SeekOffset(d))
		},
	}
}

// SeekOffset picks a representative frame offset past any leading black
// frames: 1.5s into clips longer than 3s, otherwise 20% of the duration.
func SeekOffset(duration float64) float64 {
	if duration > 3 {
		return 1.5
	}
	if duration <= 0 {
		return 0
	}
	return duration * 0.2
}

// Fit scales (w, h) down to fit the thumbnail box, preserving aspect ratio.
func Fit(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= Width && h <= Height {
		return w, h
	}
	scale := min(float64(Width)/float64(w), float64(Height)/float64(h))
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}

// Encode downscales img into the thumbnail box and encodes it as JPEG.
func Encode(img image.Image) ([]byte, error) {
	b := img.Bounds()
	w, h := Fit(b.Dx(), b.Dy())
	if w == 0 {
		return nil, errors.New("empty image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL renders JPEG bytes as an inline image.
func DataURL(jpegData []byte) string {
	if len(jpegData) == 0 {
		return ""
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(jpegData)
}

// ParseDataURL accepts a data URL or bare base64 and returns the image bytes.
// The empty string yields nil.
func ParseDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data URL")
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	return data, nil
}
