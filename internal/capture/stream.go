// Package capture opens screen, system-audio and microphone tracks and
// records them with ffmpeg.
package capture

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
)

// Kind is the media type of a track.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Track is an acquired capture handle. Stop releases the OS resource and is
// safe to call more than once.
type Track interface {
	Kind() Kind
	Stop() error
}

// VideoTrack is a live picture source.
type VideoTrack interface {
	Track
	// InputArgs returns the ffmpeg input arguments that read this source.
	InputArgs() []string
	// Snapshot grabs the frame currently shown by the source.
	Snapshot(ctx context.Context) (image.Image, error)
}

// AudioTrack is a live PCM source (s16le, 48 kHz, stereo).
type AudioTrack interface {
	Track
	io.Reader
	Label() string
}

// Stream groups the tracks handed to a recorder.
type Stream struct {
	mu      sync.Mutex
	tracks  []Track
	stopped bool
}

// NewStream groups tracks; nil tracks are ignored.
func NewStream(tracks ...Track) *Stream {
	s := &Stream{}
	for _, t := range tracks {
		s.Add(t)
	}
	return s
}

// Add attaches a track to the stream. Adding to a stopped stream stops the
// track immediately.
func (s *Stream) Add(t Track) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		_ = t.Stop()
		return
	}
	s.tracks = append(s.tracks, t)
}

// Video returns the first video track, or nil.
func (s *Stream) Video() VideoTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracks {
		if v, ok := t.(VideoTrack); ok {
			return v
		}
	}
	return nil
}

// Audio returns every audio track in acquisition order.
func (s *Stream) Audio() []AudioTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AudioTrack
	for _, t := range s.tracks {
		if a, ok := t.(AudioTrack); ok {
			out = append(out, a)
		}
	}
	return out
}

// Active reports whether the stream still holds live tracks.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped && len(s.tracks) > 0
}

// Stop releases every track.
func (s *Stream) Stop() error {
	s.mu.Lock()
	tracks := s.tracks
	s.tracks = nil
	s.stopped = true
	s.mu.Unlock()

	var errs []error
	for _, t := range tracks {
		if err := t.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
