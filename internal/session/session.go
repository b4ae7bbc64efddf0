// Package session drives one capture-to-save cycle: select a source, record
// it, stop, save, release.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/capture"
	"github.com/DeamonDev888/screen-recorder/internal/mixer"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// State is a controller state.
type State int

const (
	Idle State = iota
	SourceSelected
	Recording
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SourceSelected:
		return "source_selected"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNoStream         = errors.New("Please select a source first!")
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrNotRecording     = errors.New("not recording")
)

// AcquireError is a failure to open one of the session's capture tracks.
type AcquireError struct {
	Input string // "video", mixer.SystemAudio or mixer.Microphone
	Err   error
}

func (e *AcquireError) Error() string {
	return "Error accessing source: " + e.Err.Error()
}

func (e *AcquireError) Unwrap() error { return e.Err }

// Remediation tells the user what to try next.
func (e *AcquireError) Remediation() string {
	switch e.Input {
	case mixer.SystemAudio:
		return "Check that a loopback device is available (PulseAudio monitor, BlackHole or Stereo Mix), or turn system audio off."
	case mixer.Microphone:
		return "Check that a microphone is connected and capture is allowed, or turn the microphone off."
	}
	if errors.Is(e.Err, sources.ErrStaleSource) {
		return "The source list has changed. Open the source picker and choose again."
	}
	return "Make sure the display is reachable and screen capture is allowed for this terminal."
}

// Acquirer opens capture tracks.
type Acquirer interface {
	AcquireVideo(ctx context.Context, sourceID string) (capture.VideoTrack, error)
	AcquireSystemAudio(ctx context.Context) (capture.AudioTrack, error)
	AcquireMicrophone(ctx context.Context) (capture.AudioTrack, error)
}

// Recorder encodes a stream into time-sliced chunks. A Recorder is used for
// one recording only.
type Recorder interface {
	Start(video capture.VideoTrack, audio io.Reader, onData func([]byte)) error
	Stop() error
	Done() <-chan struct{}
}

// SourceResolver confirms that a capture-source id still belongs to the
// current enumeration. It fails with sources.ErrStaleSource otherwise.
type SourceResolver interface {
	ResolveSource(ctx context.Context, id string) error
}

// ResolverFunc adapts a function to SourceResolver.
type ResolverFunc func(ctx context.Context, id string) error

func (f ResolverFunc) ResolveSource(ctx context.Context, id string) error { return f(ctx, id) }

// SaveResult is the outcome of a save prompt.
type SaveResult struct {
	Path      string
	Cancelled bool
}

// Saver persists a finished recording.
type Saver interface {
	SaveRecording(ctx context.Context, video, thumb []byte) (SaveResult, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, video, thumb []byte) (SaveResult, error)

func (f SaverFunc) SaveRecording(ctx context.Context, video, thumb []byte) (SaveResult, error) {
	return f(ctx, video, thumb)
}

// Options are the audio choices made before selecting a source.
type Options struct {
	SystemAudio bool
	Microphone  bool
	SystemGain  float64
	MicGain     float64
}

// DefaultOptions records video only with unity gains ready for when audio is
// switched on.
func DefaultOptions() Options {
	return Options{SystemGain: 1, MicGain: 1}
}

// Config wires a Controller.
type Config struct {
	Acquirer         Acquirer
	NewRecorder      func() Recorder
	Saver            Saver
	Resolver         SourceResolver
	Decoder          thumbnail.Decoder
	ThumbnailTimeout time.Duration
	Logger           hclog.Logger
	Now              func() time.Time
}

// Controller owns the capture handles of the current session. Nothing else
// sees them; Select, Start, Stop and Close are the only mutators.
type Controller struct {
	cfg Config
	log hclog.Logger

	mu       sync.Mutex
	state    State
	id       string
	sourceID string
	stream   *capture.Stream
	mix      *mixer.Mixer
	rec      Recorder
	started  time.Time
	chunks   ChunkBuffer
}

// New returns an idle Controller.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ThumbnailTimeout <= 0 {
		cfg.ThumbnailTimeout = thumbnail.DefaultTimeout
	}
	return &Controller{cfg: cfg, log: cfg.Logger.Named("session")}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID identifies the current session; empty when idle.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// SourceID is the source the current stream was opened from.
func (c *Controller) SourceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceID
}

// HasAudio reports whether the selected stream carries a mixed audio track.
func (c *Controller) HasAudio() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mix != nil && c.mix.HasAudio()
}

// Select opens the source and the requested audio inputs. On any failure the
// tracks already opened are released and the controller is left Idle.
func (c *Controller) Select(ctx context.Context, sourceID string, opts Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Recording, Stopped:
		return ErrAlreadyRecording
	case SourceSelected:
		c.releaseLocked()
	}

	stream := capture.NewStream()
	fail := func(input string, err error) error {
		if serr := stream.Stop(); serr != nil {
			c.log.Warn("release after failed acquisition", "error", serr)
		}
		c.log.Info("acquisition failed", "input", input, "source", sourceID, "error", err)
		return &AcquireError{Input: input, Err: err}
	}

	if c.cfg.Resolver != nil {
		if err := c.cfg.Resolver.ResolveSource(ctx, sourceID); err != nil {
			return fail("video", err)
		}
	}
	video, err := c.cfg.Acquirer.AcquireVideo(ctx, sourceID)
	if err != nil {
		return fail("video", err)
	}
	stream.Add(video)

	var system, mic capture.AudioTrack
	if opts.SystemAudio {
		if system, err = c.cfg.Acquirer.AcquireSystemAudio(ctx); err != nil {
			return fail(mixer.SystemAudio, err)
		}
		stream.Add(system)
	}
	if opts.Microphone {
		if mic, err = c.cfg.Acquirer.AcquireMicrophone(ctx); err != nil {
			return fail(mixer.Microphone, err)
		}
		stream.Add(mic)
	}

	c.stream = stream
	c.mix = mixer.New(
		mixer.Input{Name: mixer.SystemAudio, Reader: readerOf(system), Gain: opts.SystemGain},
		mixer.Input{Name: mixer.Microphone, Reader: readerOf(mic), Gain: opts.MicGain},
	)
	c.sourceID = sourceID
	c.id = uuid.NewString()
	c.state = SourceSelected
	c.log.Debug("source selected", "session", c.id, "source", sourceID, "inputs", c.mix.Inputs())
	return nil
}

func readerOf(t capture.AudioTrack) io.Reader {
	if t == nil {
		return nil
	}
	return t
}

// Start begins recording the selected stream.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Recording, Stopped:
		return ErrAlreadyRecording
	case Idle:
		return ErrNoStream
	}
	if c.stream == nil || !c.stream.Active() {
		return ErrNoStream
	}

	c.chunks.Reset()
	rec := c.cfg.NewRecorder()
	var audio io.Reader
	if c.mix.HasAudio() {
		audio = c.mix
	}
	if err := rec.Start(c.stream.Video(), audio, c.chunks.Append); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}
	c.rec = rec
	c.started = c.cfg.Now()
	c.state = Recording
	c.log.Info("recording started", "session", c.id)
	return nil
}

// RecorderDone is closed when the current recorder stops producing data,
// whether asked to or not. It is nil when nothing is recording.
func (c *Controller) RecorderDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec == nil || c.state != Recording {
		return nil
	}
	return c.rec.Done()
}

// Elapsed is the time since recording started.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Recording {
		return 0
	}
	return c.cfg.Now().Sub(c.started)
}

// SetGain adjusts a live mixer input. It does nothing when the input has no
// gain stage.
func (c *Controller) SetGain(input string, gain float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mix == nil {
		return
	}
	_ = c.mix.SetGain(input, gain)
}

// Stop finalizes the recording, captures a thumbnail and hands both to the
// Saver exactly once. The stream is released and the controller returns to
// Idle whatever the save outcome.
func (c *Controller) Stop(ctx context.Context) (SaveResult, error) {
	c.mu.Lock()
	if c.state != Recording {
		c.mu.Unlock()
		return SaveResult{}, ErrNotRecording
	}
	c.state = Stopped
	rec, stream, id := c.rec, c.stream, c.id
	c.mu.Unlock()

	// Close may have torn this session down and a new one been selected
	// while the save was in flight.
	defer func() {
		c.mu.Lock()
		if c.id == id {
			c.releaseLocked()
		}
		c.mu.Unlock()
	}()

	if err := rec.Stop(); err != nil {
		c.log.Warn("recorder stop", "session", id, "error", err)
	}
	data := c.chunks.Bytes()
	c.log.Info("recording stopped", "session", id, "chunks", c.chunks.Len(), "bytes", len(data))

	var live thumbnail.Snapshotter
	if v := stream.Video(); v != nil {
		live = v
	}
	strategies := []thumbnail.Strategy{thumbnail.LiveFrame(live, c.cfg.ThumbnailTimeout)}
	if c.cfg.Decoder != nil {
		strategies = append(strategies, thumbnail.DecodedFrame(c.cfg.Decoder, data, c.cfg.ThumbnailTimeout))
	}
	thumb := thumbnail.FirstOf(ctx, c.log, strategies...)

	res, err := c.cfg.Saver.SaveRecording(ctx, data, thumb)
	if err != nil {
		return res, fmt.Errorf("save recording: %w", err)
	}
	if res.Cancelled {
		c.log.Info("save cancelled", "session", id)
	} else {
		c.log.Info("recording saved", "session", id, "path", res.Path)
	}
	return res, nil
}

// Close releases everything without saving.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec != nil && c.state == Recording {
		if err := c.rec.Stop(); err != nil {
			c.log.Warn("recorder stop on close", "error", err)
		}
	}
	return c.releaseLocked()
}

func (c *Controller) releaseLocked() error {
	var err error
	if c.stream != nil {
		err = c.stream.Stop()
	}
	c.stream = nil
	c.mix = nil
	c.rec = nil
	c.id = ""
	c.sourceID = ""
	c.started = time.Time{}
	c.chunks.Reset()
	c.state = Idle
	return err
}
