package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/media"
	"github.com/DeamonDev888/screen-recorder/internal/mixer"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
)

// DefaultFramerate is the capture rate for recordings.
const DefaultFramerate = 30

var errTrackStopped = errors.New("track stopped")

// AudioDevice is an ffmpeg audio input such as a PulseAudio source.
type AudioDevice struct {
	Format string
	Name   string
}

// InputArgs returns the ffmpeg input arguments for the device.
func (d AudioDevice) InputArgs() []string {
	return []string{"-f", d.Format, "-i", d.Name}
}

// DefaultSystemAudio returns the platform's usual loopback source.
func DefaultSystemAudio() AudioDevice {
	switch runtime.GOOS {
	case "darwin":
		return AudioDevice{Format: "avfoundation", Name: ":BlackHole 2ch"}
	case "windows":
		return AudioDevice{Format: "dshow", Name: "audio=Stereo Mix"}
	default:
		return AudioDevice{Format: "pulse", Name: "@DEFAULT_MONITOR@"}
	}
}

// DefaultMicrophone returns the platform's default input device.
func DefaultMicrophone() AudioDevice {
	switch runtime.GOOS {
	case "darwin":
		return AudioDevice{Format: "avfoundation", Name: ":default"}
	case "windows":
		return AudioDevice{Format: "dshow", Name: "audio=Microphone"}
	default:
		return AudioDevice{Format: "pulse", Name: "default"}
	}
}

// Acquirer opens capture tracks with ffmpeg.
type Acquirer struct {
	Tool         *media.Tool
	Display      string
	Framerate    int
	SystemAudio  AudioDevice
	Microphone   AudioDevice
	StartTimeout time.Duration
	Log          hclog.Logger
}

// NewAcquirer returns an Acquirer with platform defaults.
func NewAcquirer(tool *media.Tool, display string, log hclog.Logger) *Acquirer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Acquirer{
		Tool:         tool,
		Display:      display,
		Framerate:    DefaultFramerate,
		SystemAudio:  DefaultSystemAudio(),
		Microphone:   DefaultMicrophone(),
		StartTimeout: 5 * time.Second,
		Log:          log,
	}
}

func (a *Acquirer) startTimeout() time.Duration {
	if a.StartTimeout <= 0 {
		return 5 * time.Second
	}
	return a.StartTimeout
}

// AcquireVideo opens the source behind a capture-source id. The source is
// probed with a single frame so an unavailable source fails here rather than
// when recording starts.
func (a *Acquirer) AcquireVideo(ctx context.Context, sourceID string) (VideoTrack, error) {
	_, target, err := sources.ParseID(sourceID)
	if err != nil {
		return nil, err
	}
	fps := a.Framerate
	if fps <= 0 {
		fps = DefaultFramerate
	}
	v := &ffmpegVideo{
		tool:    a.Tool,
		args:    target.InputArgs(a.Display, fps),
		preview: target.InputArgs(a.Display, sources.PreviewFramerate),
	}

	ctx, cancel := context.WithTimeout(ctx, a.startTimeout())
	defer cancel()
	if _, err := v.Snapshot(ctx); err != nil {
		return nil, fmt.Errorf("open video source: %w", err)
	}
	a.Log.Debug("video track acquired", "source", sourceID)
	return v, nil
}

// AcquireSystemAudio opens the loopback of whatever the system is playing.
func (a *Acquirer) AcquireSystemAudio(ctx context.Context) (AudioTrack, error) {
	return a.startAudio(ctx, mixer.SystemAudio, a.SystemAudio)
}

// AcquireMicrophone opens the microphone.
func (a *Acquirer) AcquireMicrophone(ctx context.Context) (AudioTrack, error) {
	return a.startAudio(ctx, mixer.Microphone, a.Microphone)
}

func (a *Acquirer) startAudio(ctx context.Context, label string, dev AudioDevice) (AudioTrack, error) {
	args := append(dev.InputArgs(),
		"-f", "s16le",
		"-ac", strconv.Itoa(mixer.Channels),
		"-ar", strconv.Itoa(mixer.SampleRate),
		"pipe:1",
	)
	// The process outlives ctx; Stop kills it.
	cmd := a.Tool.Command(context.Background(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s audio: %w", label, err)
	}

	r := bufio.NewReaderSize(stdout, 64*1024)
	ready := make(chan error, 1)
	go func() {
		_, err := r.Peek(mixer.FrameBytes)
		ready <- err
	}()

	fail := func(cause error) (AudioTrack, error) {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		if stderr.Len() > 0 {
			cause = &media.ToolError{Tool: "ffmpeg", Err: cause, Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("open %s audio (%s): %w", label, dev.Name, cause)
	}

	timer := time.NewTimer(a.startTimeout())
	defer timer.Stop()
	select {
	case err := <-ready:
		if err != nil {
			return fail(err)
		}
	case <-timer.C:
		return fail(errors.New("timed out waiting for audio"))
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	a.Log.Debug("audio track acquired", "input", label, "device", dev.Name)
	return &ffmpegAudio{label: label, cmd: cmd, pcm: newLivePCM(r)}, nil
}

type ffmpegVideo struct {
	tool    *media.Tool
	args    []string
	preview []string
	stopped atomic.Bool
}

func (v *ffmpegVideo) Kind() Kind          { return KindVideo }
func (v *ffmpegVideo) InputArgs() []string { return v.args }

func (v *ffmpegVideo) Snapshot(ctx context.Context) (image.Image, error) {
	if v.stopped.Load() {
		return nil, errTrackStopped
	}
	return v.tool.GrabFrame(ctx, v.preview)
}

func (v *ffmpegVideo) Stop() error {
	v.stopped.Store(true)
	return nil
}

type ffmpegAudio struct {
	label string
	cmd   *exec.Cmd
	pcm   *livePCM
	once  sync.Once
}

func (a *ffmpegAudio) Kind() Kind    { return KindAudio }
func (a *ffmpegAudio) Label() string { return a.label }

func (a *ffmpegAudio) Read(p []byte) (int, error) {
	return a.pcm.Read(p)
}

// Stop kills ffmpeg and reaps it only once the pump has stopped reading its
// stdout, so Wait never closes the pipe under a reader.
func (a *ffmpegAudio) Stop() error {
	var err error
	a.once.Do(func() {
		if kerr := a.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = kerr
		}
		a.pcm.Close()
		<-a.pcm.Done()
		_ = a.cmd.Wait()
	})
	return err
}

// livePCM relays a capture device's output. Everything the device produces
// before the first Read is dropped, so a recording starts with current audio
// rather than whatever piled up between selection and start.
type livePCM struct {
	pr      *io.PipeReader
	pw      *io.PipeWriter
	live    atomic.Bool
	dropped atomic.Int64
	done    chan struct{}
}

func newLivePCM(src io.Reader) *livePCM {
	pr, pw := io.Pipe()
	l := &livePCM{pr: pr, pw: pw, done: make(chan struct{})}
	go l.pump(src)
	return l
}

func (l *livePCM) pump(src io.Reader) {
	defer close(l.done)
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if !l.live.Load() {
				l.dropped.Add(int64(n))
			} else if _, werr := l.pw.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			_ = l.pw.CloseWithError(err)
			return
		}
	}
}

func (l *livePCM) Read(p []byte) (int, error) {
	l.live.Store(true)
	return l.pr.Read(p)
}

// Close ends the relay for readers and fails any write the pump is blocked
// in.
func (l *livePCM) Close() {
	_ = l.pw.CloseWithError(errTrackStopped)
}

// Done is closed once the pump has returned.
func (l *livePCM) Done() <-chan struct{} { return l.done }
