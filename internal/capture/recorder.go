package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/media"
	"github.com/DeamonDev888/screen-recorder/internal/mixer"
)

// MimeType describes what the recorder produces.
const MimeType = "video/webm; codecs=vp9"

// DefaultChunkSize bounds a single data increment handed to the caller.
const DefaultChunkSize = 64 * 1024

// ErrRecorderBusy is returned when Start is called twice.
var ErrRecorderBusy = errors.New("recorder already started")

// Recorder encodes a stream to VP9/Opus WebM on ffmpeg's stdout. Every read
// from stdout is one data increment, delivered in emission order.
type Recorder struct {
	Tool        *media.Tool
	Log         hclog.Logger
	ChunkSize   int
	StopTimeout time.Duration

	mu       sync.Mutex
	cmd      *exec.Cmd
	done     chan struct{}
	stderr   bytes.Buffer
	stopping bool
	err      error
}

// NewRecorder returns a Recorder that has not started yet.
func NewRecorder(tool *media.Tool, log hclog.Logger) *Recorder {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Recorder{
		Tool:        tool,
		Log:         log,
		ChunkSize:   DefaultChunkSize,
		StopTimeout: 10 * time.Second,
		done:        make(chan struct{}),
	}
}

// Done is closed once the encoder has exited and the last chunk was delivered.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Err reports why the encoder exited on its own, if it did.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Start launches the encoder. audio may be nil for a silent recording.
func (r *Recorder) Start(video VideoTrack, audio io.Reader, onData func([]byte)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return ErrRecorderBusy
	}

	cmd := r.Tool.Command(context.Background(), recordArgs(video.InputArgs(), audio != nil)...)
	cmd.Stderr = &r.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recorder stdout: %w", err)
	}
	var stdin io.WriteCloser
	if audio != nil {
		if stdin, err = cmd.StdinPipe(); err != nil {
			return fmt.Errorf("recorder stdin: %w", err)
		}
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}
	r.cmd = cmd

	if stdin != nil {
		go func() {
			_, _ = io.Copy(stdin, audio)
			_ = stdin.Close()
		}()
	}

	size := r.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	go r.pump(stdout, size, onData)
	r.Log.Debug("recorder started", "pid", cmd.Process.Pid, "audio", audio != nil)
	return nil
}

func (r *Recorder) pump(stdout io.Reader, size int, onData func([]byte)) {
	defer close(r.done)

	buf := make([]byte, size)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onData(chunk)
		}
		if err != nil {
			break
		}
	}

	waitErr := r.cmd.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	if waitErr != nil && !r.stopping {
		r.err = &media.ToolError{Tool: "ffmpeg", Err: waitErr, Stderr: r.stderr.String()}
		r.Log.Warn("recorder exited", "error", r.err)
	}
}

// Stop asks the encoder to finalize the container and waits for the last
// chunk. It is a no-op before Start.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cmd := r.cmd
	if cmd == nil {
		r.mu.Unlock()
		return nil
	}
	r.stopping = true
	r.mu.Unlock()

	if err := interrupt(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.Log.Debug("interrupt failed, killing recorder", "error", err)
		_ = cmd.Process.Kill()
	}

	timeout := r.StopTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-r.done:
	case <-time.After(timeout):
		r.Log.Warn("recorder did not finalize in time, killing", "timeout", timeout)
		_ = cmd.Process.Kill()
		<-r.done
	}
	return nil
}

func interrupt(p *os.Process) error {
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}

func recordArgs(videoInput []string, withAudio bool) []string {
	args := append([]string{}, videoInput...)
	if withAudio {
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(mixer.SampleRate),
			"-ac", strconv.Itoa(mixer.Channels),
			"-i", "pipe:0",
		)
	}
	args = append(args, "-map", "0:v")
	if withAudio {
		args = append(args, "-map", "1:a", "-c:a", "libopus", "-b:a", "128k")
	} else {
		args = append(args, "-an")
	}
	return append(args,
		"-c:v", "libvpx-vp9",
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-row-mt", "1",
		"-b:v", "4M",
		"-pix_fmt", "yuv420p",
		"-f", "webm",
		"-cluster_time_limit", "1000",
		"pipe:1",
	)
}
