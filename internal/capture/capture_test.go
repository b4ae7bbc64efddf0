package capture

import (
	"context"
	"errors"
	"image"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeamonDev888/screen-recorder/internal/media"
)

type fakeTrack struct {
	kind  Kind
	stops int
	err   error
}

func (f *fakeTrack) Kind() Kind { return f.kind }
func (f *fakeTrack) Stop() error {
	f.stops++
	return f.err
}

type fakeVideo struct {
	fakeTrack
	args []string
}

func (f *fakeVideo) InputArgs() []string { return f.args }
func (f *fakeVideo) Snapshot(ctx context.Context) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func TestStreamStopsEveryTrack(t *testing.T) {
	v := &fakeVideo{fakeTrack: fakeTrack{kind: KindVideo}}
	a := &fakeTrack{kind: KindAudio, err: errors.New("busy")}
	s := NewStream(v, nil, a)

	assert.True(t, s.Active())
	assert.Same(t, v, s.Video())

	err := s.Stop()
	assert.ErrorContains(t, err, "busy")
	assert.Equal(t, 1, v.stops)
	assert.Equal(t, 1, a.stops)
	assert.False(t, s.Active())

	require.NoError(t, s.Stop())
	assert.Equal(t, 1, v.stops)
}

func TestStreamAddAfterStop(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Stop())

	late := &fakeTrack{kind: KindAudio}
	s.Add(late)
	assert.Equal(t, 1, late.stops)
	assert.Nil(t, s.Video())
}

func TestRecordArgsWithAudio(t *testing.T) {
	args := recordArgs([]string{"-f", "x11grab", "-i", ":0"}, true)
	assert.Equal(t, []string{"-f", "x11grab", "-i", ":0", "-f", "s16le", "-ar", "48000", "-ac", "2", "-i", "pipe:0"}, args[:12])
	assert.Contains(t, args, "libopus")
	assert.Contains(t, args, "libvpx-vp9")
	assert.NotContains(t, args, "-an")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestRecordArgsSilent(t *testing.T) {
	args := recordArgs([]string{"-f", "x11grab", "-i", ":0"}, false)
	assert.Contains(t, args, "-an")
	assert.NotContains(t, args, "pipe:0")
	assert.NotContains(t, args, "libopus")
}

func TestRecorderStopBeforeStart(t *testing.T) {
	r := NewRecorder(media.New("", ""), nil)
	assert.NoError(t, r.Stop())
}

func TestRecorderEmitsChunks(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	video := &fakeVideo{
		fakeTrack: fakeTrack{kind: KindVideo},
		args:      []string{"-re", "-f", "lavfi", "-i", "testsrc=size=64x48:rate=10"},
	}
	r := NewRecorder(media.New("", ""), nil)
	var total int
	chunks := make(chan int, 1024)
	require.NoError(t, r.Start(video, nil, func(b []byte) { chunks <- len(b) }))
	assert.ErrorIs(t, r.Start(video, nil, func([]byte) {}), ErrRecorderBusy)

	time.Sleep(1500 * time.Millisecond)
	require.NoError(t, r.Stop())
	close(chunks)
	for n := range chunks {
		assert.Positive(t, n)
		total += n
	}
	assert.Positive(t, total)
	assert.NoError(t, r.Err())
}
