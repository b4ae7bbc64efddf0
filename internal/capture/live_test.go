package capture

import (
	"context"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeamonDev888/screen-recorder/internal/media"
)

func TestLivePCMDropsAudioBeforeFirstRead(t *testing.T) {
	src, feed := io.Pipe()
	l := newLivePCM(src)

	_, err := feed.Write([]byte("stale"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return l.dropped.Load() == 5 }, time.Second, time.Millisecond)

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := l.Read(buf)
		got <- string(buf[:n])
	}()
	require.Eventually(t, l.live.Load, time.Second, time.Millisecond)

	_, err = feed.Write([]byte("live"))
	require.NoError(t, err)
	select {
	case s := <-got:
		assert.Equal(t, "live", s)
	case <-time.After(time.Second):
		t.Fatal("read did not return")
	}
	assert.EqualValues(t, 5, l.dropped.Load())
}

func TestLivePCMCloseUnblocksReader(t *testing.T) {
	src, feed := io.Pipe()
	l := newLivePCM(src)

	errs := make(chan error, 1)
	go func() {
		_, err := l.Read(make([]byte, 16))
		errs <- err
	}()
	require.Eventually(t, l.live.Load, time.Second, time.Millisecond)

	l.Close()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, errTrackStopped)
	case <-time.After(time.Second):
		t.Fatal("reader still blocked after Close")
	}

	_ = feed.Close()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("pump did not exit when the source ended")
	}
}

func TestLivePCMPassesSourceEnd(t *testing.T) {
	src, feed := io.Pipe()
	l := newLivePCM(src)

	out := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(l)
		out <- b
	}()
	require.Eventually(t, l.live.Load, time.Second, time.Millisecond)

	_, err := feed.Write([]byte("pcm"))
	require.NoError(t, err)
	_ = feed.Close()

	select {
	case b := <-out:
		assert.Equal(t, "pcm", string(b))
	case <-time.After(time.Second):
		t.Fatal("source end not passed on")
	}
	<-l.Done()
}

func TestAudioStopWhileReading(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	a := NewAcquirer(media.New("", ""), "", nil)
	a.SystemAudio = AudioDevice{Format: "lavfi", Name: "sine=frequency=440"}
	track, err := a.AcquireSystemAudio(context.Background())
	require.NoError(t, err)

	copied := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, track)
		copied <- err
	}()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, track.Stop())
	select {
	case <-copied:
	case <-time.After(2 * time.Second):
		t.Fatal("reader still blocked after Stop")
	}
	assert.NoError(t, track.Stop())
}
