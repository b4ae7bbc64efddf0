package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

type fakeSnap struct {
	img   image.Image
	err   error
	delay time.Duration
}

func (f *fakeSnap) Snapshot(ctx context.Context) (image.Image, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.img, f.err
}

type fakeDecoder struct {
	duration float64
	seekedTo float64
	err      error
}

func (d *fakeDecoder) Duration(ctx context.Context, path string) (float64, error) {
	return d.duration, d.err
}

func (d *fakeDecoder) FrameAt(ctx context.Context, path string, at float64) (image.Image, error) {
	d.seekedTo = at
	return solid(640, 360), nil
}

func TestSeekOffset(t *testing.T) {
	assert.Equal(t, 1.5, SeekOffset(10))
	assert.Equal(t, 1.5, SeekOffset(3.01))
	assert.InDelta(t, 0.6, SeekOffset(3), 1e-9)
	assert.InDelta(t, 0.2, SeekOffset(1), 1e-9)
	assert.Equal(t, 0.0, SeekOffset(0))
}

func TestFit(t *testing.T) {
	w, h := Fit(1920, 1080)
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)

	w, h = Fit(1080, 1920)
	assert.Equal(t, 101, w)
	assert.Equal(t, 180, h)

	w, h = Fit(100, 50)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestEncodeDownscales(t *testing.T) {
	data, err := Encode(solid(1280, 720))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 180, img.Bounds().Dy())
}

func TestFirstOfPrefersLiveFrame(t *testing.T) {
	dec := &fakeDecoder{duration: 10}
	data := FirstOf(context.Background(), nil,
		LiveFrame(&fakeSnap{img: solid(64, 36)}, time.Second),
		DecodedFrame(dec, []byte("media"), time.Second),
	)
	require.NotEmpty(t, data)
	assert.Zero(t, dec.seekedTo, "decoder should not run when the live frame works")
}

func TestFirstOfFallsBackToDecoder(t *testing.T) {
	dec := &fakeDecoder{duration: 2}
	data := FirstOf(context.Background(), nil,
		LiveFrame(nil, time.Second),
		DecodedFrame(dec, []byte("media"), time.Second),
	)
	require.NotEmpty(t, data)
	assert.InDelta(t, 0.4, dec.seekedTo, 1e-9)
}

func TestFirstOfTimesOut(t *testing.T) {
	start := time.Now()
	data := FirstOf(context.Background(), nil,
		LiveFrame(&fakeSnap{img: solid(8, 8), delay: time.Second}, 50*time.Millisecond),
	)
	assert.Nil(t, data)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestFirstOfAllFail(t *testing.T) {
	data := FirstOf(context.Background(), nil,
		LiveFrame(&fakeSnap{err: errors.New("gone")}, time.Second),
		DecodedFrame(&fakeDecoder{err: errors.New("corrupt")}, []byte("x"), time.Second),
		DecodedFrame(&fakeDecoder{duration: 1}, nil, time.Second),
	)
	assert.Nil(t, data)
}

func TestDataURLRoundTrip(t *testing.T) {
	url := DataURL([]byte{0xff, 0xd8, 0xff})
	assert.Contains(t, url, "data:image/jpeg;base64,")

	got, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, got)

	got, err = ParseDataURL("/9j/")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, got)

	got, err = ParseDataURL("")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "", DataURL(nil))

	_, err = ParseDataURL("data:image/jpeg;base64")
	assert.Error(t, err)
}
