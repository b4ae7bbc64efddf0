package mixer

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm(samples ...int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return buf
}

func samplesOf(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func TestMixSumsWithGain(t *testing.T) {
	m := New(
		Input{Name: SystemAudio, Reader: bytes.NewReader(pcm(100, 200, 300, 400)), Gain: 1},
		Input{Name: Microphone, Reader: bytes.NewReader(pcm(10, 20, 30, 40)), Gain: 0.5},
	)
	require.True(t, m.HasAudio())

	out := make([]byte, 8)
	n, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []int16{105, 210, 315, 420}, samplesOf(out))

	_, err = m.Read(out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMixClampsToInt16(t *testing.T) {
	m := New(
		Input{Name: "a", Reader: bytes.NewReader(pcm(30000, -30000)), Gain: 1},
		Input{Name: "b", Reader: bytes.NewReader(pcm(30000, -30000)), Gain: 1},
	)
	out := make([]byte, 4)
	_, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{32767, -32768}, samplesOf(out))
}

func TestNilReaderGetsNoGainStage(t *testing.T) {
	m := New(
		Input{Name: SystemAudio, Reader: nil, Gain: 1},
		Input{Name: Microphone, Reader: bytes.NewReader(pcm(1, 2)), Gain: 1},
	)
	assert.Equal(t, []string{Microphone}, m.Inputs())
	assert.ErrorIs(t, m.SetGain(SystemAudio, 0.3), ErrUnknownInput)
	_, ok := m.Gain(SystemAudio)
	assert.False(t, ok)
}

func TestNoInputsIsSilentAndValid(t *testing.T) {
	m := New()
	assert.False(t, m.HasAudio())
	n, err := m.Read(make([]byte, 16))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSetGainTakesEffectImmediately(t *testing.T) {
	src := bytes.NewReader(pcm(1000, 1000, 1000, 1000))
	m := New(Input{Name: Microphone, Reader: src, Gain: 1})

	out := make([]byte, 4)
	_, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{1000, 1000}, samplesOf(out))

	require.NoError(t, m.SetGain(Microphone, 0.25))
	_, err = m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{250, 250}, samplesOf(out))

	g, ok := m.Gain(Microphone)
	assert.True(t, ok)
	assert.Equal(t, 0.25, g)
}

func TestNegativeGainIsMuted(t *testing.T) {
	m := New(Input{Name: "a", Reader: bytes.NewReader(pcm(500, 500)), Gain: -2})
	out := make([]byte, 4)
	_, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []int16{0, 0}, samplesOf(out))
}

func TestShorterInputContributesSilence(t *testing.T) {
	m := New(
		Input{Name: "long", Reader: bytes.NewReader(pcm(1, 1, 1, 1)), Gain: 1},
		Input{Name: "short", Reader: bytes.NewReader(pcm(5, 5)), Gain: 1},
	)
	out := make([]byte, 8)
	n, err := m.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []int16{6, 6, 1, 1}, samplesOf(out))
}

func TestReadIgnoresPartialFrames(t *testing.T) {
	m := New(Input{Name: "a", Reader: bytes.NewReader(pcm(1, 2)), Gain: 1})
	n, err := m.Read(make([]byte, 3))
	assert.Zero(t, n)
	assert.NoError(t, err)
}
