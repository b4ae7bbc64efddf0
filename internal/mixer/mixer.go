// Package mixer sums PCM audio inputs through independent live gain stages.
//
// All audio is signed 16-bit little-endian interleaved stereo at 48 kHz.
package mixer

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
)

// PCM format shared by every input and the output.
const (
	SampleRate = 48000
	Channels   = 2
	FrameBytes = 2 * Channels
)

// Input names used by the recorder UI.
const (
	SystemAudio = "system"
	Microphone  = "mic"
)

// ErrUnknownInput is returned by SetGain for an input without a gain stage.
var ErrUnknownInput = errors.New("no gain stage for input")

// Input is one audio stream offered to the mixer. A nil Reader means the
// stream carried no audio track.
type Input struct {
	Name   string
	Reader io.Reader
	Gain   float64
}

type stage struct {
	name string
	r    io.Reader
	gain atomic.Uint64
	done bool
	buf  []byte
}

func (s *stage) setGain(g float64) {
	if g < 0 || math.IsNaN(g) {
		g = 0
	}
	s.gain.Store(math.Float64bits(g))
}

func (s *stage) getGain() float64 {
	return math.Float64frombits(s.gain.Load())
}

// Mixer is an io.Reader producing the gained sum of its inputs.
type Mixer struct {
	mu     sync.Mutex
	stages []*stage
	byName map[string]*stage
	mix    []int32
}

// New builds a mixer. Inputs without a reader contribute nothing and get no
// gain stage.
func New(inputs ...Input) *Mixer {
	m := &Mixer{byName: make(map[string]*stage)}
	for _, in := range inputs {
		if in.Reader == nil {
			continue
		}
		s := &stage{name: in.Name, r: in.Reader}
		s.setGain(in.Gain)
		m.stages = append(m.stages, s)
		m.byName[in.Name] = s
	}
	return m
}

// HasAudio reports whether any input has a gain stage.
func (m *Mixer) HasAudio() bool {
	return len(m.stages) > 0
}

// Inputs lists the names of the instantiated gain stages.
func (m *Mixer) Inputs() []string {
	names := make([]string, 0, len(m.stages))
	for _, s := range m.stages {
		names = append(names, s.name)
	}
	return names
}

// SetGain changes an input's gain. It takes effect on the next samples read.
func (m *Mixer) SetGain(name string, gain float64) error {
	s, ok := m.byName[name]
	if !ok {
		return ErrUnknownInput
	}
	s.setGain(gain)
	return nil
}

// Gain returns an input's current gain.
func (m *Mixer) Gain(name string) (float64, bool) {
	s, ok := m.byName[name]
	if !ok {
		return 0, false
	}
	return s.getGain(), true
}

// Read fills p with whole frames of mixed audio. Inputs that have ended
// contribute silence; io.EOF is returned once every input has ended.
func (m *Mixer) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(p) - len(p)%FrameBytes
	if n == 0 {
		return 0, nil
	}
	samples := n / 2

	if cap(m.mix) < samples {
		m.mix = make([]int32, samples)
	}
	mix := m.mix[:samples]
	clear(mix)

	active := 0
	longest := 0
	for _, s := range m.stages {
		if s.done {
			continue
		}
		if cap(s.buf) < n {
			s.buf = make([]byte, n)
		}
		buf := s.buf[:n]
		got, err := io.ReadFull(s.r, buf)
		got -= got % 2
		if err != nil {
			s.done = true
		}
		if got == 0 {
			continue
		}
		active++
		longest = max(longest, got)

		g := s.getGain()
		for i := 0; i < got/2; i++ {
			v := int16(binary.LittleEndian.Uint16(buf[2*i:]))
			mix[i] += int32(math.Round(float64(v) * g))
		}
	}

	if active == 0 {
		return 0, io.EOF
	}

	longest -= longest % FrameBytes
	if longest == 0 {
		longest = FrameBytes
	}
	for i := 0; i < longest/2; i++ {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(clamp(mix[i])))
	}
	return longest, nil
}

func clamp(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
