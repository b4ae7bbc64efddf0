// Package sources enumerates screens and windows that can be captured.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// ErrStaleSource is returned for an id outside the current snapshot.
var ErrStaleSource = errors.New("capture source is no longer valid; pick a source again")

// Kind distinguishes whole screens from application windows.
type Kind string

const (
	KindScreen Kind = "screen"
	KindWindow Kind = "window"
)

// Target is what a capture backend needs to open a source.
type Target struct {
	Kind     Kind
	Index    int    // screen index
	WindowID string // platform window handle, hex on X11
	Width    int
	Height   int
	X        int
	Y        int
}

// Source is one entry of an enumeration snapshot.
type Source struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind,omitempty"`
	Thumbnail string `json:"thumbnail"`
}

// Candidate is what an Enumerator reports before ids are assigned.
type Candidate struct {
	Name      string
	Target    Target
	Thumbnail []byte
}

// Enumerator lists capture candidates on the host platform.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]Candidate, error)
}

// Provider hands out snapshot-scoped capture sources.
type Provider struct {
	enum Enumerator
	log  hclog.Logger

	mu      sync.Mutex
	gen     int
	current map[string]Target
}

// NewProvider creates a Provider.
func NewProvider(enum Enumerator, log hclog.Logger) *Provider {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Provider{enum: enum, log: log, current: map[string]Target{}}
}

// List enumerates sources and starts a new snapshot. Platform failures yield
// an empty list rather than an error.
func (p *Provider) List(ctx context.Context) []Source {
	candidates, err := p.safeEnumerate(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.current = map[string]Target{}

	if err != nil {
		p.log.Warn("capture source enumeration failed", "error", err)
		return []Source{}
	}

	out := make([]Source, 0, len(candidates))
	for _, c := range candidates {
		id := FormatID(p.gen, c.Target)
		p.current[id] = c.Target
		out = append(out, Source{ID: id, Name: c.Name, Kind: c.Target.Kind, Thumbnail: thumbnail.DataURL(c.Thumbnail)})
	}
	return out
}

func (p *Provider) safeEnumerate(ctx context.Context) (candidates []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enumerator panic: %v", r)
		}
	}()
	return p.enum.Enumerate(ctx)
}

// Resolve returns the target for an id of the current snapshot.
func (p *Provider) Resolve(id string) (Target, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.current[id]
	if !ok {
		return Target{}, ErrStaleSource
	}
	return t, nil
}

// Invalidate drops the current snapshot, e.g. when the picker is dismissed
// without a selection.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = map[string]Target{}
}

// FormatID encodes a target into a self-describing id:
//
//	g<gen>/screen/<index>/<w>x<h>+<x>+<y>
//	g<gen>/window/<id>/<w>x<h>+<x>+<y>
func FormatID(gen int, t Target) string {
	ref := strconv.Itoa(t.Index)
	if t.Kind == KindWindow {
		ref = t.WindowID
	}
	return fmt.Sprintf("g%d/%s/%s/%dx%d+%d+%d", gen, t.Kind, ref, t.Width, t.Height, t.X, t.Y)
}

// ParseID decodes an id produced by FormatID.
func ParseID(id string) (int, Target, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], "g") {
		return 0, Target{}, fmt.Errorf("malformed source id %q", id)
	}
	gen, err := strconv.Atoi(parts[0][1:])
	if err != nil {
		return 0, Target{}, fmt.Errorf("malformed source generation in %q", id)
	}

	t := Target{Kind: Kind(parts[1])}
	switch t.Kind {
	case KindScreen:
		if t.Index, err = strconv.Atoi(parts[2]); err != nil {
			return 0, Target{}, fmt.Errorf("malformed screen index in %q", id)
		}
	case KindWindow:
		if parts[2] == "" {
			return 0, Target{}, fmt.Errorf("missing window id in %q", id)
		}
		t.WindowID = parts[2]
	default:
		return 0, Target{}, fmt.Errorf("unknown source kind %q", parts[1])
	}

	if _, err := fmt.Sscanf(parts[3], "%dx%d+%d+%d", &t.Width, &t.Height, &t.X, &t.Y); err != nil {
		return 0, Target{}, fmt.Errorf("malformed geometry in %q", id)
	}
	return gen, t, nil
}
