// Package shortcuts keeps the process-wide table of global keyboard
// shortcuts.
package shortcuts

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Action is what a shortcut asks the UI to do.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// Default combos.
const (
	DefaultStart = "ctrl+shift+r"
	DefaultStop  = "ctrl+shift+s"
)

var ErrInvalidCombo = errors.New("invalid key combination")

var modifierOrder = map[string]int{"ctrl": 0, "alt": 1, "shift": 2, "super": 3}

var modifierAliases = map[string]string{
	"ctrl": "ctrl", "control": "ctrl", "cmdorctrl": "ctrl", "commandorcontrol": "ctrl",
	"alt": "alt", "option": "alt",
	"shift": "shift",
	"super": "super", "cmd": "super", "command": "super", "meta": "super", "win": "super",
}

// Combo is a normalised key combination such as ctrl+shift+r.
type Combo struct {
	Mods []string
	Key  string
}

// ParseCombo accepts forms like "Ctrl+Shift+R" or "CmdOrCtrl+Shift+S".
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.ReplaceAll(s, " ", "")), "+")
	if len(parts) < 2 {
		return Combo{}, fmt.Errorf("%q: %w: need at least one modifier and a key", s, ErrInvalidCombo)
	}
	key := parts[len(parts)-1]
	if !validKey(key) {
		return Combo{}, fmt.Errorf("%q: %w: unknown key %q", s, ErrInvalidCombo, key)
	}

	seen := make(map[string]bool)
	var mods []string
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierAliases[p]
		if !ok {
			return Combo{}, fmt.Errorf("%q: %w: unknown modifier %q", s, ErrInvalidCombo, p)
		}
		if !seen[m] {
			seen[m] = true
			mods = append(mods, m)
		}
	}
	sort.Slice(mods, func(i, j int) bool { return modifierOrder[mods[i]] < modifierOrder[mods[j]] })
	return Combo{Mods: mods, Key: key}, nil
}

func validKey(k string) bool {
	if len(k) == 1 {
		c := k[0]
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	switch k {
	case "space", "return", "enter", "escape", "esc", "tab", "delete",
		"left", "right", "up", "down":
		return true
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(k, "f")); err == nil && k[0] == 'f' {
		return n >= 1 && n <= 12
	}
	return false
}

func (c Combo) String() string {
	return strings.Join(append(append([]string{}, c.Mods...), c.Key), "+")
}

// Hook binds a combo at the OS level. The returned func releases it.
type Hook interface {
	Register(c Combo, fire func()) (unregister func() error, err error)
}

// Binding pairs a combo with its action.
type Binding struct {
	Combo  string `json:"combo"`
	Action Action `json:"action"`
}

type registration struct {
	action     Action
	unregister func() error
}

// Registry owns every OS-level shortcut of the process. Registering a combo
// that is already bound replaces the earlier binding.
type Registry struct {
	hook Hook
	log  hclog.Logger

	mu   sync.Mutex
	regs map[string]registration
}

// NewRegistry returns an empty Registry.
func NewRegistry(hook Hook, log hclog.Logger) *Registry {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Registry{hook: hook, log: log.Named("shortcuts"), regs: make(map[string]registration)}
}

// Register binds combo to action. fire runs on the hook's goroutine.
func (r *Registry) Register(combo string, action Action, fire func(Action)) error {
	c, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	key := c.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.regs[key]; ok {
		if err := prev.unregister(); err != nil {
			r.log.Warn("release previous binding", "combo", key, "error", err)
		}
		delete(r.regs, key)
	}
	unregister, err := r.hook.Register(c, func() { fire(action) })
	if err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}
	r.regs[key] = registration{action: action, unregister: unregister}
	r.log.Debug("shortcut registered", "combo", key, "action", action)
	return nil
}

// RegisterAll binds every binding, continuing past failures.
func (r *Registry) RegisterAll(bindings []Binding, fire func(Action)) error {
	var errs []error
	for _, b := range bindings {
		if err := r.Register(b.Combo, b.Action, fire); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UnregisterAll releases every OS-level hook.
func (r *Registry) UnregisterAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for key, reg := range r.regs {
		if err := reg.unregister(); err != nil {
			errs = append(errs, fmt.Errorf("unregister %s: %w", key, err))
		}
		delete(r.regs, key)
	}
	return errors.Join(errs...)
}

// Bindings lists the active bindings sorted by combo.
func (r *Registry) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Binding, 0, len(r.regs))
	for key, reg := range r.regs {
		out = append(out, Binding{Combo: key, Action: reg.action})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Combo < out[j].Combo })
	return out
}
