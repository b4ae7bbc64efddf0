package shortcuts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHook struct {
	active   map[string]func()
	released []string
	fail     map[string]bool
}

func newFakeHook() *fakeHook {
	return &fakeHook{active: map[string]func(){}, fail: map[string]bool{}}
}

func (h *fakeHook) Register(c Combo, fire func()) (func() error, error) {
	key := c.String()
	if h.fail[key] {
		return nil, errors.New("grab failed")
	}
	h.active[key] = fire
	return func() error {
		delete(h.active, key)
		h.released = append(h.released, key)
		return nil
	}, nil
}

func (h *fakeHook) press(combo string) {
	if fire, ok := h.active[combo]; ok {
		fire()
	}
}

func TestParseCombo(t *testing.T) {
	c, err := ParseCombo("Shift + CmdOrCtrl + R")
	require.NoError(t, err)
	assert.Equal(t, "ctrl+shift+r", c.String())

	c, err = ParseCombo("super+alt+F5")
	require.NoError(t, err)
	assert.Equal(t, "alt+super+f5", c.String())

	for _, bad := range []string{"", "r", "ctrl+", "hyper+r", "ctrl+f13", "ctrl+pagedown", "ctrl+fx"} {
		_, err := ParseCombo(bad)
		assert.ErrorIs(t, err, ErrInvalidCombo, bad)
	}
}

func TestRegisterFiresAction(t *testing.T) {
	hook := newFakeHook()
	r := NewRegistry(hook, nil)

	var got []Action
	fire := func(a Action) { got = append(got, a) }
	require.NoError(t, r.RegisterAll([]Binding{
		{Combo: DefaultStart, Action: ActionStart},
		{Combo: DefaultStop, Action: ActionStop},
	}, fire))

	hook.press("ctrl+shift+r")
	hook.press("ctrl+shift+s")
	assert.Equal(t, []Action{ActionStart, ActionStop}, got)
	assert.Equal(t, []Binding{
		{Combo: "ctrl+shift+r", Action: ActionStart},
		{Combo: "ctrl+shift+s", Action: ActionStop},
	}, r.Bindings())
}

func TestRegisterReplacesSameCombo(t *testing.T) {
	hook := newFakeHook()
	r := NewRegistry(hook, nil)

	var got []Action
	fire := func(a Action) { got = append(got, a) }
	require.NoError(t, r.Register("ctrl+shift+r", ActionStart, fire))
	require.NoError(t, r.Register("Shift+Ctrl+R", ActionStop, fire))

	assert.Equal(t, []string{"ctrl+shift+r"}, hook.released)
	assert.Len(t, r.Bindings(), 1)
	hook.press("ctrl+shift+r")
	assert.Equal(t, []Action{ActionStop}, got)
}

func TestUnregisterAll(t *testing.T) {
	hook := newFakeHook()
	r := NewRegistry(hook, nil)
	fire := func(Action) {}
	require.NoError(t, r.Register(DefaultStart, ActionStart, fire))
	require.NoError(t, r.Register(DefaultStop, ActionStop, fire))

	require.NoError(t, r.UnregisterAll())
	assert.Empty(t, hook.active)
	assert.Empty(t, r.Bindings())
	assert.NoError(t, r.UnregisterAll())
}

func TestRegisterAllContinuesPastFailure(t *testing.T) {
	hook := newFakeHook()
	hook.fail["ctrl+shift+r"] = true
	r := NewRegistry(hook, nil)

	err := r.RegisterAll([]Binding{
		{Combo: DefaultStart, Action: ActionStart},
		{Combo: DefaultStop, Action: ActionStop},
	}, func(Action) {})
	assert.ErrorContains(t, err, "grab failed")
	assert.Equal(t, []Binding{{Combo: "ctrl+shift+s", Action: ActionStop}}, r.Bindings())
}
