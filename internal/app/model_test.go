package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DeamonDev888/screen-recorder/internal/bridge"
	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/mixer"
	"github.com/DeamonDev888/screen-recorder/internal/session"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
)

type fakeHost struct {
	mu        sync.Mutex
	calls     []string
	recs      []library.Recording
	loadErr   error
	saved     [][]byte
	cancelled bool
	// valid holds the ids of the latest enumeration; nil before any listing.
	valid map[string]bool
}

func (h *fakeHost) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *fakeHost) called(call string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (h *fakeHost) ListSources(ctx context.Context) ([]sources.Source, error) {
	h.record("list_sources")
	list := []sources.Source{{ID: "g1/screen/0", Name: "Screen 1"}, {ID: "g1/window/0x2", Name: "Terminal"}}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.valid = map[string]bool{}
	for _, s := range list {
		h.valid[s.ID] = true
	}
	return list, nil
}

func (h *fakeHost) InvalidateSources(ctx context.Context) error {
	h.record("invalidate_sources")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.valid = map[string]bool{}
	return nil
}

func (h *fakeHost) ResolveSource(ctx context.Context, id string) error {
	h.record("resolve_source " + id)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.valid != nil && !h.valid[id] {
		return fmt.Errorf("%s: %w", id, sources.ErrStaleSource)
	}
	return nil
}

func (h *fakeHost) SaveRecording(ctx context.Context, video, thumb []byte) (string, bool, error) {
	h.record("save_recording")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, video)
	if h.cancelled {
		return "", true, nil
	}
	return "/lib/recording-1.webm", false, nil
}

func (h *fakeHost) LoadLibrary(ctx context.Context) ([]library.Recording, error) {
	h.record("load_library")
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]library.Recording(nil), h.recs...), h.loadErr
}

func (h *fakeHost) Rename(ctx context.Context, path, newName string) (string, error) {
	h.record("rename " + path + " " + newName)
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.recs {
		if h.recs[i].Path == path {
			h.recs[i] = library.Recording{Path: "/lib/" + newName, Name: newName}
		}
	}
	return "/lib/" + newName, nil
}

func (h *fakeHost) Delete(ctx context.Context, path string) error {
	h.record("delete " + path)
	return nil
}

func (h *fakeHost) Duplicate(ctx context.Context, path string) (string, error) {
	h.record("duplicate " + path)
	return "", errors.New("a file with that name already exists")
}

func (h *fakeHost) Convert(ctx context.Context, path, format string) (string, error) {
	h.record("convert " + path + " " + format)
	return strings.TrimSuffix(path, ".webm") + "." + format, nil
}

func (h *fakeHost) Status(ctx context.Context) (bridge.Status, error) {
	return bridge.Status{LibraryDir: "/lib", Formats: []string{"gif", "mp4"}}, nil
}

func (h *fakeHost) notify(call string) error {
	h.record(call)
	return nil
}

func (h *fakeHost) Reveal(path string) error   { return h.notify("reveal " + path) }
func (h *fakeHost) Open(path string) error     { return h.notify("open " + path) }
func (h *fakeHost) Minimize() error            { return h.notify("minimize") }
func (h *fakeHost) CloseWindow() error         { return h.notify("close") }
func (h *fakeHost) ToggleFullscreen() error    { return h.notify("toggle_fullscreen") }
func (h *fakeHost) RegisterShortcuts() error   { return h.notify("register_shortcuts") }
func (h *fakeHost) UnregisterShortcuts() error { return h.notify("unregister_shortcuts") }
func (h *fakeHost) Close() error               { return nil }

type fakeSession struct {
	mu       sync.Mutex
	state    session.State
	selected string
	opts     session.Options
	gains    map[string]float64
	selErr   error
	saver    session.Saver
	resolver session.SourceResolver
	done     chan struct{}
	closed   bool
}

func newFakeSession(saver session.Saver, resolver session.SourceResolver) *fakeSession {
	return &fakeSession{saver: saver, resolver: resolver, gains: map[string]float64{}}
}

func (s *fakeSession) State() session.State { return s.state }

func (s *fakeSession) Select(ctx context.Context, id string, opts session.Options) error {
	if s.selErr != nil {
		s.state = session.Idle
		return s.selErr
	}
	if err := s.resolver.ResolveSource(ctx, id); err != nil {
		s.state = session.Idle
		return &session.AcquireError{Input: "video", Err: err}
	}
	s.selected, s.opts, s.state = id, opts, session.SourceSelected
	return nil
}

func (s *fakeSession) Start() error {
	if s.state != session.SourceSelected {
		return session.ErrNoStream
	}
	s.state = session.Recording
	s.done = make(chan struct{})
	return nil
}

func (s *fakeSession) Stop(ctx context.Context) (session.SaveResult, error) {
	if s.state != session.Recording {
		return session.SaveResult{}, session.ErrNotRecording
	}
	s.state = session.Idle
	return s.saver.SaveRecording(ctx, []byte("webm"), nil)
}

func (s *fakeSession) RecorderDone() <-chan struct{} { return s.done }
func (s *fakeSession) Elapsed() time.Duration        { return 3723 * time.Second }

func (s *fakeSession) SetGain(input string, gain float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gains[input] = gain
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type memOrder struct {
	order []string
	err   error
}

func TestMain(m *testing.M) {
	tick = func(time.Duration, func(time.Time) tea.Msg) tea.Cmd {
		return func() tea.Msg { return nil }
	}
	os.Exit(m.Run())
}

func (o *memOrder) LibraryOrder() ([]string, error) { return o.order, nil }

func (o *memOrder) SetLibraryOrder(p []string) error {
	o.order = append([]string(nil), p...)
	return o.err
}

// newTestModel returns a connected model backed by fakes.
func newTestModel(t *testing.T) (Model, *fakeHost, *fakeSession, *memOrder) {
	t.Helper()
	host := &fakeHost{}
	store := &memOrder{}
	var sess *fakeSession
	m := New(Config{
		SocketPath: "/nonexistent.sock",
		Store:      store,
		NewSession: func(saver session.Saver, resolver session.SourceResolver) Session {
			sess = newFakeSession(saver, resolver)
			return sess
		},
	})
	m.width, m.height = 100, 30
	m.client = host
	m.link.set(host)
	m.connected = true
	return m, host, sess, store
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(Model), cmd
}

// run executes cmd and feeds the resulting messages back through Update,
// following the commands they produce.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	return runDepth(m, cmd, 4)
}

func runDepth(m Model, cmd tea.Cmd, depth int) Model {
	if cmd == nil || depth == 0 {
		return m
	}
	switch msg := cmd().(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = runDepth(m, c, depth)
		}
		return m
	default:
		m, next := applyUpdate(m, msg)
		return runDepth(m, next, depth-1)
	}
}

func TestNewModel(t *testing.T) {
	m := New(Config{})
	if m.connected {
		t.Error("new model should not be connected")
	}
	if m.recording {
		t.Error("new model should not be recording")
	}
	if m.view != ViewRecorder {
		t.Error("new model should show the recorder")
	}
	if m.opts.SystemGain != 1 || m.opts.MicGain != 1 {
		t.Errorf("gains = %v/%v, want 1/1", m.opts.SystemGain, m.opts.MicGain)
	}
}

func TestHostConnectError(t *testing.T) {
	m := New(Config{})
	m.width = 80
	m.height = 24

	model, _ := applyUpdate(m, HostConnectErrorMsg{Err: fmt.Errorf("connection refused")})

	if model.connected {
		t.Error("should not be connected after error")
	}
	if !model.reconnecting {
		t.Error("should be reconnecting after connect error")
	}
	if !strings.Contains(model.View(), "Host not running") && !strings.Contains(model.View(), "Reconnecting") {
		t.Error("view should explain the host is missing")
	}
}

func TestStartWithoutSourceShowsError(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	m, cmd := applyUpdate(m, key(" "))
	if m.errorMessage != "Please select a source first!" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	if cmd == nil {
		t.Error("error should schedule its own clearing")
	}
	if m.recording {
		t.Error("must not be recording")
	}
}

func TestPickSelectRecordStopSave(t *testing.T) {
	m, host, sess, _ := newTestModel(t)

	m, cmd := applyUpdate(m, key("s"))
	if !m.picking {
		t.Fatal("s should open the picker")
	}
	m = run(t, m, cmd)
	if len(m.srcList) != 2 {
		t.Fatalf("sources = %d, want 2", len(m.srcList))
	}

	m, _ = applyUpdate(m, key("j"))
	m, cmd = applyUpdate(m, key("enter"))
	m = run(t, m, cmd)
	if m.selected == nil || m.selected.ID != "g1/window/0x2" {
		t.Fatalf("selected = %+v", m.selected)
	}
	if sess.selected != "g1/window/0x2" {
		t.Errorf("session selected %q", sess.selected)
	}

	m, cmd = applyUpdate(m, key(" "))
	m, startCmds := applyUpdate(m, cmd())
	if !m.recording {
		t.Fatal("should be recording")
	}
	if startCmds == nil {
		t.Error("start should schedule the timer")
	}

	m, _ = applyUpdate(m, TickMsg{})
	if got := FormatElapsed(m.elapsed); got != "01:02:03" {
		t.Errorf("timer = %s, want 01:02:03", got)
	}

	m, cmd = applyUpdate(m, key(" "))
	if !m.stopping {
		t.Fatal("space while recording should stop")
	}
	m, _ = applyUpdate(m, cmd())
	if m.recording || m.stopping {
		t.Error("should be idle after save")
	}
	if !host.called("save_recording") {
		t.Error("stop should save through the host")
	}
	if !strings.Contains(m.notice, "recording-1.webm") {
		t.Errorf("notice = %q", m.notice)
	}
}

func TestPickerDismissInvalidatesSnapshot(t *testing.T) {
	m, host, _, _ := newTestModel(t)

	m, cmd := applyUpdate(m, key("s"))
	m = run(t, m, cmd)
	m, cmd = applyUpdate(m, key("esc"))
	if m.picking {
		t.Error("esc should close the picker")
	}
	run(t, m, cmd)
	if !host.called("invalidate_sources") {
		t.Error("dismissing the picker should invalidate the snapshot")
	}
}

func TestAcquireErrorShowsRemediation(t *testing.T) {
	m, _, sess, _ := newTestModel(t)
	sess.selErr = &session.AcquireError{Input: mixer.Microphone, Err: errors.New("no such device")}

	m, _ = applyUpdate(m, SourceSelectedMsg{Source: sources.Source{ID: "x"}, Err: sess.Select(context.Background(), "x", m.opts)})
	if !strings.HasPrefix(m.errorMessage, "Error accessing source: ") {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	if m.remediation == "" {
		t.Error("remediation should be shown")
	}
	if m.selected != nil {
		t.Error("failed selection must leave no source")
	}
}

func TestToggleAudioReselects(t *testing.T) {
	m, _, sess, _ := newTestModel(t)
	m.selected = &sources.Source{ID: "g1/screen/0", Name: "Screen 1"}

	m, cmd := applyUpdate(m, key("m"))
	if !m.opts.Microphone {
		t.Fatal("m should enable the microphone")
	}
	if cmd == nil {
		t.Fatal("toggling with a source selected should reopen it")
	}
	run(t, m, cmd)
	if !sess.opts.Microphone {
		t.Error("reselect should carry the new options")
	}
}

func TestToggleAfterPickerDismissRejectsStaleSource(t *testing.T) {
	m, host, sess, _ := newTestModel(t)

	m, cmd := applyUpdate(m, key("s"))
	m = run(t, m, cmd)
	m, cmd = applyUpdate(m, key("enter"))
	m = run(t, m, cmd)
	if m.selected == nil || sess.selected != "g1/screen/0" {
		t.Fatalf("selected = %v, session = %q", m.selected, sess.selected)
	}

	// Reopening and dismissing the picker retires the ids it listed.
	m, cmd = applyUpdate(m, key("s"))
	m = run(t, m, cmd)
	m, cmd = applyUpdate(m, key("esc"))
	m = run(t, m, cmd)

	m, cmd = applyUpdate(m, key("m"))
	if cmd == nil {
		t.Fatal("toggling with a source selected should reopen it")
	}
	m = run(t, m, cmd)
	if !host.called("resolve_source g1/screen/0") {
		t.Error("reopening should check the id with the host")
	}
	if m.selected != nil {
		t.Error("a stale source must not stay selected")
	}
	if sess.state != session.Idle {
		t.Errorf("session state = %v, want idle", sess.state)
	}
	if !strings.Contains(m.remediation, "source picker") {
		t.Errorf("remediation = %q", m.remediation)
	}
}

func TestToggleIgnoredWhileStarting(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.selected = &sources.Source{ID: "g1/screen/0", Name: "Screen 1"}
	m.starting = true

	m, cmd := applyUpdate(m, key("m"))
	if cmd != nil {
		t.Error("toggling while a recording starts should not reopen the source")
	}
	if m.opts.Microphone {
		t.Error("microphone option should be unchanged while starting")
	}
	m, _ = applyUpdate(m, key("a"))
	if m.opts.SystemAudio {
		t.Error("system audio option should be unchanged while starting")
	}
}

func TestGainSliders(t *testing.T) {
	m, _, sess, _ := newTestModel(t)

	m, _ = applyUpdate(m, key("]"))
	m, _ = applyUpdate(m, key("]"))
	if m.opts.SystemGain < 1.19 || m.opts.SystemGain > 1.21 {
		t.Errorf("system gain = %v, want 1.2", m.opts.SystemGain)
	}
	for i := 0; i < 30; i++ {
		m, _ = applyUpdate(m, key("{"))
	}
	if m.opts.MicGain != 0 {
		t.Errorf("mic gain = %v, want clamped to 0", m.opts.MicGain)
	}
	if sess.gains[mixer.SystemAudio] != m.opts.SystemGain {
		t.Error("gain change should reach the live mixer")
	}
}

func TestShortcutGuards(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.selected = &sources.Source{ID: "g1/screen/0"}

	if cmd := m.handleEvent(bridge.Event{Event: bridge.EventShortcut, Action: "stop"}); cmd != nil {
		t.Error("stop shortcut while idle should do nothing")
	}
	if cmd := m.handleEvent(bridge.Event{Event: bridge.EventShortcut, Action: "start"}); cmd == nil {
		t.Error("start shortcut while idle should start")
	}

	m.starting = false
	m.recording = true
	if cmd := m.handleEvent(bridge.Event{Event: bridge.EventShortcut, Action: "start"}); cmd != nil {
		t.Error("start shortcut while recording should do nothing")
	}
	if cmd := m.handleEvent(bridge.Event{Event: bridge.EventShortcut, Action: "stop"}); cmd == nil {
		t.Error("stop shortcut while recording should stop")
	}
}

func TestRecorderEndingTriggersStop(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.recording = true

	m, cmd := applyUpdate(m, RecorderEndedMsg{})
	if !m.stopping || cmd == nil {
		t.Error("a recorder that ends on its own should be stopped and saved")
	}

	// A second signal while saving is ignored.
	_, cmd = applyUpdate(m, RecorderEndedMsg{})
	if cmd != nil {
		t.Error("duplicate end signal should be ignored")
	}
}

func TestSaveCancelled(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.recording = true

	m, _ = applyUpdate(m, RecordingSavedMsg{Result: session.SaveResult{Cancelled: true}})
	if m.recording {
		t.Error("should be idle")
	}
	if m.notice != "Save cancelled" || m.errorMessage != "" {
		t.Errorf("notice=%q error=%q", m.notice, m.errorMessage)
	}
}

func TestWindowEvents(t *testing.T) {
	m, host, sess, _ := newTestModel(t)

	if cmd := m.handleEvent(bridge.Event{Event: bridge.EventWindow, Action: bridge.CmdMinimize}); cmd == nil {
		t.Error("minimize should suspend")
	}
	m.handleEvent(bridge.Event{Event: bridge.EventWindow, Action: bridge.CmdToggleFullscreen})
	if m.fullscreen {
		t.Error("toggle should leave the alternate screen")
	}

	cmd := m.handleEvent(bridge.Event{Event: bridge.EventWindow, Action: bridge.CmdClose})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("close should quit")
	}
	if !host.called("unregister_shortcuts") {
		t.Error("quitting should unregister shortcuts")
	}
	if !sess.closed {
		t.Error("quitting should release capture")
	}
}

func TestLibraryLoadAppliesOrder(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	m, _ = applyUpdate(m, LibraryLoadedMsg{
		Recordings: []library.Recording{
			{Path: "/lib/c.webm", Name: "c.webm"},
			{Path: "/lib/b.webm", Name: "b.webm"},
			{Path: "/lib/a.webm", Name: "a.webm"},
		},
		Order: []string{"/lib/gone.webm", "/lib/a.webm"},
	})
	got := Paths(m.recordings)
	want := []string{"/lib/a.webm", "/lib/c.webm", "/lib/b.webm"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}
	if m.libPreview == "" {
		t.Error("selected recording should have a preview (placeholder at least)")
	}
}

func TestLibraryErrorIsVisible(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.view = ViewLibrary

	m, _ = applyUpdate(m, LibraryLoadedMsg{Err: errors.New("read library: permission denied")})
	view := m.View()
	if !strings.Contains(view, "Could not read the library") {
		t.Error("listing failure should render an error state")
	}
	if strings.Contains(view, "No recordings yet") {
		t.Error("listing failure must not look like an empty library")
	}
}

func libraryModel(t *testing.T) (Model, *fakeHost, *memOrder) {
	t.Helper()
	m, host, _, store := newTestModel(t)
	m.view = ViewLibrary
	host.recs = []library.Recording{
		{Path: "/lib/b.webm", Name: "b.webm"},
		{Path: "/lib/a.webm", Name: "a.webm"},
	}
	m = run(t, m, m.reload())
	return m, host, store
}

func TestMoveDownPersistsOrder(t *testing.T) {
	m, _, store := libraryModel(t)

	m, cmd := applyUpdate(m, key("J"))
	if m.libIndex != 1 {
		t.Errorf("selection should follow the moved item, got %d", m.libIndex)
	}
	run(t, m, cmd)
	if strings.Join(store.order, ",") != "/lib/a.webm,/lib/b.webm" {
		t.Errorf("stored order = %v", store.order)
	}

	// Moving past the end is a no-op.
	_, cmd = applyUpdate(m, key("J"))
	if cmd != nil {
		t.Error("move past the end should do nothing")
	}
}

func TestRenameFlow(t *testing.T) {
	m, host, store := libraryModel(t)

	m, _ = applyUpdate(m, key("r"))
	if m.mode != modeRename || m.input != "b.webm" {
		t.Fatalf("mode=%v input=%q", m.mode, m.input)
	}
	for i := 0; i < len(".webm"); i++ {
		m, _ = applyUpdate(m, key("backspace"))
	}
	m, _ = applyUpdate(m, key("2.mp4"))
	m, cmd := applyUpdate(m, key("enter"))
	m = run(t, m, cmd)

	if !host.called("rename /lib/b.webm b2.mp4") {
		t.Errorf("calls = %v", host.calls)
	}
	if m.recordings[0].Path != "/lib/b2.mp4" {
		t.Errorf("renamed entry should keep its position: %v", Paths(m.recordings))
	}
	if store.order[0] != "/lib/b2.mp4" {
		t.Errorf("order should follow the rename: %v", store.order)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, host, _ := libraryModel(t)

	m, _ = applyUpdate(m, key("d"))
	m, cmd := applyUpdate(m, key("n"))
	if cmd != nil || m.mode != modeNone {
		t.Error("anything but y should cancel")
	}

	m, _ = applyUpdate(m, key("d"))
	_, cmd = applyUpdate(m, key("y"))
	run(t, m, cmd)
	if !host.called("delete /lib/b.webm") {
		t.Errorf("calls = %v", host.calls)
	}
}

func TestConvertUsesHostFormats(t *testing.T) {
	m, host, _ := libraryModel(t)
	m, _ = applyUpdate(m, StatusMsg{Status: bridge.Status{Formats: []string{"gif", "mp4"}}})

	m, _ = applyUpdate(m, key("v"))
	m, _ = applyUpdate(m, tea.KeyMsg{Type: tea.KeyRight})
	_, cmd := applyUpdate(m, key("enter"))
	run(t, m, cmd)
	if !host.called("convert /lib/b.webm mp4") {
		t.Errorf("calls = %v", host.calls)
	}
}

func TestActionFailureShowsReason(t *testing.T) {
	m, _, _ := libraryModel(t)

	_, cmd := applyUpdate(m, key("c"))
	m = run(t, m, cmd)
	if !strings.Contains(m.errorMessage, "already exists") {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestRevealAndOpenAreFireAndForget(t *testing.T) {
	m, host, _ := libraryModel(t)

	_, cmd := applyUpdate(m, key("e"))
	run(t, m, cmd)
	_, cmd = applyUpdate(m, key("o"))
	run(t, m, cmd)
	if !host.called("reveal /lib/b.webm") || !host.called("open /lib/b.webm") {
		t.Errorf("calls = %v", host.calls)
	}
}

func TestLibraryChangedReloads(t *testing.T) {
	m, host, _, _ := newTestModel(t)
	host.recs = []library.Recording{{Path: "/lib/new.webm", Name: "new.webm"}}

	cmd := m.handleEvent(bridge.Event{Event: bridge.EventLibraryChanged})
	m = run(t, m, cmd)
	if len(m.recordings) != 1 {
		t.Errorf("recordings = %d, want 1", len(m.recordings))
	}
}

func TestTabSwitchesView(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	m, _ = applyUpdate(m, key("tab"))
	if m.view != ViewLibrary {
		t.Error("tab should switch to the library")
	}
	m, _ = applyUpdate(m, key("tab"))
	if m.view != ViewRecorder {
		t.Error("tab again should switch back to the recorder")
	}
}

func TestClearTransientError(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.showError("boom")
	m, _ = applyUpdate(m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Error("transient error should clear")
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61*time.Minute + time.Second, "01:01:01"},
		{25*time.Hour + 1500*time.Millisecond, "25:00:01"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.d); got != c.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestViewRendersWithSize(t *testing.T) {
	m, _, _, _ := newTestModel(t)

	view := m.View()
	if view == "" {
		t.Error("view should not be empty")
	}
	if view == "Initializing..." {
		t.Error("view should not show initializing with size set")
	}
	m.view = ViewLibrary
	if m.View() == "" {
		t.Error("library view should render")
	}
}

func TestViewWithoutSize(t *testing.T) {
	m := New(Config{})
	view := m.View()
	if view != "Initializing..." {
		t.Errorf("view without size = %q, want 'Initializing...'", view)
	}
}
