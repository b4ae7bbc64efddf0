package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/bridge"
	"github.com/DeamonDev888/screen-recorder/internal/convert"
	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/mixer"
	"github.com/DeamonDev888/screen-recorder/internal/session"
	"github.com/DeamonDev888/screen-recorder/internal/shortcuts"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
	"github.com/DeamonDev888/screen-recorder/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// tick schedules a delayed message; tests swap it for an immediate no-op.
var tick = tea.Tick

const (
	callTimeout = 30 * time.Second
	gainStep    = 0.1
	maxGain     = 2.0
)

// Host is the bridge surface the UI drives. *bridge.Client implements it.
type Host interface {
	ListSources(ctx context.Context) ([]sources.Source, error)
	InvalidateSources(ctx context.Context) error
	ResolveSource(ctx context.Context, id string) error
	SaveRecording(ctx context.Context, video, thumb []byte) (string, bool, error)
	LoadLibrary(ctx context.Context) ([]library.Recording, error)
	Rename(ctx context.Context, path, newName string) (string, error)
	Delete(ctx context.Context, path string) error
	Duplicate(ctx context.Context, path string) (string, error)
	Convert(ctx context.Context, path, format string) (string, error)
	Status(ctx context.Context) (bridge.Status, error)
	Reveal(path string) error
	Open(path string) error
	Minimize() error
	CloseWindow() error
	ToggleFullscreen() error
	RegisterShortcuts() error
	UnregisterShortcuts() error
	Close() error
}

// EventSource streams host events. *bridge.Client implements it.
type EventSource interface {
	Subscribe(events ...string) error
	ReadEvent() (bridge.Event, error)
	Close() error
}

// Session is the recording controller. *session.Controller implements it.
type Session interface {
	State() session.State
	Select(ctx context.Context, sourceID string, opts session.Options) error
	Start() error
	Stop(ctx context.Context) (session.SaveResult, error)
	RecorderDone() <-chan struct{}
	Elapsed() time.Duration
	SetGain(input string, gain float64)
	Close() error
}

// OrderStore persists the library order. *db.Store implements it.
type OrderStore interface {
	LibraryOrder() ([]string, error)
	SetLibraryOrder(order []string) error
}

// Config wires a Model.
type Config struct {
	SocketPath string
	MaxMessage int
	// Dial opens the command and event connections. Defaults to two
	// bridge.Connect calls.
	Dial func(socketPath string) (Host, EventSource, error)
	// NewSession builds the recording controller around a saver and a
	// source resolver that both forward to the host.
	NewSession func(saver session.Saver, resolver session.SourceResolver) Session
	Store      OrderStore
	Log        hclog.Logger
}

// View selects the active screen.
type View int

const (
	ViewRecorder View = iota
	ViewLibrary
)

// inputMode is a modal prompt on top of the library view.
type inputMode int

const (
	modeNone inputMode = iota
	modeRename
	modeConvert
	modeConfirmDelete
)

// hostLink is the connection the session's saver writes through. It is
// shared by every copy of the Model.
type hostLink struct {
	mu   sync.Mutex
	host Host
}

func (l *hostLink) get() Host {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.host
}

func (l *hostLink) set(h Host) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.host = h
}

// Model is the root bubbletea model for the screenrec TUI.
type Model struct {
	cfg  Config
	log  hclog.Logger
	link *hostLink

	// Connection state
	client    Host
	events    EventSource
	connected bool
	connError string
	status    bridge.Status

	// Recorder
	session     Session
	opts        session.Options
	picking     bool
	loadingSrc  bool
	srcList     []sources.Source
	srcIndex    int
	srcPreview  string
	selecting   bool
	selected    *sources.Source
	recording   bool
	starting    bool
	stopping    bool
	elapsed     time.Duration
	remediation string

	// Library
	recordings []library.Recording
	libIndex   int
	libPreview string
	libraryErr string
	libLoaded  bool
	mode       inputMode
	input      string
	formats    []string
	formatIdx  int

	// UI state
	view       View
	width      int
	height     int
	fullscreen bool

	// Errors
	errorMessage   string
	errorTransient bool
	notice         string

	// Status
	statusText string

	// Reconnect
	reconnecting     bool
	reconnectAttempt int
}

// New creates a new Model with default state.
func New(cfg Config) Model {
	if cfg.Log == nil {
		cfg.Log = hclog.NewNullLogger()
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = bridge.SocketPath()
	}
	if cfg.Dial == nil {
		opt := bridge.WithMaxMessage(cfg.MaxMessage)
		cfg.Dial = func(socketPath string) (Host, EventSource, error) {
			return dialBridge(socketPath, opt)
		}
	}
	m := Model{
		cfg:        cfg,
		log:        cfg.Log.Named("ui"),
		link:       &hostLink{},
		opts:       session.DefaultOptions(),
		formats:    convert.Formats(),
		statusText: "Connecting to screenrec host...",
		fullscreen: true,
	}
	if cfg.NewSession != nil {
		m.session = cfg.NewSession(session.SaverFunc(m.link.save), session.ResolverFunc(m.link.resolve))
	}
	return m
}

func (l *hostLink) save(ctx context.Context, video, thumb []byte) (session.SaveResult, error) {
	h := l.get()
	if h == nil {
		return session.SaveResult{}, errors.New("not connected to the host")
	}
	path, cancelled, err := h.SaveRecording(ctx, video, thumb)
	if err != nil {
		return session.SaveResult{}, err
	}
	return session.SaveResult{Path: path, Cancelled: cancelled}, nil
}

// resolve checks a source id against the host's latest enumeration.
func (l *hostLink) resolve(ctx context.Context, id string) error {
	h := l.get()
	if h == nil {
		return errors.New("not connected to the host")
	}
	return h.ResolveSource(ctx, id)
}

func dialBridge(socketPath string, opts ...bridge.Option) (Host, EventSource, error) {
	client, err := bridge.Connect(socketPath, opts...)
	if err != nil {
		return nil, nil, err
	}
	events, err := bridge.Connect(socketPath, opts...)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, events, nil
}

// Init returns the initial command: connect to the host.
func (m Model) Init() tea.Cmd {
	return connectCmd(m.cfg)
}

// connectCmd connects to the host with two connections: one for commands,
// one for event subscription.
func connectCmd(cfg Config) tea.Cmd {
	return func() tea.Msg {
		client, events, err := cfg.Dial(cfg.SocketPath)
		if err != nil {
			return HostConnectErrorMsg{Err: err}
		}
		return HostConnectedMsg{Client: client, Events: events}
	}
}

// subscribeCmd subscribes the event connection and starts reading events.
func subscribeCmd(events EventSource) tea.Cmd {
	return func() tea.Msg {
		if err := events.Subscribe(); err != nil {
			return HostEventErrorMsg{Err: err}
		}
		return readEventCmd(events)()
	}
}

// readEventCmd reads the next event from the event connection.
func readEventCmd(events EventSource) tea.Cmd {
	return func() tea.Msg {
		ev, err := events.ReadEvent()
		if err != nil {
			return HostEventErrorMsg{Err: err}
		}
		return HostEventMsg{Event: ev}
	}
}

func statusCmd(client Host) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		st, err := client.Status(ctx)
		if err != nil {
			return HostEventErrorMsg{Err: err}
		}
		return StatusMsg{Status: st}
	}
}

func registerShortcutsCmd(client Host) tea.Cmd {
	return func() tea.Msg {
		_ = client.RegisterShortcuts()
		return nil
	}
}

func listSourcesCmd(client Host) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		srcs, err := client.ListSources(ctx)
		return SourcesMsg{Sources: srcs, Err: err}
	}
}

func invalidateSourcesCmd(client Host) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		_ = client.InvalidateSources(ctx)
		return nil
	}
}

func selectCmd(s Session, src sources.Source, opts session.Options) tea.Cmd {
	return func() tea.Msg {
		err := s.Select(context.Background(), src.ID, opts)
		return SourceSelectedMsg{Source: src, Err: err}
	}
}

func startCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.Start(); err != nil {
			return RecordingStartedMsg{Err: err}
		}
		return RecordingStartedMsg{Done: s.RecorderDone()}
	}
}

// waitRecorderCmd fires when the recorder stops producing data.
func waitRecorderCmd(done <-chan struct{}) tea.Cmd {
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return RecorderEndedMsg{Done: done}
	}
}

func stopCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Stop(context.Background())
		return RecordingSavedMsg{Result: res, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func loadLibraryCmd(client Host, store OrderStore) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		recs, err := client.LoadLibrary(ctx)
		if err != nil {
			return LibraryLoadedMsg{Err: err}
		}
		var order []string
		if store != nil {
			order, _ = store.LibraryOrder() // an unreadable order falls back to natural order
		}
		return LibraryLoadedMsg{Recordings: recs, Order: order}
	}
}

func saveOrderCmd(store OrderStore, order []string) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return OrderSavedMsg{Err: store.SetLibraryOrder(order)}
	}
}

func renameCmd(client Host, path, newName string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		newPath, err := client.Rename(ctx, path, newName)
		return ActionDoneMsg{Action: "rename", Path: path, NewPath: newPath, Err: err}
	}
}

func deleteCmd(client Host, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return ActionDoneMsg{Action: "delete", Path: path, Err: client.Delete(ctx, path)}
	}
}

func duplicateCmd(client Host, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		newPath, err := client.Duplicate(ctx, path)
		return ActionDoneMsg{Action: "duplicate", Path: path, NewPath: newPath, Err: err}
	}
}

// convertCmd has no deadline: a conversion runs to completion once started.
func convertCmd(client Host, path, format string) tea.Cmd {
	return func() tea.Msg {
		newPath, err := client.Convert(context.Background(), path, format)
		return ActionDoneMsg{Action: "convert", Path: path, NewPath: newPath, Err: err}
	}
}

func notifyCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		_ = fn()
		return nil
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	return tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case HostConnectedMsg:
		m.client = msg.Client
		m.events = msg.Events
		m.link.set(msg.Client)
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		return m, tea.Batch(
			subscribeCmd(m.events),
			statusCmd(m.client),
			registerShortcutsCmd(m.client),
			loadLibraryCmd(m.client, m.cfg.Store),
		)

	case HostConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Host not running. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case StatusMsg:
		m.status = msg.Status
		if len(msg.Status.Formats) > 0 {
			m.formats = msg.Status.Formats
		}
		return m, nil

	case HostEventMsg:
		cmd := m.handleEvent(msg.Event)
		// Continue reading events on the event connection
		return m, tea.Batch(cmd, readEventCmd(m.events))

	case HostEventErrorMsg:
		m.disconnect()
		m.connError = msg.Err.Error()
		m.statusText = "Disconnected. Reconnecting..."
		m.reconnecting = true
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.cfg)

	case SourcesMsg:
		m.loadingSrc = false
		if !m.picking {
			return m, nil
		}
		if msg.Err != nil {
			m.picking = false
			return m, m.showError(msg.Err.Error())
		}
		m.srcList = msg.Sources
		m.srcIndex = 0
		m.refreshSourcePreview()
		return m, nil

	case SourceSelectedMsg:
		m.selecting = false
		if msg.Err != nil {
			m.selected = nil
			m.remediation = ""
			var acq *session.AcquireError
			if errors.As(msg.Err, &acq) {
				m.remediation = acq.Remediation()
			}
			return m, m.showError(msg.Err.Error())
		}
		src := msg.Source
		m.selected = &src
		m.remediation = ""
		m.statusText = "Source: " + src.Name
		return m, nil

	case RecordingStartedMsg:
		m.starting = false
		if msg.Err != nil {
			return m, m.showError(msg.Err.Error())
		}
		m.recording = true
		m.elapsed = 0
		m.statusText = "Recording"
		return m, tea.Batch(tickCmd(), waitRecorderCmd(msg.Done))

	case RecorderEndedMsg:
		if !m.recording || m.stopping {
			return m, nil
		}
		m.log.Warn("recorder ended on its own")
		m.stopping = true
		m.statusText = "Recorder stopped. Saving..."
		return m, stopCmd(m.session)

	case RecordingSavedMsg:
		m.recording = false
		m.stopping = false
		m.elapsed = 0
		m.selected = nil
		m.statusText = "Idle"
		switch {
		case msg.Err != nil:
			return m, tea.Batch(m.showError(msg.Err.Error()), m.reload())
		case msg.Result.Cancelled:
			return m, m.showNotice("Save cancelled")
		default:
			return m, tea.Batch(m.showNotice("Saved "+filepath.Base(msg.Result.Path)), m.reload())
		}

	case TickMsg:
		if !m.recording || m.session == nil {
			return m, nil
		}
		m.elapsed = m.session.Elapsed()
		return m, tickCmd()

	case LibraryLoadedMsg:
		m.libLoaded = true
		if msg.Err != nil {
			m.libraryErr = msg.Err.Error()
			m.recordings = nil
			m.refreshLibraryPreview()
			return m, nil
		}
		m.libraryErr = ""
		m.recordings = ApplyOrder(msg.Recordings, msg.Order)
		if m.libIndex >= len(m.recordings) {
			m.libIndex = max(0, len(m.recordings)-1)
		}
		m.refreshLibraryPreview()
		return m, nil

	case ActionDoneMsg:
		return m.handleActionDone(msg)

	case OrderSavedMsg:
		if msg.Err != nil {
			m.log.Warn("save library order", "error", msg.Err)
			return m, m.showError("Could not save library order: " + msg.Err.Error())
		}
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		m.notice = ""
		return m, nil
	}

	return m, nil
}

func (m *Model) disconnect() {
	m.connected = false
	m.link.set(nil)
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	if m.events != nil {
		m.events.Close()
		m.events = nil
	}
}

func (m *Model) showError(msg string) tea.Cmd {
	m.errorMessage = msg
	m.errorTransient = true
	m.notice = ""
	return clearTransientErrorCmd()
}

func (m *Model) showNotice(msg string) tea.Cmd {
	m.notice = msg
	return clearTransientErrorCmd()
}

func (m *Model) reload() tea.Cmd {
	if !m.connected || m.client == nil {
		return nil
	}
	return loadLibraryCmd(m.client, m.cfg.Store)
}

func (m Model) handleActionDone(msg ActionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.showError(fmt.Sprintf("%s %s: %v", msg.Action, filepath.Base(msg.Path), msg.Err))
	}
	var cmds []tea.Cmd
	switch msg.Action {
	case "rename":
		// Keep the renamed recording where the user put it.
		for i := range m.recordings {
			if m.recordings[i].Path == msg.Path {
				m.recordings[i].Path = msg.NewPath
				m.recordings[i].Name = filepath.Base(msg.NewPath)
				cmds = append(cmds, saveOrderCmd(m.cfg.Store, Paths(m.recordings)))
				break
			}
		}
		cmds = append(cmds, m.showNotice("Renamed to "+filepath.Base(msg.NewPath)))
	case "delete":
		cmds = append(cmds, m.showNotice("Moved "+filepath.Base(msg.Path)+" to trash"))
	case "duplicate":
		cmds = append(cmds, m.showNotice("Created "+filepath.Base(msg.NewPath)))
	case "convert":
		cmds = append(cmds, m.showNotice("Converted to "+filepath.Base(msg.NewPath)))
	}
	cmds = append(cmds, m.reload())
	return m, tea.Batch(cmds...)
}

// handleEvent processes a host event and returns any resulting command.
func (m *Model) handleEvent(ev bridge.Event) tea.Cmd {
	switch ev.Event {
	case bridge.EventShortcut:
		switch shortcuts.Action(ev.Action) {
		case shortcuts.ActionStart:
			if !m.recording {
				return m.startRecording()
			}
		case shortcuts.ActionStop:
			if m.recording {
				return m.stopRecording()
			}
		}

	case bridge.EventWindow:
		switch ev.Action {
		case bridge.CmdClose:
			return m.quit()
		case bridge.CmdMinimize:
			return tea.Suspend
		case bridge.CmdToggleFullscreen:
			m.fullscreen = !m.fullscreen
			if m.fullscreen {
				return tea.EnterAltScreen
			}
			return tea.ExitAltScreen
		}

	case bridge.EventLibraryChanged:
		return m.reload()
	}

	return nil
}

func (m *Model) startRecording() tea.Cmd {
	if m.session == nil {
		return m.showError("recording is not available")
	}
	if m.recording || m.starting || m.stopping {
		return nil
	}
	if m.selected == nil {
		return m.showError(session.ErrNoStream.Error())
	}
	m.starting = true
	return startCmd(m.session)
}

func (m *Model) stopRecording() tea.Cmd {
	if !m.recording || m.stopping {
		return nil
	}
	m.stopping = true
	m.statusText = "Saving..."
	return stopCmd(m.session)
}

// quit releases shortcuts and capture handles, then exits.
func (m *Model) quit() tea.Cmd {
	if m.client != nil {
		_ = m.client.UnregisterShortcuts()
		m.client.Close()
	}
	if m.events != nil {
		m.events.Close()
	}
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			m.log.Warn("release capture on quit", "error", err)
		}
	}
	return tea.Quit
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m, m.quit()
	}
	if m.mode != modeNone {
		return m.handleInput(msg)
	}
	if m.picking {
		return m.handlePicker(key)
	}

	switch key {
	case KeyQuit:
		if m.connected {
			// The host echoes a close event to every window.
			_ = m.client.CloseWindow()
		}
		return m, m.quit()

	case KeyTab:
		if m.view == ViewRecorder {
			m.view = ViewLibrary
		} else {
			m.view = ViewRecorder
		}
		return m, nil

	case KeyMinimize:
		if m.connected {
			return m, notifyCmd(m.client.Minimize)
		}
		return m, tea.Suspend

	case KeyFullscreen:
		if m.connected {
			return m, notifyCmd(m.client.ToggleFullscreen)
		}
		return m, nil

	case KeyReload:
		return m, m.reload()
	}

	if m.view == ViewRecorder {
		return m.handleRecorderKey(key)
	}
	return m.handleLibraryKey(key)
}

func (m Model) handleRecorderKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeySpace:
		if m.recording {
			return m, m.stopRecording()
		}
		return m, m.startRecording()

	case KeyPickSource:
		if !m.connected || m.recording || m.stopping {
			return m, nil
		}
		m.picking = true
		m.loadingSrc = true
		m.srcList = nil
		m.srcPreview = ""
		return m, listSourcesCmd(m.client)

	case KeyToggleSys, KeyToggleMic:
		if m.recording || m.starting || m.stopping || m.selecting {
			return m, nil
		}
		if key == KeyToggleSys {
			m.opts.SystemAudio = !m.opts.SystemAudio
		} else {
			m.opts.Microphone = !m.opts.Microphone
		}
		// Audio inputs are opened with the source; reopen it.
		if m.selected != nil && m.session != nil {
			m.selecting = true
			return m, selectCmd(m.session, *m.selected, m.opts)
		}
		return m, nil

	case KeySysGainDown, KeySysGainUp:
		delta := gainStep
		if key == KeySysGainDown {
			delta = -gainStep
		}
		m.opts.SystemGain = clampGain(m.opts.SystemGain + delta)
		if m.session != nil {
			m.session.SetGain(mixer.SystemAudio, m.opts.SystemGain)
		}
		return m, nil

	case KeyMicGainDown, KeyMicGainUp:
		delta := gainStep
		if key == KeyMicGainDown {
			delta = -gainStep
		}
		m.opts.MicGain = clampGain(m.opts.MicGain + delta)
		if m.session != nil {
			m.session.SetGain(mixer.Microphone, m.opts.MicGain)
		}
		return m, nil
	}
	return m, nil
}

func clampGain(g float64) float64 {
	// Round to the slider step so repeated presses land on exact values.
	g = float64(int(g/gainStep+0.5)) * gainStep
	if g < 0 {
		return 0
	}
	if g > maxGain {
		return maxGain
	}
	return g
}

func (m Model) handlePicker(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeyEsc, KeyQuit:
		m.picking = false
		m.srcList = nil
		m.srcPreview = ""
		if m.connected {
			return m, invalidateSourcesCmd(m.client)
		}
		return m, nil

	case KeyJ, KeyDown:
		if m.srcIndex < len(m.srcList)-1 {
			m.srcIndex++
			m.refreshSourcePreview()
		}
		return m, nil

	case KeyK, KeyUp:
		if m.srcIndex > 0 {
			m.srcIndex--
			m.refreshSourcePreview()
		}
		return m, nil

	case KeyEnter:
		if m.srcIndex >= len(m.srcList) || m.session == nil {
			return m, nil
		}
		src := m.srcList[m.srcIndex]
		m.picking = false
		m.srcList = nil
		m.srcPreview = ""
		m.selecting = true
		m.statusText = "Opening " + src.Name + "..."
		return m, selectCmd(m.session, src, m.opts)
	}
	return m, nil
}

func (m Model) current() (library.Recording, bool) {
	if m.libIndex < 0 || m.libIndex >= len(m.recordings) {
		return library.Recording{}, false
	}
	return m.recordings[m.libIndex], true
}

func (m Model) handleLibraryKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeyJ, KeyDown:
		if m.libIndex < len(m.recordings)-1 {
			m.libIndex++
			m.refreshLibraryPreview()
		}
		return m, nil

	case KeyK, KeyUp:
		if m.libIndex > 0 {
			m.libIndex--
			m.refreshLibraryPreview()
		}
		return m, nil

	case KeyMoveUp, KeyMoveDown:
		delta := 1
		if key == KeyMoveUp {
			delta = -1
		}
		if !move(m.recordings, m.libIndex, delta) {
			return m, nil
		}
		m.libIndex += delta
		return m, saveOrderCmd(m.cfg.Store, Paths(m.recordings))
	}

	rec, ok := m.current()
	if !ok || !m.connected {
		return m, nil
	}
	switch key {
	case KeyEnter, KeyOpen:
		return m, notifyCmd(func() error { return m.client.Open(rec.Path) })

	case KeyReveal:
		return m, notifyCmd(func() error { return m.client.Reveal(rec.Path) })

	case KeyDuplicate:
		return m, duplicateCmd(m.client, rec.Path)

	case KeyDelete:
		m.mode = modeConfirmDelete
		return m, nil

	case KeyRename:
		m.mode = modeRename
		m.input = rec.Name
		return m, nil

	case KeyConvert:
		m.mode = modeConvert
		m.formatIdx = 0
		return m, nil
	}
	return m, nil
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	rec, ok := m.current()
	if key == KeyEsc || !ok || !m.connected {
		m.mode = modeNone
		m.input = ""
		return m, nil
	}

	switch m.mode {
	case modeConfirmDelete:
		m.mode = modeNone
		if key == KeyConfirmYes {
			return m, deleteCmd(m.client, rec.Path)
		}
		return m, nil

	case modeConvert:
		switch key {
		case KeyLeft, KeyK:
			m.formatIdx = (m.formatIdx + len(m.formats) - 1) % len(m.formats)
		case KeyRight, KeyJ, KeyTab:
			m.formatIdx = (m.formatIdx + 1) % len(m.formats)
		case KeyEnter:
			m.mode = modeNone
			format := m.formats[m.formatIdx]
			return m, tea.Batch(
				m.showNotice("Converting "+rec.Name+" to "+format+"..."),
				convertCmd(m.client, rec.Path, format),
			)
		}
		return m, nil

	case modeRename:
		switch msg.Type {
		case tea.KeyEnter:
			name := m.input
			m.mode = modeNone
			m.input = ""
			if name == "" || name == rec.Name {
				return m, nil
			}
			return m, renameCmd(m.client, rec.Path, name)
		case tea.KeyBackspace:
			if r := []rune(m.input); len(r) > 0 {
				m.input = string(r[:len(r)-1])
			}
		case tea.KeySpace:
			m.input += " "
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) refreshLibraryPreview() {
	rec, ok := m.current()
	if !ok {
		m.libPreview = ""
		return
	}
	m.libPreview = ui.Thumbnail(rec.Thumbnail, previewWidth, previewHeight)
}

func (m *Model) refreshSourcePreview() {
	if m.srcIndex >= len(m.srcList) {
		m.srcPreview = ""
		return
	}
	m.srcPreview = ui.Thumbnail(m.srcList[m.srcIndex].Thumbnail, previewWidth, previewHeight)
}
