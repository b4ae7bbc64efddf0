// Package bridge is the boundary between the host daemon and the UI: NDJSON
// commands, responses and events over a Unix socket.
package bridge

import (
	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/shortcuts"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
)

// Request/response commands.
const (
	CmdListSources       = "list_sources"
	CmdInvalidateSources = "invalidate_sources"
	CmdResolveSource     = "resolve_source"
	CmdSaveRecording     = "save_recording"
	CmdLoadLibrary       = "load_library"
	CmdRename            = "rename"
	CmdDelete            = "delete"
	CmdDuplicate         = "duplicate"
	CmdConvert           = "convert"
	CmdStatus            = "status"
	CmdSubscribe         = "subscribe"
)

// Fire-and-forget commands. The host never answers these.
const (
	CmdReveal              = "reveal"
	CmdOpen                = "open"
	CmdMinimize            = "minimize"
	CmdClose               = "close"
	CmdToggleFullscreen    = "toggle_fullscreen"
	CmdRegisterShortcuts   = "register_shortcuts"
	CmdUnregisterShortcuts = "unregister_shortcuts"
)

// Events pushed to subscribers.
const (
	EventShortcut       = "shortcut"
	EventWindow         = "window"
	EventLibraryChanged = "library_changed"
)

var fireAndForget = map[string]bool{
	CmdReveal:              true,
	CmdOpen:                true,
	CmdMinimize:            true,
	CmdClose:               true,
	CmdToggleFullscreen:    true,
	CmdRegisterShortcuts:   true,
	CmdUnregisterShortcuts: true,
}

// IsFireAndForget reports whether cmd gets no response.
func IsFireAndForget(cmd string) bool { return fireAndForget[cmd] }

// Command is sent from the UI to the host.
type Command struct {
	ID        string   `json:"id,omitempty"`
	Cmd       string   `json:"cmd"`
	Path      string   `json:"path,omitempty"`
	SourceID  string   `json:"sourceId,omitempty"`
	NewName   string   `json:"newName,omitempty"`
	Format    string   `json:"format,omitempty"`
	Video     []byte   `json:"video,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"` // data URL or bare base64 JPEG
	Events    []string `json:"events,omitempty"`
}

// CodeStaleSource marks a failure caused by a capture-source id outside the
// host's current snapshot.
const CodeStaleSource = "stale_source"

// Response answers a request/response command. Failures carry a Reason and,
// where the client must tell them apart, a Code.
type Response struct {
	ID         string              `json:"id,omitempty"`
	OK         bool                `json:"ok"`
	Reason     string              `json:"reason,omitempty"`
	Code       string              `json:"code,omitempty"`
	Cancelled  *bool               `json:"cancelled,omitempty"`
	Path       string              `json:"path,omitempty"`
	NewPath    string              `json:"newPath,omitempty"`
	Sources    []sources.Source    `json:"sources,omitempty"`
	Recordings []library.Recording `json:"recordings,omitempty"`
	Status     *Status             `json:"status,omitempty"`
}

// Status describes the host.
type Status struct {
	Version    string              `json:"version"`
	LibraryDir string              `json:"libraryDir"`
	DiskFree   uint64              `json:"diskFree,omitempty"`
	DiskTotal  uint64              `json:"diskTotal,omitempty"`
	Formats    []string            `json:"formats,omitempty"`
	Shortcuts  []shortcuts.Binding `json:"shortcuts,omitempty"`
}

// Event is streamed from the host to subscribed clients.
type Event struct {
	Event  string `json:"event"`
	Action string `json:"action,omitempty"`
}

// BoolPtr returns a pointer to a bool value. Convenience for building responses.
func BoolPtr(b bool) *bool { return &b }
