package app

import (
	"github.com/DeamonDev888/screen-recorder/internal/bridge"
	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/session"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
)

// HostConnectedMsg is sent when both host connections are established.
type HostConnectedMsg struct {
	Client Host        // for commands
	Events EventSource // for event subscription
}

// HostConnectErrorMsg is sent when the host connection fails.
type HostConnectErrorMsg struct {
	Err error
}

// HostEventMsg wraps a streamed event from the host.
type HostEventMsg struct {
	Event bridge.Event
}

// HostEventErrorMsg is sent when the event stream encounters an error.
type HostEventErrorMsg struct {
	Err error
}

// StatusMsg carries the response to a status command.
type StatusMsg struct {
	Status bridge.Status
}

// SourcesMsg carries a fresh capture-source snapshot.
type SourcesMsg struct {
	Sources []sources.Source
	Err     error
}

// SourceSelectedMsg reports the outcome of opening a source.
type SourceSelectedMsg struct {
	Source sources.Source
	Err    error
}

// RecordingStartedMsg reports the outcome of starting the recorder.
type RecordingStartedMsg struct {
	Done <-chan struct{}
	Err  error
}

// RecorderEndedMsg is sent when the recorder stops on its own.
type RecorderEndedMsg struct {
	Done <-chan struct{}
}

// RecordingSavedMsg reports the outcome of stopping and saving.
type RecordingSavedMsg struct {
	Result session.SaveResult
	Err    error
}

// LibraryLoadedMsg carries the recordings and the saved order.
type LibraryLoadedMsg struct {
	Recordings []library.Recording
	Order      []string
	Err        error
}

// ActionDoneMsg reports the outcome of a library action.
type ActionDoneMsg struct {
	Action  string
	Path    string
	NewPath string
	Err     error
}

// OrderSavedMsg reports the outcome of persisting the library order.
type OrderSavedMsg struct {
	Err error
}

// TickMsg refreshes the recording timer.
type TickMsg struct{}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}
