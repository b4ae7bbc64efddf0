package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/convert"
	"github.com/DeamonDev888/screen-recorder/internal/library"
	"github.com/DeamonDev888/screen-recorder/internal/shortcuts"
	"github.com/DeamonDev888/screen-recorder/internal/sources"
	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// Shell opens files in desktop applications.
type Shell interface {
	Reveal(path string) error
	Open(path string) error
}

// Host implements every bridge command on top of the host-side components.
type Host struct {
	Library   *library.Store
	Converter *convert.Converter
	Sources   *sources.Provider
	Shell     Shell
	Shortcuts *shortcuts.Registry
	Bindings  []shortcuts.Binding
	Version   string
	Log       hclog.Logger

	// Broadcast pushes events to subscribers; usually Server.Broadcast.
	Broadcast func(Event)
}

func (h *Host) log() hclog.Logger {
	if h.Log == nil {
		return hclog.NewNullLogger()
	}
	return h.Log
}

func (h *Host) broadcast(ev Event) {
	if h.Broadcast != nil {
		h.Broadcast(ev)
	}
}

func fail(err error) Response {
	return Response{OK: false, Reason: err.Error()}
}

// Handle implements Handler.
func (h *Host) Handle(ctx context.Context, cmd Command) Response {
	switch cmd.Cmd {
	case CmdListSources:
		return Response{OK: true, Sources: h.Sources.List(ctx)}

	case CmdInvalidateSources:
		h.Sources.Invalidate()
		return Response{OK: true}

	case CmdResolveSource:
		if _, err := h.Sources.Resolve(cmd.SourceID); err != nil {
			resp := fail(err)
			if errors.Is(err, sources.ErrStaleSource) {
				resp.Code = CodeStaleSource
			}
			return resp
		}
		return Response{OK: true}

	case CmdSaveRecording:
		return h.save(ctx, cmd)

	case CmdLoadLibrary:
		recs, err := h.Library.List()
		if err != nil {
			return fail(err)
		}
		return Response{OK: true, Recordings: recs}

	case CmdRename:
		newPath, err := h.Library.Rename(cmd.Path, cmd.NewName)
		if err != nil {
			return fail(err)
		}
		return Response{OK: true, NewPath: newPath}

	case CmdDelete:
		if err := h.Library.Delete(cmd.Path); err != nil {
			return fail(err)
		}
		return Response{OK: true}

	case CmdDuplicate:
		newPath, err := h.Library.Duplicate(cmd.Path)
		if err != nil {
			return fail(err)
		}
		return Response{OK: true, NewPath: newPath}

	case CmdConvert:
		src, err := h.Library.Resolve(cmd.Path)
		if err != nil {
			return fail(err)
		}
		newPath, err := h.Converter.Convert(ctx, src, cmd.Format)
		if err != nil {
			return fail(err)
		}
		return Response{OK: true, NewPath: newPath}

	case CmdStatus:
		return Response{OK: true, Status: h.status()}

	case CmdReveal, CmdOpen:
		h.shell(cmd)
		return Response{OK: true}

	case CmdMinimize, CmdClose, CmdToggleFullscreen:
		h.broadcast(Event{Event: EventWindow, Action: cmd.Cmd})
		return Response{OK: true}

	case CmdRegisterShortcuts:
		if h.Shortcuts == nil {
			return Response{OK: true}
		}
		if err := h.Shortcuts.RegisterAll(h.Bindings, func(a shortcuts.Action) {
			h.broadcast(Event{Event: EventShortcut, Action: string(a)})
		}); err != nil {
			h.log().Warn("global shortcuts unavailable", "error", err)
		}
		return Response{OK: true}

	case CmdUnregisterShortcuts:
		if h.Shortcuts == nil {
			return Response{OK: true}
		}
		if err := h.Shortcuts.UnregisterAll(); err != nil {
			h.log().Warn("unregister shortcuts", "error", err)
		}
		return Response{OK: true}

	default:
		return Response{OK: false, Reason: fmt.Sprintf("unknown command %q", cmd.Cmd)}
	}
}

func (h *Host) save(ctx context.Context, cmd Command) Response {
	if len(cmd.Video) == 0 {
		return Response{OK: false, Reason: "no video data"}
	}
	thumb, err := thumbnail.ParseDataURL(cmd.Thumbnail)
	if err != nil {
		h.log().Warn("ignoring malformed thumbnail", "error", err)
		thumb = nil
	}
	path, err := h.Library.Save(ctx, cmd.Video, thumb)
	if errors.Is(err, library.ErrCancelled) {
		return Response{OK: true, Cancelled: BoolPtr(true)}
	}
	if err != nil {
		return fail(err)
	}
	return Response{OK: true, Path: path}
}

func (h *Host) shell(cmd Command) {
	path, err := h.Library.Resolve(cmd.Path)
	if err != nil {
		h.log().Warn("shell request rejected", "cmd", cmd.Cmd, "path", cmd.Path, "error", err)
		return
	}
	if h.Shell == nil {
		return
	}
	if cmd.Cmd == CmdReveal {
		err = h.Shell.Reveal(path)
	} else {
		err = h.Shell.Open(path)
	}
	if err != nil {
		h.log().Warn("shell request failed", "cmd", cmd.Cmd, "path", path, "error", err)
	}
}

func (h *Host) status() *Status {
	st := &Status{
		Version:    h.Version,
		LibraryDir: h.Library.Dir(),
		Formats:    convert.Formats(),
	}
	if u, err := h.Library.Stats(); err == nil {
		st.DiskFree, st.DiskTotal = u.Free, u.Total
	}
	if h.Shortcuts != nil {
		st.Shortcuts = h.Shortcuts.Bindings()
	}
	return st
}
