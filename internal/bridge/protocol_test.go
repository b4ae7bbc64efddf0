package bridge

import (
	"encoding/json"
	"testing"
)

func TestCommandMarshalConvert(t *testing.T) {
	cmd := Command{
		ID:     "a1",
		Cmd:    CmdConvert,
		Path:   "/lib/demo.webm",
		Format: "gif",
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Command
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != "a1" {
		t.Errorf("id = %q, want %q", got.ID, "a1")
	}
	if got.Path != "/lib/demo.webm" {
		t.Errorf("path = %q", got.Path)
	}
	if got.Format != "gif" {
		t.Errorf("format = %q, want %q", got.Format, "gif")
	}
}

func TestCommandOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: CmdMinimize})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	for _, key := range []string{"id", "path", "newName", "format", "video", "thumbnail", "events"} {
		if _, ok := raw[key]; ok {
			t.Errorf("minimize command should omit %s", key)
		}
	}
}

func TestCommandVideoIsBase64(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: CmdSaveRecording, Video: []byte{0x1a, 0x45, 0xdf, 0xa3}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["video"] != "GkXfow==" {
		t.Errorf("video = %v, want base64 of the EBML magic", raw["video"])
	}
}

func TestResponseFailure(t *testing.T) {
	j := `{"id":"x","ok":false,"reason":"demo_converted.mp4: target file already exists"}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.OK {
		t.Error("ok = true, want false")
	}
	if resp.Reason != "demo_converted.mp4: target file already exists" {
		t.Errorf("reason = %q", resp.Reason)
	}
}

func TestResponseCancelledSave(t *testing.T) {
	j := `{"ok":true,"cancelled":true}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Cancelled == nil || !*resp.Cancelled {
		t.Errorf("cancelled = %v, want true", resp.Cancelled)
	}
}

func TestResponseSources(t *testing.T) {
	j := `{"ok":true,"sources":[{"id":"g3/screen/0/1920x1080+0+0","name":"Screen 1 (eDP-1)","thumbnail":"data:image/jpeg;base64,AA=="}]}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("sources len = %d, want 1", len(resp.Sources))
	}
	if resp.Sources[0].Name != "Screen 1 (eDP-1)" {
		t.Errorf("name = %q", resp.Sources[0].Name)
	}
}

func TestEventShortcut(t *testing.T) {
	j := `{"event":"shortcut","action":"stop"}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != EventShortcut {
		t.Errorf("event = %q, want %q", ev.Event, EventShortcut)
	}
	if ev.Action != "stop" {
		t.Errorf("action = %q, want %q", ev.Action, "stop")
	}
}

func TestFireAndForgetCatalog(t *testing.T) {
	for _, cmd := range []string{CmdReveal, CmdOpen, CmdMinimize, CmdClose, CmdToggleFullscreen, CmdRegisterShortcuts, CmdUnregisterShortcuts} {
		if !IsFireAndForget(cmd) {
			t.Errorf("%s should be fire-and-forget", cmd)
		}
	}
	for _, cmd := range []string{CmdListSources, CmdResolveSource, CmdSaveRecording, CmdLoadLibrary, CmdRename, CmdDelete, CmdDuplicate, CmdConvert, CmdStatus, CmdSubscribe} {
		if IsFireAndForget(cmd) {
			t.Errorf("%s should get a response", cmd)
		}
	}
}

func TestBoolPtr(t *testing.T) {
	p := BoolPtr(true)
	if p == nil || !*p {
		t.Error("BoolPtr(true) should return pointer to true")
	}

	p = BoolPtr(false)
	if p == nil || *p {
		t.Error("BoolPtr(false) should return pointer to false")
	}
}
