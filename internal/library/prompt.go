package library

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// SavePrompter asks where a new recording should be written.
type SavePrompter interface {
	PromptSave(ctx context.Context, defaultName string) (string, error)
}

// NewPrompter returns the prompter for a save_prompt setting: "dialog" shows
// a native file dialog, anything else saves straight into dir.
func NewPrompter(mode, dir string) SavePrompter {
	if mode == "dialog" {
		return &DialogPrompter{Dir: dir}
	}
	return &AutoPrompter{Dir: dir}
}

// AutoPrompter accepts the default name inside Dir without asking.
type AutoPrompter struct {
	Dir string
}

func (p *AutoPrompter) PromptSave(ctx context.Context, defaultName string) (string, error) {
	ext := filepath.Ext(defaultName)
	base := strings.TrimSuffix(defaultName, ext)
	path := filepath.Join(p.Dir, defaultName)
	for n := 2; exists(path); n++ {
		path = filepath.Join(p.Dir, fmt.Sprintf("%s-%d%s", base, n, ext))
	}
	return path, nil
}

// DialogPrompter shows a native save dialog: zenity on Linux, AppleScript on
// macOS.
type DialogPrompter struct {
	Dir string
	// Run executes the dialog and returns its stdout. Tests replace it.
	Run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func (p *DialogPrompter) PromptSave(ctx context.Context, defaultName string) (string, error) {
	run := p.Run
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		}
	}

	name, args := dialogCommand(runtime.GOOS, p.Dir, defaultName)
	out, err := run(ctx, name, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// zenity exits 1 and osascript reports -128 when the user cancels.
			return "", ErrCancelled
		}
		return "", fmt.Errorf("save dialog: %w", err)
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", ErrCancelled
	}
	return path, nil
}

func dialogCommand(goos, dir, defaultName string) (string, []string) {
	if goos == "darwin" {
		script := fmt.Sprintf(
			`POSIX path of (choose file name with prompt "Save Recording" default name %q default location (POSIX file %q))`,
			defaultName, dir)
		return "osascript", []string{"-e", script}
	}
	return "zenity", []string{
		"--file-selection", "--save", "--confirm-overwrite",
		"--title=Save Recording",
		"--filename=" + filepath.Join(dir, defaultName),
		"--file-filter=WebM Video | *.webm",
	}
}
