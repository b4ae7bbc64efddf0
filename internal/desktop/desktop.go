// Package desktop hands files to the platform shell.
package desktop

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Shell opens files and folders in the user's desktop applications.
type Shell struct {
	goos  string
	start func(name string, args ...string) error
}

// New returns a Shell for the running platform.
func New() *Shell {
	return &Shell{goos: runtime.GOOS, start: startDetached}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Reveal shows path selected in the file manager. Linux file managers have
// no portable select flag, so the containing folder is opened instead.
func (s *Shell) Reveal(path string) error {
	name, args := revealCommand(s.goos, path)
	return s.start(name, args...)
}

// Open opens path with its default application.
func (s *Shell) Open(path string) error {
	name, args := openCommand(s.goos, path)
	return s.start(name, args...)
}

func revealCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{"-R", path}
	case "windows":
		return "explorer", []string{"/select," + path}
	default:
		return "xdg-open", []string{filepath.Dir(path)}
	}
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}
