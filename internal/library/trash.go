package library

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Trasher moves a file to the desktop trash.
type Trasher interface {
	Trash(path string) error
}

// NewTrasher returns the trash of the running platform.
func NewTrasher() Trasher {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return &DirTrasher{Dir: filepath.Join(home, ".Trash")}
	case "windows":
		return RecycleBin{}
	default:
		data := os.Getenv("XDG_DATA_HOME")
		if data == "" {
			data = filepath.Join(home, ".local", "share")
		}
		return &XDGTrasher{Dir: filepath.Join(data, "Trash")}
	}
}

// XDGTrasher implements the freedesktop.org home trash: the file goes to
// files/ and a .trashinfo record goes to info/ so file managers can restore it.
type XDGTrasher struct {
	Dir string
	Now func() time.Time
}

func (t *XDGTrasher) Trash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	filesDir := filepath.Join(t.Dir, "files")
	infoDir := filepath.Join(t.Dir, "info")
	if err := os.MkdirAll(filesDir, 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(infoDir, 0o700); err != nil {
		return err
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: abs}).EscapedPath(), now().Format("2006-01-02T15:04:05"))

	base := filepath.Base(abs)
	for n := 1; n < 1000; n++ {
		name := base
		if n > 1 {
			name = base + "." + strconv.Itoa(n)
		}
		infoPath := filepath.Join(infoDir, name+".trashinfo")
		f, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return err
		}
		_, werr := f.WriteString(info)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(infoPath)
			return werr
		}
		if err := move(abs, filepath.Join(filesDir, name)); err != nil {
			os.Remove(infoPath)
			return err
		}
		return nil
	}
	return fmt.Errorf("trash: no free name for %s", base)
}

// DirTrasher moves files into a plain trash directory, disambiguating names.
type DirTrasher struct {
	Dir string
}

func (t *DirTrasher) Trash(path string) error {
	if err := os.MkdirAll(t.Dir, 0o700); err != nil {
		return err
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	dst := filepath.Join(t.Dir, base+ext)
	for n := 2; exists(dst); n++ {
		dst = filepath.Join(t.Dir, fmt.Sprintf("%s %d%s", base, n, ext))
	}
	return move(path, dst)
}

// RecycleBin sends files to the Windows recycle bin through PowerShell.
type RecycleBin struct{}

func (RecycleBin) Trash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	script := "Add-Type -AssemblyName Microsoft.VisualBasic; " +
		"[Microsoft.VisualBasic.FileIO.FileSystem]::DeleteFile('" +
		strings.ReplaceAll(abs, "'", "''") +
		"', 'OnlyErrorDialogs', 'SendToRecycleBin')"
	out, err := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("recycle bin: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// move renames src to dst, copying across filesystems when it has to.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var lerr *os.LinkError
	if !errors.As(err, &lerr) || !errors.Is(lerr.Err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
