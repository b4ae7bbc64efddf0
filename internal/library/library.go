// Package library manages the directory of finished recordings and their
// .jpg sidecar thumbnails.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// SidecarExt is the extension of a recording's thumbnail file.
const SidecarExt = ".jpg"

// VideoExts are the extensions recognised as recordings.
var VideoExts = []string{".webm", ".mp4", ".mkv", ".mov", ".avi", ".gif"}

var (
	ErrNotFound         = errors.New("file not found")
	ErrCollision        = errors.New("a file with that name already exists")
	ErrInvalidExtension = errors.New("name must end in a video extension (" + strings.Join(VideoExts, ", ") + ")")
	ErrInvalidName      = errors.New("name must be a plain file name")
	ErrOutsideLibrary   = errors.New("path is outside the library")
	ErrCancelled        = errors.New("save cancelled")
)

// Recording is one video file in the library.
type Recording struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	Thumbnail string    `json:"thumbnail,omitempty"` // data URL; empty when no sidecar
}

// IsVideo reports whether name has a recognised video extension.
func IsVideo(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range VideoExts {
		if ext == v {
			return true
		}
	}
	return false
}

// SidecarPath returns the thumbnail path belonging to a video path.
func SidecarPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + SidecarExt
}

// Store is the library directory. Mutating operations take per-path locks
// shared with anything else handed the same Locks.
type Store struct {
	dir      string
	log      hclog.Logger
	trash    Trasher
	prompter SavePrompter
	locks    *Locks
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

func WithTrasher(t Trasher) Option       { return func(s *Store) { s.trash = t } }
func WithPrompter(p SavePrompter) Option { return func(s *Store) { s.prompter = p } }
func WithLocks(l *Locks) Option          { return func(s *Store) { s.locks = l } }
func WithLogger(l hclog.Logger) Option   { return func(s *Store) { s.log = l } }

// Open creates the library directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("library dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	s := &Store{
		dir:   abs,
		log:   hclog.NewNullLogger(),
		trash: NewTrasher(),
		locks: NewLocks(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.prompter == nil {
		s.prompter = &AutoPrompter{Dir: abs}
	}
	s.log = s.log.Named("library")
	return s, nil
}

// Dir is the absolute library directory.
func (s *Store) Dir() string { return s.dir }

// Locks returns the per-path locks used by the store.
func (s *Store) Locks() *Locks { return s.locks }

// Resolve cleans path and checks that it names a file directly inside the
// library directory. Relative paths are taken relative to the library.
func (s *Store) Resolve(path string) (string, error) {
	if path == "" {
		return "", ErrNotFound
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	path = filepath.Clean(path)
	if filepath.Dir(path) != s.dir {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideLibrary)
	}
	return path, nil
}

// List returns the recordings sorted by file name, descending. A file that
// disappears between the directory read and its stat is skipped; failing to
// read the directory itself is an error.
func (s *Store) List() ([]Recording, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}

	recs := make([]Recording, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsVideo(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			s.log.Debug("skipping entry", "name", e.Name(), "error", err)
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		recs = append(recs, Recording{
			Path:      path,
			Name:      e.Name(),
			Size:      info.Size(),
			Modified:  info.ModTime(),
			Thumbnail: s.loadThumbnail(path),
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name > recs[j].Name })
	return recs, nil
}

func (s *Store) loadThumbnail(videoPath string) string {
	data, err := os.ReadFile(SidecarPath(videoPath))
	if err != nil || len(data) == 0 {
		return ""
	}
	return thumbnail.DataURL(data)
}

// Rename renames a recording within the library, together with its sidecar.
// A sidecar shared with a sibling recording is copied instead.
func (s *Store) Rename(path, newName string) (string, error) {
	src, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	if newName == "" || newName != filepath.Base(newName) || newName == "." || newName == ".." {
		return "", ErrInvalidName
	}
	if !IsVideo(newName) {
		return "", ErrInvalidExtension
	}
	dst := filepath.Join(s.dir, newName)
	if dst == src {
		return dst, nil
	}

	unlock := s.locks.Lock(src, dst)
	defer unlock()

	if _, err := os.Stat(src); err != nil {
		return "", notFound(src, err)
	}
	if exists(dst) {
		return "", fmt.Errorf("%s: %w", newName, ErrCollision)
	}
	srcThumb, dstThumb := SidecarPath(src), SidecarPath(dst)
	hasThumb := exists(srcThumb)
	if hasThumb && exists(dstThumb) {
		return "", fmt.Errorf("%s: %w", filepath.Base(dstThumb), ErrCollision)
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	switch {
	case !hasThumb:
	case sidecarShared(src):
		if err := copyFile(srcThumb, dstThumb); err != nil {
			s.log.Warn("copy shared thumbnail", "path", srcThumb, "error", err)
		}
	default:
		if err := os.Rename(srcThumb, dstThumb); err != nil {
			s.log.Warn("rename thumbnail", "path", srcThumb, "error", err)
		}
	}
	s.log.Info("renamed", "from", src, "to", dst)
	return dst, nil
}

// DuplicateName returns the first free "<base> - Copy<ext>" or
// "<base> - Copy (N)<ext>" sibling of path, N starting at 2.
func DuplicateName(path string, taken func(string) bool) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)

	candidate := filepath.Join(dir, base+" - Copy"+ext)
	for n := 2; taken(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s - Copy (%d)%s", base, n, ext))
	}
	return candidate
}

// Duplicate copies a recording and its sidecar to a disambiguated sibling.
func (s *Store) Duplicate(path string) (string, error) {
	src, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	unlock := s.locks.Lock(src)
	defer unlock()

	if _, err := os.Stat(src); err != nil {
		return "", notFound(src, err)
	}
	taken := func(p string) bool { return exists(p) || exists(SidecarPath(p)) }

	for attempt := 0; attempt < 8; attempt++ {
		dst := DuplicateName(src, taken)
		err := copyFile(src, dst)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("duplicate: %w", err)
		}
		if srcThumb := SidecarPath(src); exists(srcThumb) {
			if err := copyFile(srcThumb, SidecarPath(dst)); err != nil {
				s.log.Warn("copy thumbnail", "path", srcThumb, "error", err)
			}
		}
		s.log.Info("duplicated", "from", src, "to", dst)
		return dst, nil
	}
	return "", fmt.Errorf("duplicate %s: %w", filepath.Base(src), ErrCollision)
}

// Delete moves a recording and its sidecar to the trash. A sidecar shared
// with a sibling recording stays.
func (s *Store) Delete(path string) error {
	src, err := s.Resolve(path)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(src)
	defer unlock()

	if _, err := os.Stat(src); err != nil {
		return notFound(src, err)
	}
	if err := s.trash.Trash(src); err != nil {
		return fmt.Errorf("move to trash: %w", err)
	}
	if thumb := SidecarPath(src); exists(thumb) && !sidecarShared(src) {
		if err := s.trash.Trash(thumb); err != nil {
			s.log.Warn("trash thumbnail", "path", thumb, "error", err)
		}
	}
	s.log.Info("moved to trash", "path", src)
	return nil
}

// sidecarShared reports whether another recording with the same base name,
// such as a conversion, still uses path's thumbnail.
func sidecarShared(path string) bool {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range VideoExts {
		if p := base + ext; p != path && exists(p) {
			return true
		}
	}
	return false
}

// DefaultSaveName is the name offered by the save prompt.
func DefaultSaveName(now time.Time) string {
	return fmt.Sprintf("recording-%d.webm", now.UnixMilli())
}

// Save asks the prompter where to store a new recording and writes it. The
// thumbnail is best effort. A declined prompt returns ErrCancelled.
func (s *Store) Save(ctx context.Context, video, thumb []byte) (string, error) {
	path, err := s.prompter.PromptSave(ctx, DefaultSaveName(s.now()))
	if err != nil {
		return "", err
	}
	if filepath.Ext(path) == "" {
		path += ".webm"
	}
	unlock := s.locks.Lock(path)
	defer unlock()

	if err := writeFileAtomic(path, video); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}
	if len(thumb) > 0 {
		if err := os.WriteFile(SidecarPath(path), thumb, 0o644); err != nil {
			s.log.Warn("write thumbnail", "path", SidecarPath(path), "error", err)
		}
	}
	s.log.Info("saved", "path", path, "bytes", len(video), "thumbnail", len(thumb) > 0)
	return path, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func notFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
	}
	return err
}

// copyFile copies src to a new file dst. It fails with fs.ErrExist rather
// than overwrite.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".screenrec-*.part")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
