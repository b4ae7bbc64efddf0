package library

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTrash records trashed files by moving them into a directory.
type memTrash struct {
	dir     string
	trashed []string
	err     error
}

func (m *memTrash) Trash(path string) error {
	if m.err != nil {
		return m.err
	}
	m.trashed = append(m.trashed, filepath.Base(path))
	return os.Rename(path, filepath.Join(m.dir, filepath.Base(path)))
}

type cancelPrompter struct{}

func (cancelPrompter) PromptSave(ctx context.Context, name string) (string, error) {
	return "", ErrCancelled
}

func newStore(t *testing.T, opts ...Option) (*Store, *memTrash) {
	t.Helper()
	trash := &memTrash{dir: t.TempDir()}
	s, err := Open(t.TempDir(), append([]Option{WithTrasher(trash)}, opts...)...)
	require.NoError(t, err)
	return s, trash
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func names(recs []Recording) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestListSortsDescendingAndEmbedsThumbnails(t *testing.T) {
	s, _ := newStore(t)
	write(t, s.Dir(), "a.webm", "aa")
	write(t, s.Dir(), "c.mp4", "cccc")
	write(t, s.Dir(), "b.gif", "b")
	write(t, s.Dir(), "c.jpg", "\xff\xd8jpeg")
	write(t, s.Dir(), "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.webm"), 0o755))

	recs, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"c.mp4", "b.gif", "a.webm"}, names(recs))
	assert.Equal(t, int64(4), recs[0].Size)
	assert.True(t, strings.HasPrefix(recs[0].Thumbnail, "data:image/jpeg;base64,"))
	assert.Empty(t, recs[1].Thumbnail)
}

func TestListDirectoryFailure(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))
	_, err := s.List()
	assert.Error(t, err)
}

func TestRenameMovesSidecar(t *testing.T) {
	s, _ := newStore(t)
	src := write(t, s.Dir(), "take1.webm", "v")
	write(t, s.Dir(), "take1.jpg", "t")

	dst, err := s.Rename(src, "final.webm")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "final.webm"), dst)
	assert.FileExists(t, filepath.Join(s.Dir(), "final.jpg"))
	assert.NoFileExists(t, src)
	assert.NoFileExists(t, filepath.Join(s.Dir(), "take1.jpg"))
}

func TestRenameWithoutSidecar(t *testing.T) {
	s, _ := newStore(t)
	src := write(t, s.Dir(), "take1.webm", "v")
	_, err := s.Rename(src, "take2.mkv")
	require.NoError(t, err)
}

func TestRenameCollisionLeavesBothFiles(t *testing.T) {
	s, _ := newStore(t)
	a := write(t, s.Dir(), "a.webm", "A")
	b := write(t, s.Dir(), "b.webm", "B")

	_, err := s.Rename(a, "b.webm")
	assert.ErrorIs(t, err, ErrCollision)

	got, _ := os.ReadFile(a)
	assert.Equal(t, "A", string(got))
	got, _ = os.ReadFile(b)
	assert.Equal(t, "B", string(got))
}

func TestRenameCopiesSharedSidecar(t *testing.T) {
	s, _ := newStore(t)
	src := write(t, s.Dir(), "a.webm", "v")
	write(t, s.Dir(), "a.mp4", "converted")
	write(t, s.Dir(), "a.jpg", "t")

	_, err := s.Rename(src, "b.webm")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(s.Dir(), "b.jpg"))
	assert.FileExists(t, filepath.Join(s.Dir(), "a.jpg"))
}

func TestRenameRejectsBadNames(t *testing.T) {
	s, _ := newStore(t)
	a := write(t, s.Dir(), "a.webm", "A")

	_, err := s.Rename(a, "a.txt")
	assert.ErrorIs(t, err, ErrInvalidExtension)
	_, err = s.Rename(a, "a")
	assert.ErrorIs(t, err, ErrInvalidExtension)
	_, err = s.Rename(a, "../escape.webm")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = s.Rename(filepath.Join(s.Dir(), "missing.webm"), "x.webm")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Rename("/etc/passwd.webm", "x.webm")
	assert.ErrorIs(t, err, ErrOutsideLibrary)
}

func TestDuplicateTwiceNeverCollides(t *testing.T) {
	s, _ := newStore(t)
	src := write(t, s.Dir(), "demo.webm", "video")
	write(t, s.Dir(), "demo.jpg", "thumb")

	first, err := s.Duplicate(src)
	require.NoError(t, err)
	assert.Equal(t, "demo - Copy.webm", filepath.Base(first))
	assert.FileExists(t, filepath.Join(s.Dir(), "demo - Copy.jpg"))

	second, err := s.Duplicate(src)
	require.NoError(t, err)
	assert.Equal(t, "demo - Copy (2).webm", filepath.Base(second))

	third, err := s.Duplicate(src)
	require.NoError(t, err)
	assert.Equal(t, "demo - Copy (3).webm", filepath.Base(third))

	got, _ := os.ReadFile(second)
	assert.Equal(t, "video", string(got))
}

func TestDuplicateName(t *testing.T) {
	taken := map[string]bool{"/l/a - Copy.mp4": true, "/l/a - Copy (2).mp4": true}
	got := DuplicateName("/l/a.mp4", func(p string) bool { return taken[p] })
	assert.Equal(t, "/l/a - Copy (3).mp4", got)
}

func TestDeleteTrashesVideoAndSidecar(t *testing.T) {
	s, trash := newStore(t)
	v := write(t, s.Dir(), "gone.webm", "v")
	write(t, s.Dir(), "gone.jpg", "t")
	write(t, s.Dir(), "kept.webm", "k")

	require.NoError(t, s.Delete(v))
	assert.ElementsMatch(t, []string{"gone.webm", "gone.jpg"}, trash.trashed)

	recs, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.webm"}, names(recs))
}

func TestDeleteWithoutSidecar(t *testing.T) {
	s, trash := newStore(t)
	v := write(t, s.Dir(), "solo.mov", "v")
	require.NoError(t, s.Delete(v))
	assert.Equal(t, []string{"solo.mov"}, trash.trashed)
}

func TestDeleteKeepsSharedSidecar(t *testing.T) {
	s, trash := newStore(t)
	v := write(t, s.Dir(), "a.webm", "v")
	write(t, s.Dir(), "a.mp4", "converted")
	write(t, s.Dir(), "a.jpg", "t")

	require.NoError(t, s.Delete(v))
	assert.Equal(t, []string{"a.webm"}, trash.trashed)
	assert.FileExists(t, filepath.Join(s.Dir(), "a.jpg"))

	require.NoError(t, s.Delete(filepath.Join(s.Dir(), "a.mp4")))
	assert.Equal(t, []string{"a.webm", "a.mp4", "a.jpg"}, trash.trashed)
}

func TestDeleteFailures(t *testing.T) {
	s, trash := newStore(t)
	assert.ErrorIs(t, s.Delete(filepath.Join(s.Dir(), "nope.webm")), ErrNotFound)

	v := write(t, s.Dir(), "locked.webm", "v")
	trash.err = errors.New("permission denied")
	assert.ErrorContains(t, s.Delete(v), "permission denied")
	assert.FileExists(t, v)
}

func TestSaveWritesVideoAndThumbnail(t *testing.T) {
	s, _ := newStore(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	path, err := s.Save(context.Background(), []byte("webm"), []byte("jpg"))
	require.NoError(t, err)
	assert.Equal(t, "recording-1700000000123.webm", filepath.Base(path))
	assert.FileExists(t, filepath.Join(s.Dir(), "recording-1700000000123.jpg"))

	again, err := s.Save(context.Background(), []byte("webm"), nil)
	require.NoError(t, err)
	assert.Equal(t, "recording-1700000000123-2.webm", filepath.Base(again))
	assert.NoFileExists(t, filepath.Join(s.Dir(), "recording-1700000000123-2.jpg"))
}

func TestSaveThumbnailFailureIsNotFatal(t *testing.T) {
	s, _ := newStore(t)
	s.now = func() time.Time { return time.UnixMilli(42) }
	// A directory squatting on the sidecar name makes the thumbnail write fail.
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "recording-42.jpg"), 0o755))

	path, err := s.Save(context.Background(), []byte("webm"), []byte("jpg"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestSaveCancelled(t *testing.T) {
	s, _ := newStore(t, WithPrompter(cancelPrompter{}))
	_, err := s.Save(context.Background(), []byte("webm"), nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestDialogPrompter(t *testing.T) {
	var gotName string
	p := &DialogPrompter{Dir: "/lib", Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		return []byte("/lib/mine.webm\n"), nil
	}}
	path, err := p.PromptSave(context.Background(), "recording-1.webm")
	require.NoError(t, err)
	assert.Equal(t, "/lib/mine.webm", path)
	assert.NotEmpty(t, gotName)

	p.Run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, &exec.ExitError{}
	}
	_, err = p.PromptSave(context.Background(), "recording-1.webm")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestDialogCommand(t *testing.T) {
	name, args := dialogCommand("linux", "/lib", "recording-1.webm")
	assert.Equal(t, "zenity", name)
	assert.Contains(t, args, "--filename=/lib/recording-1.webm")
	assert.Contains(t, args, "--title=Save Recording")

	name, args = dialogCommand("darwin", "/lib", "recording-1.webm")
	assert.Equal(t, "osascript", name)
	assert.Contains(t, args[1], `default name "recording-1.webm"`)
}

func TestXDGTrasher(t *testing.T) {
	dir := t.TempDir()
	tr := &XDGTrasher{Dir: filepath.Join(dir, "Trash"), Now: func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	}}
	src := write(t, dir, "my clip.webm", "v")
	require.NoError(t, tr.Trash(src))
	src = write(t, dir, "my clip.webm", "v2")
	require.NoError(t, tr.Trash(src))

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(dir, "Trash", "files", "my clip.webm"))
	assert.FileExists(t, filepath.Join(dir, "Trash", "files", "my clip.webm.2"))

	info, err := os.ReadFile(filepath.Join(dir, "Trash", "info", "my clip.webm.trashinfo"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "[Trash Info]\n")
	assert.Contains(t, string(info), "my%20clip.webm\n")
	assert.Contains(t, string(info), "DeletionDate=2024-03-01T10:00:00\n")
}

func TestDirTrasher(t *testing.T) {
	dir := t.TempDir()
	tr := &DirTrasher{Dir: filepath.Join(dir, ".Trash")}
	require.NoError(t, tr.Trash(write(t, dir, "a.webm", "1")))
	require.NoError(t, tr.Trash(write(t, dir, "a.webm", "2")))
	assert.FileExists(t, filepath.Join(dir, ".Trash", "a 2.webm"))
}

func TestLocksSerializeSamePath(t *testing.T) {
	l := NewLocks()
	unlock := l.Lock("/lib/a.webm")

	acquired := make(chan struct{})
	go func() {
		u := l.Lock("/lib/b.webm", "/lib/./a.webm")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	unlock() // second call is a no-op
	<-acquired

	assert.Eventually(t, func() bool { return l.Held() == 0 }, time.Second, 10*time.Millisecond)
}

func TestLocksDifferentPathsInParallel(t *testing.T) {
	l := NewLocks()
	var wg sync.WaitGroup
	u1 := l.Lock("/lib/a.webm")
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Lock("/lib/b.webm")()
	}()
	wg.Wait()
	u1()
}

func TestWatchReportsChanges(t *testing.T) {
	s, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	go func() { _ = s.Watch(ctx, func() { changed <- struct{}{} }) }()
	time.Sleep(100 * time.Millisecond)

	write(t, s.Dir(), "ignored.txt", "x")
	write(t, s.Dir(), "new.webm", "v")
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestStats(t *testing.T) {
	s, _ := newStore(t)
	u, err := s.Stats()
	require.NoError(t, err)
	assert.Positive(t, u.Total)
}

func TestResolve(t *testing.T) {
	s, _ := newStore(t)
	got, err := s.Resolve("clip.webm")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "clip.webm"), got)

	_, err = s.Resolve(filepath.Join(s.Dir(), "..", "clip.webm"))
	assert.ErrorIs(t, err, ErrOutsideLibrary)
	_, err = s.Resolve("")
	assert.ErrorIs(t, err, ErrNotFound)
}
