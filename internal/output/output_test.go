package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DeamonDev888/screen-recorder/internal/library"
)

func TestLibraryItem(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.LibraryItem(library.Recording{
		Name:      "demo.webm",
		Size:      5_000_000,
		Modified:  time.Now().Add(-2 * time.Hour),
		Thumbnail: "data:image/jpeg;base64,AA==",
	})
	out := buf.String()
	assert.Contains(t, out, "demo.webm")
	assert.Contains(t, out, "5.0 MB")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "🖼")
}

func TestSetupCheck(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.SetupCheck("ffmpeg", true, "installed")
	f.SetupCheck("host", false, "not running")
	assert.Equal(t, "  ✅ ffmpeg: installed\n  ❌ host: not running\n", buf.String())
}
