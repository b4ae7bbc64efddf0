package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/DeamonDev888/screen-recorder/internal/library"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) LibraryHeader(dir string, count int) {
	fmt.Fprintf(f.w, "📁 %s (%d recordings):\n\n", dir, count)
}

func (f *Formatter) LibraryItem(r library.Recording) {
	thumb := ""
	if r.Thumbnail != "" {
		thumb = " 🖼"
	}
	fmt.Fprintf(f.w, "  %-40s %10s  %s%s\n", r.Name, humanize.Bytes(uint64(max(r.Size, 0))), humanize.Time(r.Modified), thumb)
}

func (f *Formatter) DiskUsage(free, total uint64) {
	fmt.Fprintf(f.w, "\n💾 %s free of %s\n", humanize.Bytes(free), humanize.Bytes(total))
}

func (f *Formatter) Converted(src, dst string) {
	fmt.Fprintf(f.w, "✅ Converted %s → %s\n", src, dst)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func (f *Formatter) Formats(formats []string) {
	fmt.Fprintf(f.w, "  Formats: %s\n", strings.Join(formats, ", "))
}
