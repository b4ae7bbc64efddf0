package sources

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/DeamonDev888/screen-recorder/internal/media"
	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// PreviewFramerate is used for one-shot frame grabs.
const PreviewFramerate = 1

// InputArgs returns the ffmpeg input arguments that open t on this platform.
func (t Target) InputArgs(display string, framerate int) []string {
	return inputArgs(runtime.GOOS, t, display, framerate)
}

func inputArgs(goos string, t Target, display string, framerate int) []string {
	fps := strconv.Itoa(framerate)
	switch goos {
	case "darwin":
		return []string{"-f", "avfoundation", "-capture_cursor", "1", "-framerate", fps,
			"-i", fmt.Sprintf("%d:none", t.Index)}
	case "windows":
		if t.Kind == KindWindow {
			return []string{"-f", "gdigrab", "-framerate", fps, "-i", "title=" + t.WindowID}
		}
		args := []string{"-f", "gdigrab", "-framerate", fps}
		if t.Width > 0 && t.Height > 0 {
			args = append(args,
				"-offset_x", strconv.Itoa(t.X), "-offset_y", strconv.Itoa(t.Y),
				"-video_size", fmt.Sprintf("%dx%d", t.Width, t.Height))
		}
		return append(args, "-i", "desktop")
	default:
		if display == "" {
			display = ":0"
		}
		if t.Kind == KindWindow {
			return []string{"-f", "x11grab", "-framerate", fps, "-window_id", t.WindowID, "-i", display}
		}
		return []string{"-f", "x11grab", "-framerate", fps,
			"-video_size", fmt.Sprintf("%dx%d", t.Width, t.Height),
			"-i", fmt.Sprintf("%s+%d,%d", display, t.X, t.Y)}
	}
}

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NewEnumerator picks the enumerator for the running platform.
func NewEnumerator(tool *media.Tool, display string) Enumerator {
	switch runtime.GOOS {
	case "darwin":
		return &AVFoundationEnumerator{Tool: tool}
	case "windows":
		return &DesktopEnumerator{Tool: tool}
	default:
		return &X11Enumerator{Tool: tool, Display: display}
	}
}

// X11Enumerator lists monitors with xrandr and top-level windows with wmctrl.
type X11Enumerator struct {
	Tool    *media.Tool
	Display string
	Run     CommandRunner
}

var (
	xrandrMonitor = regexp.MustCompile(`^\s*(\d+):\s+\S+\s+(\d+)/\d+x(\d+)/\d+\+(-?\d+)\+(-?\d+)\s+(\S+)`)
	wmctrlWindow  = regexp.MustCompile(`^(0x[0-9a-fA-F]+)\s+(-?\d+)\s+(-?\d+)\s+(-?\d+)\s+(\d+)\s+(\d+)\s+\S+\s*(.*)$`)
)

// Enumerate implements Enumerator. Missing wmctrl only drops windows;
// a failing xrandr fails the enumeration.
func (e *X11Enumerator) Enumerate(ctx context.Context) ([]Candidate, error) {
	run := e.Run
	if run == nil {
		run = runCombined
	}

	out, err := run(ctx, "xrandr", "--listmonitors")
	if err != nil {
		return nil, fmt.Errorf("xrandr: %w", err)
	}
	candidates := parseXrandr(string(out))

	if out, err := run(ctx, "wmctrl", "-lG"); err == nil {
		candidates = append(candidates, parseWmctrl(string(out))...)
	}

	e.attachThumbnails(ctx, candidates)
	return candidates, nil
}

func (e *X11Enumerator) attachThumbnails(ctx context.Context, candidates []Candidate) {
	if e.Tool == nil {
		return
	}
	for i := range candidates {
		img, err := e.Tool.GrabFrame(ctx, candidates[i].Target.InputArgs(e.Display, PreviewFramerate))
		if err != nil {
			continue
		}
		if data, err := thumbnail.Encode(img); err == nil {
			candidates[i].Thumbnail = data
		}
	}
}

func parseXrandr(out string) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(out, "\n") {
		m := xrandrMonitor.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		x, _ := strconv.Atoi(m[4])
		y, _ := strconv.Atoi(m[5])
		candidates = append(candidates, Candidate{
			Name:   fmt.Sprintf("Screen %d (%s)", idx+1, m[6]),
			Target: Target{Kind: KindScreen, Index: idx, Width: w, Height: h, X: x, Y: y},
		})
	}
	return candidates
}

func parseWmctrl(out string) []Candidate {
	var candidates []Candidate
	for _, line := range strings.Split(out, "\n") {
		m := wmctrlWindow.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		// Desktop -1 marks sticky shell surfaces such as panels and docks.
		if m[2] == "-1" {
			continue
		}
		title := strings.TrimSpace(m[7])
		if title == "" {
			continue
		}
		x, _ := strconv.Atoi(m[3])
		y, _ := strconv.Atoi(m[4])
		w, _ := strconv.Atoi(m[5])
		h, _ := strconv.Atoi(m[6])
		candidates = append(candidates, Candidate{
			Name:   title,
			Target: Target{Kind: KindWindow, WindowID: m[1], Width: w, Height: h, X: x, Y: y},
		})
	}
	return candidates
}

// AVFoundationEnumerator lists "Capture screen" devices reported by ffmpeg.
type AVFoundationEnumerator struct {
	Tool *media.Tool
	Run  CommandRunner
}

var avfScreen = regexp.MustCompile(`\[(\d+)\] (Capture screen \d+)`)

// Enumerate implements Enumerator.
func (e *AVFoundationEnumerator) Enumerate(ctx context.Context) ([]Candidate, error) {
	run := e.Run
	if run == nil {
		run = runCombined
	}
	ffmpeg := "ffmpeg"
	if e.Tool != nil {
		ffmpeg = e.Tool.FFmpeg
	}
	// Listing devices always exits non-zero; the output is what matters.
	out, _ := run(ctx, ffmpeg, "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	candidates := parseAVFoundation(string(out))
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no avfoundation capture screens found")
	}
	return candidates, nil
}

func parseAVFoundation(out string) []Candidate {
	var candidates []Candidate
	inVideo := false
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "AVFoundation video devices"):
			inVideo = true
			continue
		case strings.Contains(line, "AVFoundation audio devices"):
			inVideo = false
			continue
		}
		if !inVideo {
			continue
		}
		m := avfScreen.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		candidates = append(candidates, Candidate{
			Name:   m[2],
			Target: Target{Kind: KindScreen, Index: idx},
		})
	}
	return candidates
}

// DesktopEnumerator offers the whole desktop as a single source.
type DesktopEnumerator struct {
	Tool *media.Tool
}

// Enumerate implements Enumerator.
func (e *DesktopEnumerator) Enumerate(ctx context.Context) ([]Candidate, error) {
	c := Candidate{Name: "Entire screen", Target: Target{Kind: KindScreen}}
	if e.Tool != nil {
		if img, err := e.Tool.GrabFrame(ctx, c.Target.InputArgs("", PreviewFramerate)); err == nil {
			c.Thumbnail, _ = thumbnail.Encode(img)
		}
	}
	return []Candidate{c}, nil
}
