package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/DeamonDev888/screen-recorder/internal/ui"
)

const (
	previewWidth  = 32
	previewHeight = 9
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.view == ViewRecorder {
		sections = append(sections, m.renderRecorder())
	} else {
		sections = append(sections, m.renderLibrary())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Error bar
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	} else if m.notice != "" {
		sections = append(sections, ui.NoticeStyle.Render(m.notice))
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("SCREENREC")

	tabs := []string{"Recorder", "Library"}
	for i, t := range tabs {
		if View(i) == m.view {
			tabs[i] = ui.PanelTitleActiveStyle.Render("[" + t + "]")
		} else {
			tabs[i] = ui.PanelTitleStyle.Render(" " + t + " ")
		}
	}

	var dir string
	if m.status.LibraryDir != "" {
		dir = ui.DimStyle.Render(" — " + m.status.LibraryDir)
		if m.status.DiskTotal > 0 {
			dir += ui.DimStyle.Render(fmt.Sprintf(" (%s free)", humanize.Bytes(m.status.DiskFree)))
		}
	}
	return title + "  " + strings.Join(tabs, " ") + dir
}

func (m Model) renderStatusBar() string {
	var dot string
	switch {
	case m.recording:
		dot = ui.RecordingDotStyle.Render("● REC") + " " + ui.TimerStyle.Render(FormatElapsed(m.elapsed))
	case !m.connected:
		dot = ui.IdleDotStyle.Render("○ OFFLINE")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}
	return dot + "  " + ui.StatusStyle.Render(m.statusText)
}

// FormatElapsed renders d as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(1) + divider(1) + error(1) + footer(1)
	return max(5, m.height-6)
}

func (m Model) renderRecorder() string {
	height := m.contentHeight()
	var lines []string

	if !m.connected {
		lines = append(lines, m.renderDisconnected()...)
		return padLines(lines, height)
	}

	if m.picking {
		return m.renderPicker(height)
	}

	source := ui.DimStyle.Render("none — press s to choose")
	if m.selecting {
		source = ui.DimStyle.Render("opening...")
	} else if m.selected != nil {
		source = ui.SourceLabelStyle.Render(m.selected.Name)
	}
	lines = append(lines, "")
	lines = append(lines, "  "+ui.PanelTitleStyle.Render("Source      ")+source)
	lines = append(lines, "")
	lines = append(lines, "  "+ui.SysLabelStyle.Render("System audio")+" "+onOff(m.opts.SystemAudio)+"  "+
		renderGainSlider(m.opts.SystemGain, m.opts.SystemAudio))
	lines = append(lines, "  "+ui.MicLabelStyle.Render("Microphone  ")+" "+onOff(m.opts.Microphone)+"  "+
		renderGainSlider(m.opts.MicGain, m.opts.Microphone))
	lines = append(lines, "")

	switch {
	case m.stopping:
		lines = append(lines, ui.DimStyle.Render("  Saving recording..."))
	case m.recording:
		lines = append(lines, "  "+ui.RecordingDotStyle.Render("●")+" "+ui.TimerStyle.Render(FormatElapsed(m.elapsed)))
	default:
		lines = append(lines, ui.DimStyle.Render("  Press Space to start recording"))
	}

	if m.remediation != "" {
		lines = append(lines, "")
		for _, wl := range wrapText(m.remediation, max(10, m.width-4)) {
			lines = append(lines, ui.ErrorTextStyle.Render("  "+wl))
		}
	}
	return padLines(lines, height)
}

func (m Model) renderDisconnected() []string {
	if m.reconnecting {
		return []string{
			"",
			ui.ErrorTextStyle.Render("  Host disconnected. Reconnecting..."),
			ui.DimStyle.Render("  Start with: screenrec daemon"),
		}
	}
	if m.connError != "" {
		return []string{
			"",
			ui.ErrorStyle.Render("  Host not running."),
			ui.DimStyle.Render("  Start with: screenrec daemon"),
		}
	}
	return []string{ui.DimStyle.Render("  Connecting to screenrec host...")}
}

func onOff(on bool) string {
	if on {
		return ui.OnBadgeStyle.Render("ON ")
	}
	return ui.OffBadgeStyle.Render("OFF")
}

func renderGainSlider(gain float64, active bool) string {
	const barLen = 10
	filled := int(gain/maxGain*barLen + 0.5)
	if filled > barLen {
		filled = barLen
	}

	var bar string
	for i := 0; i < barLen; i++ {
		switch {
		case i >= filled || !active:
			if i < filled {
				bar += ui.LevelGrayStyle.Render("█")
			} else {
				bar += ui.LevelGrayStyle.Render("░")
			}
		case float64(i)/barLen >= 0.5:
			bar += ui.LevelYellowStyle.Render("█")
		default:
			bar += ui.LevelGreenStyle.Render("█")
		}
	}
	return bar + ui.DimStyle.Render(fmt.Sprintf(" %3.0f%%", gain*100))
}

func (m Model) renderPicker(height int) string {
	listW := max(20, m.width-previewWidth-3)
	var left []string
	left = append(left, ui.PanelTitleActiveStyle.Render("CHOOSE A SOURCE"))

	switch {
	case m.loadingSrc:
		left = append(left, ui.DimStyle.Render("  Looking for screens and windows..."))
	case len(m.srcList) == 0:
		left = append(left, ui.DimStyle.Render("  No capture sources found"))
	default:
		for i, s := range m.srcList {
			label := s.Name
			if s.Kind != "" {
				label += ui.DimStyle.Render(" (" + string(s.Kind) + ")")
			}
			if i == m.srcIndex {
				left = append(left, truncateToWidth(ui.SelectedStyle.Render("> ")+ui.SelectedStyle.Render(label), listW))
			} else {
				left = append(left, truncateToWidth("  "+label, listW))
			}
		}
	}
	return joinColumns(left, strings.Split(m.srcPreview, "\n"), listW, height)
}

func (m Model) renderLibrary() string {
	height := m.contentHeight()

	if !m.connected {
		return padLines(m.renderDisconnected(), height)
	}
	if m.libraryErr != "" {
		return padLines([]string{
			"",
			ui.ErrorStyle.Render("  Could not read the library"),
			ui.ErrorTextStyle.Render("  " + m.libraryErr),
			ui.DimStyle.Render("  Press ctrl+r to retry"),
		}, height)
	}

	listW := max(20, m.width-previewWidth-3)
	var left []string
	left = append(left, ui.PanelTitleActiveStyle.Render(fmt.Sprintf("RECORDINGS (%d)", len(m.recordings))))

	if !m.libLoaded {
		left = append(left, ui.DimStyle.Render("  Loading..."))
	} else if len(m.recordings) == 0 {
		left = append(left, ui.DimStyle.Render("  No recordings yet"))
		left = append(left, ui.DimStyle.Render("  Recordings appear here once saved"))
	}

	// Keep the selection on screen.
	visible := height - 2
	start := 0
	if m.libIndex >= visible {
		start = m.libIndex - visible + 1
	}
	for i := start; i < len(m.recordings) && i < start+visible; i++ {
		r := m.recordings[i]
		icon := ui.PlaceholderStyle.Render("▶")
		if r.Thumbnail != "" {
			icon = ui.SourceLabelStyle.Render("▣")
		}
		meta := ui.DimStyle.Render(fmt.Sprintf("  %s · %s", humanize.Bytes(uint64(max(r.Size, 0))), humanize.Time(r.Modified)))
		var line string
		if i == m.libIndex {
			line = ui.SelectedStyle.Render("> ") + icon + " " + ui.SelectedStyle.Render(r.Name) + meta
		} else {
			line = "  " + icon + " " + r.Name + meta
		}
		left = append(left, truncateToWidth(line, listW))
	}

	if prompt := m.renderPrompt(); prompt != "" {
		left = append(left, "", prompt)
	}

	return joinColumns(left, strings.Split(m.libPreview, "\n"), listW, height)
}

func (m Model) renderPrompt() string {
	rec, ok := m.current()
	if !ok {
		return ""
	}
	switch m.mode {
	case modeRename:
		return ui.FooterKeyStyle.Render("Rename: ") + m.input + "▌"
	case modeConfirmDelete:
		return ui.ErrorTextStyle.Render("Move " + rec.Name + " to trash? ") + ui.FooterKeyStyle.Render("y") + ui.FooterDescStyle.Render("/n")
	case modeConvert:
		var opts []string
		for i, f := range m.formats {
			if i == m.formatIdx {
				opts = append(opts, ui.SelectedStyle.Render("["+f+"]"))
			} else {
				opts = append(opts, " "+f+" ")
			}
		}
		return ui.FooterKeyStyle.Render("Convert to: ") + strings.Join(opts, "")
	}
	return ""
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string
	key := func(k, desc string) {
		parts = append(parts, ui.FooterKeyStyle.Render(k)+ui.FooterDescStyle.Render(" "+desc))
	}

	switch {
	case !m.connected:
	case m.picking:
		key("j/k", "Nav")
		key("Enter", "Select")
		key("Esc", "Cancel")
	case m.mode != modeNone:
		key("Enter", "Confirm")
		key("Esc", "Cancel")
	case m.view == ViewRecorder:
		if m.recording {
			key("Space", "Stop")
		} else {
			key("Space", "Record")
		}
		key("s", "Source")
		key("a", "SysAudio")
		key("m", "Mic")
		key("[ ]", "SysGain")
		key("{ }", "MicGain")
	default:
		key("j/k", "Nav")
		key("J/K", "Move")
		key("o", "Open")
		key("e", "Reveal")
		key("r", "Rename")
		key("c", "Copy")
		key("v", "Convert")
		key("d", "Delete")
	}

	if m.connected && !m.picking && m.mode == modeNone {
		key("Tab", "View")
	}
	key("q", "Quit")

	return strings.Join(parts, "  ")
}

// Helpers

func joinColumns(left, right []string, leftW, height int) string {
	divider := ui.DividerStyle.Render("│")
	var rows []string
	for i := 0; i < height; i++ {
		l, r := "", ""
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		rows = append(rows, padRight(l, leftW)+" "+divider+" "+r)
	}
	return strings.Join(rows, "\n")
}

func padLines(lines []string, height int) string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
