// Package ui holds the lipgloss styles and terminal image rendering shared
// by the recorder and library views.
package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Red is reserved for the live recording indicator and errors.
var (
	ColorRecording = lipgloss.Color("#FF3B30")
	ColorAccent    = lipgloss.Color("#00D7FF")
	ColorOK        = lipgloss.Color("#5FD75F")
	ColorKey       = lipgloss.Color("#FFD75F")
	ColorAudio     = lipgloss.Color("#D787FF")
	ColorMuted     = lipgloss.Color("#6C6C6C")
	ColorFaint     = lipgloss.Color("#3A3A3A")
	ColorText      = lipgloss.Color("#EEEEEE")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// Header, tabs and footer.
var (
	TitleStyle            = fg(ColorAccent).Bold(true)
	PanelTitleStyle       = fg(ColorText).Bold(true)
	PanelTitleActiveStyle = fg(ColorAccent).Bold(true).Underline(true)
	StatusStyle           = fg(ColorMuted).Italic(true)
	DimStyle              = fg(ColorMuted)
	DividerStyle          = fg(ColorFaint)
	FooterKeyStyle        = fg(ColorKey).Bold(true)
	FooterDescStyle       = fg(ColorMuted)
)

// Recorder.
var (
	RecordingDotStyle = fg(ColorRecording).Bold(true).Blink(true)
	IdleDotStyle      = fg(ColorMuted)
	TimerStyle        = fg(ColorText).Bold(true)
	SourceLabelStyle  = fg(ColorAccent)
	SysLabelStyle     = fg(ColorAudio)
	MicLabelStyle     = fg(ColorOK)
	OnBadgeStyle      = fg(ColorOK).Bold(true)
	OffBadgeStyle     = fg(ColorMuted)
	PlaceholderStyle  = fg(ColorFaint)

	// Gain meter segments: unity and below, boosted, unused.
	LevelGreenStyle  = fg(ColorOK)
	LevelYellowStyle = fg(ColorKey)
	LevelGrayStyle   = fg(ColorFaint)
)

// Library and messages.
var (
	SelectedStyle  = fg(ColorAccent).Bold(true)
	ErrorStyle     = fg(ColorRecording).Bold(true)
	ErrorTextStyle = fg(ColorRecording)
	NoticeStyle    = fg(ColorOK)
)
