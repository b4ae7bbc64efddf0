package ui

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/DeamonDev888/screen-recorder/internal/thumbnail"
)

// Placeholder renders the icon shown for recordings without a thumbnail.
func Placeholder(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := make([]string, height)
	for i := range lines {
		lines[i] = strings.Repeat(" ", width)
	}
	icon := "▶"
	if width >= 5 {
		icon = "[ ▶ ]"
	}
	mid := height / 2
	pad := (width - lipgloss.Width(icon)) / 2
	lines[mid] = strings.Repeat(" ", pad) + icon + strings.Repeat(" ", width-pad-lipgloss.Width(icon))
	for i, l := range lines {
		lines[i] = PlaceholderStyle.Render(l)
	}
	return strings.Join(lines, "\n")
}

// Thumbnail renders a JPEG data URL as width×height terminal cells using
// upper half blocks, two pixels per cell. Anything that fails to decode
// renders as the placeholder.
func Thumbnail(dataURL string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	data, err := thumbnail.ParseDataURL(dataURL)
	if err != nil || len(data) == 0 {
		return Placeholder(width, height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Placeholder(width, height)
	}
	return HalfBlocks(img, width, height)
}

// HalfBlocks scales img to width×(2*height) pixels and draws it.
func HalfBlocks(img image.Image, width, height int) string {
	dst := image.NewRGBA(image.Rect(0, 0, width, height*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var b strings.Builder
	for y := 0; y < height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < width; x++ {
			top := hex(dst, x, 2*y)
			bottom := hex(dst, x, 2*y+1)
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
	}
	return b.String()
}

func hex(img *image.RGBA, x, y int) string {
	c := img.RGBAAt(x, y)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
