// Package imageview turns generated images into terminal previews and keeps
// copies on disk so they can be opened in a real viewer.
package imageview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	upperHalf = "▀"
	asciiRamp = " .:-=+*#%@"
)

func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Render draws img into a cols x rows block of terminal cells. Each cell
// carries two vertically stacked pixels unless ascii is set, in which case
// one luminance glyph per cell is used.
func Render(img image.Image, cols, rows int, ascii bool) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	b := img.Bounds()
	if b.Empty() {
		return ""
	}
	sample := func(x, y, w, h int) colorful.Color {
		sx := b.Min.X + x*b.Dx()/w
		sy := b.Min.Y + y*b.Dy()/h
		c, _ := colorful.MakeColor(img.At(sx, sy))
		return c
	}

	lines := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		var sb strings.Builder
		for c := 0; c < cols; c++ {
			if ascii {
				l, _, _ := sample(c, r, cols, rows).Lab()
				// Lab L of pure white lands just under 1.
				idx := int(math.Round(max(0, min(1, l)) * float64(len(asciiRamp)-1)))
				sb.WriteByte(asciiRamp[idx])
				continue
			}
			top := sample(c, 2*r, cols, 2*rows)
			bottom := sample(c, 2*r+1, cols, 2*rows)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top.Clamped().Hex())).
				Background(lipgloss.Color(bottom.Clamped().Hex())).
				Render(upperHalf))
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

// RenderBytes decodes and renders in one step. Undecodable data renders as a
// placeholder box so the layout stays stable.
func RenderBytes(data []byte, cols, rows int, ascii bool) string {
	img, err := Decode(data)
	if err != nil {
		return Placeholder(cols, rows, "image unavailable")
	}
	return Render(img, cols, rows, ascii)
}

// Placeholder fills a cols x rows block with label centered in it.
func Placeholder(cols, rows int, label string) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, label)
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Save writes data under dir as name plus an extension matching mime and
// returns the full path.
func Save(dir, name, mime string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+extensionFor(mime))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return path, nil
}
