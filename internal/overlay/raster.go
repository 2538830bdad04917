package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/fogleman/gg"
)

const lineSpacing = 1.3

// Rasterize draws text centered on a transparent canvas, wrapping lines wider
// than maxWidth, and saves it as a PNG at path. It returns the image size.
func Rasterize(style Style, text string, maxWidth float64, path string) (int, int, error) {
	face := style.Face()
	defer face.Close()

	measure := gg.NewContext(1, 1)
	measure.SetFontFace(face)
	width := func(s string) float64 {
		w, _ := measure.MeasureString(s)
		return w
	}

	lines := wrapText(width, text, maxWidth)
	lineHeight := measure.FontHeight() * lineSpacing
	pad := math.Ceil(style.StrokeWidth) + 4

	widest := 0.0
	for _, line := range lines {
		widest = math.Max(widest, width(line))
	}
	w := int(math.Ceil(widest + 2*pad))
	h := int(math.Ceil(float64(len(lines))*lineHeight + 2*pad))

	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	cx := float64(w) / 2
	sw := int(math.Round(style.StrokeWidth))
	for i, line := range lines {
		cy := pad + lineHeight*(float64(i)+0.5)
		if sw > 0 {
			dc.SetColor(style.Stroke)
			for dy := -sw; dy <= sw; dy++ {
				for dx := -sw; dx <= sw; dx++ {
					if dx*dx+dy*dy > sw*sw {
						continue
					}
					dc.DrawStringAnchored(line, cx+float64(dx), cy+float64(dy), 0.5, 0.5)
				}
			}
		}
		dc.SetColor(style.Fill)
		dc.DrawStringAnchored(line, cx, cy, 0.5, 0.5)
	}

	if err := dc.SavePNG(path); err != nil {
		return 0, 0, fmt.Errorf("save caption png: %w", err)
	}
	return w, h, nil
}

// wrapText greedily fills lines up to maxWidth. Words wider than a line, which
// includes unspaced CJK text, break between runes.
func wrapText(width func(string) float64, text string, maxWidth float64) []string {
	var lines []string
	current := ""
	push := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}

	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if width(candidate) <= maxWidth {
			current = candidate
			continue
		}
		push()
		if width(word) <= maxWidth {
			current = word
			continue
		}
		for _, r := range word {
			next := current + string(r)
			if current != "" && width(next) > maxWidth {
				push()
				next = string(r)
			}
			current = next
		}
	}
	push()
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
