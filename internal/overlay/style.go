package overlay

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"captioner/internal/config"
)

// Style holds the resolved caption appearance.
type Style struct {
	Font        *truetype.Font
	FontSize    float64
	Fill        color.NRGBA
	Stroke      color.NRGBA
	StrokeWidth float64
}

// StyleFromConfig parses colors and loads the configured font. An empty font
// path selects the embedded Go Regular face.
func StyleFromConfig(caption config.Caption) (Style, error) {
	fill, err := ParseHexColor(caption.Color)
	if err != nil {
		return Style{}, fmt.Errorf("caption color: %w", err)
	}
	stroke, err := ParseHexColor(caption.StrokeColor)
	if err != nil {
		return Style{}, fmt.Errorf("caption stroke_color: %w", err)
	}
	ttf, err := loadFont(caption.Font)
	if err != nil {
		return Style{}, err
	}
	return Style{
		Font:        ttf,
		FontSize:    caption.FontSize,
		Fill:        fill,
		Stroke:      stroke,
		StrokeWidth: caption.StrokeWidth,
	}, nil
}

// Face returns a new face for the style. Faces cache glyphs and must not be
// shared between goroutines.
func (s Style) Face() font.Face {
	return truetype.NewFace(s.Font, &truetype.Options{
		Size:    s.FontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func loadFont(path string) (*truetype.Font, error) {
	fontBytes := goregular.TTF
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		fontBytes = data
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF %q: %w", path, err)
	}
	return parsed, nil
}

// ParseHexColor accepts #RRGGBB or #RRGGBBAA.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{}, fmt.Errorf("expected 6 or 8 hex chars, got %q", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex %q", s)
	}
	c := color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 0xff}
	if len(raw) == 4 {
		c.A = raw[3]
	}
	return c, nil
}
