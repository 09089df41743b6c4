package render

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

const (
	coverWidth  = 600
	coverHeight = 800
	coverMargin = 60
)

var coverPalette = []color.NRGBA{
	{R: 30, G: 64, B: 175, A: 255},
	{R: 5, G: 150, B: 105, A: 255},
	{R: 190, G: 24, B: 93, A: 255},
	{R: 109, G: 40, B: 217, A: 255},
	{R: 180, G: 83, B: 9, A: 255},
	{R: 15, G: 118, B: 110, A: 255},
}

type coverFonts struct {
	title, small           font.Face
	titleScale, smallScale float64
}

// pickColor keeps a job's cover color stable across re-renders.
func pickColor(seed string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return coverPalette[h.Sum32()%uint32(len(coverPalette))]
}

func (r *Renderer) drawCover(title, subtitle, seed string) ([]byte, error) {
	dc := gg.NewContext(coverWidth, coverHeight)

	dc.SetColor(pickColor(seed))
	dc.Clear()

	// Accent bands
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 48})
	dc.DrawRectangle(0, coverHeight*0.62, coverWidth, 8)
	dc.Fill()
	dc.DrawRectangle(0, coverHeight-40, coverWidth, 40)
	dc.Fill()

	dc.SetColor(color.White)
	drawWrapped(dc, r.cover.title, r.cover.titleScale, title, coverHeight*0.35, 1.5)
	if subtitle != "" {
		dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 220})
		drawWrapped(dc, r.cover.small, r.cover.smallScale, subtitle, coverHeight*0.75, 1.4)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawWrapped centers s around y. The bitmap fallback font is drawn scaled up.
func drawWrapped(dc *gg.Context, face font.Face, scale float64, s string, y, spacing float64) {
	dc.Push()
	defer dc.Pop()
	dc.SetFontFace(face)
	dc.Scale(scale, scale)
	width := (coverWidth - 2*coverMargin) / scale
	dc.DrawStringWrapped(s, coverWidth/2/scale, y/scale, 0.5, 0.5, width, spacing, gg.AlignCenter)
}
