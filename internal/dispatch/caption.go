package dispatch

import (
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// captionLineChars is the longest caption kept on a single top line.
const captionLineChars = 25

// splitCaption divides a caption into top and bottom lines. An explicit "|"
// wins; otherwise long text is split between words near the middle.
func splitCaption(text string) (top, bottom string) {
	text = strings.TrimSpace(text)
	if before, after, ok := strings.Cut(text, "|"); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	words := strings.Fields(text)
	if len(text) <= captionLineChars || len(words) < 2 {
		return strings.Join(words, " "), ""
	}
	mid := len(words) / 2
	return strings.Join(words[:mid], " "), strings.Join(words[mid:], " ")
}

// captionLine renders text in white with a one pixel black outline.
func captionLine(text string) *image.NRGBA {
	face := basicfont.Face7x13
	m := face.Metrics()
	img := image.NewNRGBA(image.Rect(0, 0, font.MeasureString(face, text).Ceil()+2, m.Height.Ceil()+2))
	baseline := m.Ascent.Ceil() + 1

	stroke := func(c color.Color, dx, dy int) {
		d := font.Drawer{Dst: img, Src: image.NewUniform(c), Face: face, Dot: fixed.P(1+dx, baseline+dy)}
		d.DrawString(text)
	}
	for _, o := range []image.Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		stroke(color.Black, o.X, o.Y)
	}
	stroke(color.White, 0, 0)
	return img
}

// DrawCaption writes caption onto canvas, top line near the top edge and
// bottom line near the bottom edge, each scaled to fill the width.
func DrawCaption(canvas *image.NRGBA, caption string) *image.NRGBA {
	top, bottom := splitCaption(caption)
	b := canvas.Bounds()
	margin := b.Dy() / 32

	place := func(text string, atTop bool) {
		if text == "" {
			return
		}
		line := captionLine(text)
		lw, lh := float64(line.Bounds().Dx()), float64(line.Bounds().Dy())
		scale := min(float64(b.Dx()-2*margin)/lw, float64(b.Dy()/6)/lh)
		w, h := max(1, int(lw*scale)), max(1, int(lh*scale))
		scaled := imaging.Resize(line, w, h, imaging.NearestNeighbor)

		y := margin
		if !atTop {
			y = b.Dy() - margin - h
		}
		canvas = imaging.Overlay(canvas, scaled, image.Pt((b.Dx()-w)/2, y), 1)
	}
	place(top, true)
	place(bottom, false)
	return canvas
}
