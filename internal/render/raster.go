package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"iconsmd/internal/layout"
	"iconsmd/internal/svgns"
)

// Raster draws every cell to its own bitmap, pastes the cells onto a
// transparent canvas and encodes the result as lossless WEBP.
type Raster struct {
	Scale int
}

// NewRaster returns a raster renderer; scales below 1 are treated as 1.
func NewRaster(scale int) Raster {
	if scale < 1 {
		scale = 1
	}
	return Raster{Scale: scale}
}

func (Raster) Format() Format { return WEBP }

func (r Raster) Render(g layout.Grid, frags []*svgns.Fragment) (*Output, error) {
	if err := checkCells(g, frags); err != nil {
		return nil, err
	}
	scale := max(r.Scale, 1)

	// WEBP has no 0×0 form.
	w, h := max(g.Width*scale, 1), max(g.Height*scale, 1)
	canvas := imaging.New(w, h, color.NRGBA{})

	for i, f := range frags {
		c := g.Cell(i)
		cell := r.drawCell(g, f, scale)
		canvas = imaging.Paste(canvas, cell, image.Pt(c.X*scale, c.Y*scale))
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, canvas, nil); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return &Output{Data: buf.Bytes(), Width: w, Height: h}, nil
}

// drawCell renders the rounded background and the icon scaled to fit the
// content box. An icon the rasterizer cannot read leaves the background only.
func (r Raster) drawCell(g layout.Grid, f *svgns.Fragment, scale int) *image.RGBA {
	px := g.DisplaySize * scale
	cell := image.NewRGBA(image.Rect(0, 0, px, px))

	dc := gg.NewContextForRGBA(cell)
	dc.DrawRoundedRectangle(0, 0, float64(px), float64(px), float64(layout.CornerRadius*scale))
	dc.SetHexColor(layout.Background)
	dc.Fill()

	if err := drawIcon(cell, g, f, float64(scale)); err != nil {
		logrus.WithError(err).WithField("icon", f.Name).Warn("Rasterizing icon failed, drawing background only")
	}
	return cell
}

func drawIcon(dst *image.RGBA, g layout.Grid, f *svgns.Fragment, scale float64) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rasterizer panic: %v", p)
		}
	}()

	icon, err := oksvg.ReadIconStream(strings.NewReader(f.Document()), oksvg.IgnoreErrorMode)
	if err != nil {
		return fmt.Errorf("read icon: %w", err)
	}

	content := float64(g.ContentSize) * scale
	pad := g.Padding() * scale
	vb := f.ViewBox
	fit := layout.MeetFit(vb.Width, vb.Height, content)
	// The viewBox origin is moved to 0,0 before scaling.
	icon.Transform = rasterx.Identity.
		Translate(pad+fit.X, pad+fit.Y).
		Scale(fit.Width/vb.Width, fit.Height/vb.Height).
		Translate(-vb.MinX, -vb.MinY)

	b := dst.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), dst, b)
	icon.Draw(rasterx.NewDasher(b.Dx(), b.Dy(), scanner), 1.0)
	return nil
}
