package render

import (
	"bytes"
	"encoding/xml"
	"image/color"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"

	"iconsmd/internal/layout"
	"iconsmd/internal/svgns"
)

const redSquare = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><rect width="24" height="24" fill="#ff0000"/></svg>`

func fragments(t *testing.T, n int) []*svgns.Fragment {
	t.Helper()
	s := svgns.New()
	out := make([]*svgns.Fragment, n)
	for i := range out {
		f, err := s.Sanitize("red", []byte(redSquare))
		require.NoError(t, err)
		out[i] = f
	}
	return out
}

// wellFormed fails the test unless doc parses as XML to the end.
func wellFormed(t *testing.T, doc []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := dec.Token()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			return
		}
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" WebP ")
	require.NoError(t, err)
	assert.Equal(t, WEBP, f)
	assert.Equal(t, "image/webp", f.ContentType())

	f, err = ParseFormat("svg")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = ParseFormat("png")
	assert.Error(t, err)
}

func TestVector_Grid(t *testing.T) {
	g := layout.NewGrid(layout.DefaultMetrics(), 3, 2)
	out, err := Vector{}.Render(g, fragments(t, 3))
	require.NoError(t, err)

	doc := string(out.Data)
	wellFormed(t, out.Data)
	assert.Equal(t, 104, out.Width)
	assert.Equal(t, 104, out.Height)
	assert.True(t, strings.HasPrefix(doc, `<svg width="104" height="104" viewBox="0 0 104 104" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">`))
	assert.Contains(t, doc, `<g transform="translate(0,0)">`)
	assert.Contains(t, doc, `<g transform="translate(56,0)">`)
	assert.Contains(t, doc, `<g transform="translate(0,56)">`)
	assert.Equal(t, 3, strings.Count(doc, `<rect x="0" y="0" width="48" height="48" rx="10" ry="10" fill="#242938"/>`))
	assert.Equal(t, 3, strings.Count(doc, `<svg x="6" y="6" width="36" height="36" viewBox="0 0 24 24" preserveAspectRatio="xMidYMid meet">`))
}

func TestVector_Empty(t *testing.T) {
	out, err := Vector{}.Render(layout.Row(layout.DefaultMetrics(), 0), nil)
	require.NoError(t, err)
	wellFormed(t, out.Data)
	assert.Contains(t, string(out.Data), `width="0" height="0" viewBox="0 0 0 0"`)
	assert.Equal(t, 0, out.Width)
}

func TestRender_MismatchedCells(t *testing.T) {
	g := layout.Row(layout.DefaultMetrics(), 2)
	_, err := Vector{}.Render(g, fragments(t, 1))
	assert.Error(t, err)
	_, err = NewRaster(1).Render(g, fragments(t, 1))
	assert.Error(t, err)
}

func TestRaster_Pixels(t *testing.T) {
	g := layout.Row(layout.DefaultMetrics(), 2)
	out, err := NewRaster(1).Render(g, fragments(t, 2))
	require.NoError(t, err)

	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 104, cfg.Width)
	assert.Equal(t, 48, cfg.Height)

	img, err := webp.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}

	assert.Equal(t, uint8(0), at(0, 0).A, "rounded corner is transparent")
	assert.Equal(t, uint8(0), at(50, 24).A, "gap is transparent")
	assert.Equal(t, color.NRGBA{R: 36, G: 41, B: 56, A: 255}, at(2, 24), "padding shows background")
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, at(24, 24), "content is drawn")
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, at(56+24, 24), "second cell")
}

func TestRaster_OffsetViewBox(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="-10 -10 20 20"><rect x="-10" y="-10" width="20" height="20" fill="#ff0000"/></svg>`
	f, err := svgns.New().Sanitize("offset", []byte(src))
	require.NoError(t, err)

	out, err := NewRaster(1).Render(layout.Row(layout.DefaultMetrics(), 1), []*svgns.Fragment{f})
	require.NoError(t, err)
	img, err := webp.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)

	minX, minY, maxX, maxY := 48, 48, -1, -1
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R > 200 && c.G < 50 && c.B < 50 && c.A == 255 {
				minX, minY = min(minX, x), min(minY, y)
				maxX, maxY = max(maxX, x), max(maxY, y)
			}
		}
	}

	assert.Equal(t, []int{6, 6, 41, 41}, []int{minX, minY, maxX, maxY}, "content fills the inset box")
	assert.Equal(t, uint8(0), color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA).A, "rounded corner is transparent")
}

func TestRaster_ScaleAndEmpty(t *testing.T) {
	out, err := NewRaster(2).Render(layout.Row(layout.DefaultMetrics(), 1), fragments(t, 1))
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.Width)
	assert.Equal(t, 96, cfg.Height)

	out, err = NewRaster(0).Render(layout.Row(layout.DefaultMetrics(), 0), nil)
	require.NoError(t, err)
	cfg, err = webp.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Width)
	assert.Equal(t, 1, cfg.Height)
}

func TestNew(t *testing.T) {
	r, err := New(SVG, 1)
	require.NoError(t, err)
	assert.Equal(t, SVG, r.Format())

	r, err = New(WEBP, 3)
	require.NoError(t, err)
	assert.Equal(t, Raster{Scale: 3}, r)

	_, err = New(Format("gif"), 1)
	assert.Error(t, err)
}
