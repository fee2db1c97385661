// internal/render/render.go - Composite output formats
package render

import (
	"fmt"
	"strings"

	"iconsmd/internal/layout"
	"iconsmd/internal/svgns"
)

// Format is a composite output encoding.
type Format string

const (
	SVG  Format = "svg"
	WEBP Format = "webp"
)

// ParseFormat accepts "svg" or "webp" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case SVG, WEBP:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want svg or webp)", s)
	}
}

// ContentType is the HTTP media type of the encoding.
func (f Format) ContentType() string {
	if f == WEBP {
		return "image/webp"
	}
	return "image/svg+xml"
}

// Output is an encoded composite.
type Output struct {
	Data   []byte
	Width  int
	Height int
}

// Renderer encodes a grid of fragments. frags[i] is drawn in g.Cell(i).
type Renderer interface {
	Format() Format
	Render(g layout.Grid, frags []*svgns.Fragment) (*Output, error)
}

// New returns the renderer for f. scale multiplies raster pixel dimensions.
func New(f Format, scale int) (Renderer, error) {
	switch f {
	case SVG:
		return Vector{}, nil
	case WEBP:
		return NewRaster(scale), nil
	default:
		return nil, fmt.Errorf("no renderer for format %q", f)
	}
}

func checkCells(g layout.Grid, frags []*svgns.Fragment) error {
	if len(frags) != g.Count {
		return fmt.Errorf("grid has %d cells but %d fragments were given", g.Count, len(frags))
	}
	return nil
}
