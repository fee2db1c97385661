package render

import (
	"fmt"
	"strings"

	"iconsmd/internal/layout"
	"iconsmd/internal/svgns"
)

// Vector writes a single SVG document with one nested <svg> per cell.
type Vector struct{}

func (Vector) Format() Format { return SVG }

func (Vector) Render(g layout.Grid, frags []*svgns.Fragment) (*Output, error) {
	if err := checkCells(g, frags); err != nil {
		return nil, err
	}

	var b strings.Builder
	size := 0
	for _, f := range frags {
		size += len(f.Inner) + 400
	}
	b.Grow(size + 200)

	fmt.Fprintf(&b, `<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">`,
		g.Width, g.Height, g.Width, g.Height)

	for i, f := range frags {
		writeCell(&b, g, g.Cell(i), f)
	}

	b.WriteString("</svg>")
	return &Output{Data: []byte(b.String()), Width: g.Width, Height: g.Height}, nil
}

func writeCell(b *strings.Builder, g layout.Grid, c layout.Cell, f *svgns.Fragment) {
	d := g.DisplaySize
	pad := svgns.FormatNumber(g.Padding())

	fmt.Fprintf(b, `<g transform="translate(%d,%d)">`, c.X, c.Y)
	fmt.Fprintf(b, `<svg width="%d" height="%d" viewBox="0 0 %d %d">`, d, d, d, d)
	fmt.Fprintf(b, `<rect x="0" y="0" width="%d" height="%d" rx="%d" ry="%d" fill="%s"/>`,
		d, d, layout.CornerRadius, layout.CornerRadius, layout.Background)
	fmt.Fprintf(b, `<svg x="%s" y="%s" width="%d" height="%d" viewBox="%s" preserveAspectRatio="xMidYMid meet">`,
		pad, pad, g.ContentSize, g.ContentSize, f.ViewBox.String())
	b.WriteString(f.Inner)
	b.WriteString("</svg></svg></g>")
}
