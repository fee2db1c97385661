package svgns

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ViewBox is an SVG user coordinate system.
type ViewBox struct {
	MinX, MinY    float64
	Width, Height float64
}

func (v ViewBox) String() string {
	return FormatNumber(v.MinX) + " " + FormatNumber(v.MinY) + " " +
		FormatNumber(v.Width) + " " + FormatNumber(v.Height)
}

// Aspect returns width divided by height.
func (v ViewBox) Aspect() float64 {
	return v.Width / v.Height
}

// ParseViewBox parses "min-x min-y width height", separated by whitespace
// and/or commas. Width and height must be positive.
func ParseViewBox(s string) (ViewBox, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) != 4 {
		return ViewBox{}, fmt.Errorf("viewBox %q: want 4 numbers, got %d", s, len(fields))
	}

	var nums [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return ViewBox{}, fmt.Errorf("viewBox %q: %w", s, err)
		}
		nums[i] = n
	}

	vb := ViewBox{MinX: nums[0], MinY: nums[1], Width: nums[2], Height: nums[3]}
	if vb.Width <= 0 || vb.Height <= 0 {
		return ViewBox{}, fmt.Errorf("viewBox %q: width and height must be positive", s)
	}
	return vb, nil
}

var leadingNumber = regexp.MustCompile(`^\s*([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*([a-zA-Z%]*)\s*$`)

// parseLength reads a width or height attribute. Absolute units are read by
// their leading number; percentages carry no intrinsic size and are rejected.
func parseLength(s string) (float64, bool) {
	m := leadingNumber.FindStringSubmatch(s)
	if m == nil || m[2] == "%" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatNumber renders n without trailing zeros.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
