package optimize

import (
	"bytes"
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"
)

const mediaType = "image/svg+xml"

// Optimizer shrinks SVG sources before they are cached. It keeps ids, classes
// and references intact so the namespacer can still rewrite them.
type Optimizer struct {
	m *minify.M
}

// New returns an optimizer with the SVG and embedded CSS minifiers registered.
func New() *Optimizer {
	m := minify.New()
	m.AddFunc(mediaType, svg.Minify)
	m.AddFunc("text/css", css.Minify)
	return &Optimizer{m: m}
}

// SVG minifies src. The returned slice is a new buffer.
func (o *Optimizer) SVG(src []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := o.m.Minify(mediaType, &out, bytes.NewReader(src)); err != nil {
		return nil, fmt.Errorf("minify svg: %w", err)
	}
	return out.Bytes(), nil
}
