// internal/svgns/sanitizer.go - Per-icon identifier namespacing
package svgns

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ErrMalformed is returned for sources that cannot be embedded: unparsable
// markup, no root <svg> element, or no determinable viewBox.
var ErrMalformed = errors.New("malformed svg")

const (
	svgNS   = "http://www.w3.org/2000/svg"
	xlinkNS = "http://www.w3.org/1999/xlink"
	xmlNS   = "http://www.w3.org/XML/1998/namespace"
)

// Fragment is an icon ready for embedding in a composite: its root element
// stripped, every identifier made unique to this instance.
type Fragment struct {
	Name    string
	Suffix  string
	Inner   string
	ViewBox ViewBox
}

// Document wraps the fragment in a standalone SVG document.
func (f *Fragment) Document() string {
	var b strings.Builder
	b.Grow(len(f.Inner) + 160)
	fmt.Fprintf(&b, `<svg xmlns="%s" xmlns:xlink="%s" width="%s" height="%s" viewBox="%s">`,
		svgNS, xlinkNS, FormatNumber(f.ViewBox.Width), FormatNumber(f.ViewBox.Height), f.ViewBox.String())
	b.WriteString(f.Inner)
	b.WriteString("</svg>")
	return b.String()
}

// Sanitizer namespaces icon sources. It is safe for concurrent use.
type Sanitizer struct {
	token func() string
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithTokenFunc replaces the random part of generated suffixes.
func WithTokenFunc(fn func() string) Option {
	return func(s *Sanitizer) { s.token = fn }
}

func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{token: randomToken}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sanitize parses src and returns its inner markup with every id, id
// reference, and class name suffixed with a token unique to this call.
// Scripts, event handler attributes and editor metadata in foreign
// namespaces are dropped.
func (s *Sanitizer) Sanitize(name string, src []byte) (*Fragment, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}

	root := rootElement(doc)
	if root == nil {
		return nil, fmt.Errorf("%w: %s: no root <svg> element", ErrMalformed, name)
	}

	vb, err := resolveViewBox(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}

	suffix := makeSuffix(name, s.token())

	scrub(root)

	ids := make(map[string]string)
	walkElements(root, func(n *xmlquery.Node) {
		for i := range n.Attr {
			a := &n.Attr[i]
			if a.Name.Local == "id" && a.Name.Space == "" && a.Value != "" {
				renamed := a.Value + suffix
				ids[a.Value] = renamed
				a.Value = renamed
			}
		}
	})

	walkElements(root, func(n *xmlquery.Node) {
		for i := range n.Attr {
			a := &n.Attr[i]
			switch {
			case isHref(a.Name.Space, a.Name.Local):
				if strings.HasPrefix(a.Value, "#") {
					if renamed, ok := ids[a.Value[1:]]; ok {
						a.Value = "#" + renamed
					}
				}
			case a.Name.Local == "class" && a.Name.Space == "":
				a.Value = suffixClasses(a.Value, suffix)
			case a.Name.Local == "id" && a.Name.Space == "":
			default:
				a.Value = rewriteURLRefs(a.Value, ids)
			}
		}

		if n.Data == "style" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
					c.Data = rewriteStylesheet(c.Data, suffix, ids)
				}
			}
		}
	})

	return &Fragment{
		Name:    name,
		Suffix:  suffix,
		Inner:   root.OutputXML(false),
		ViewBox: vb,
	}, nil
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			if n.Data == "svg" {
				return n
			}
			return nil
		}
	}
	return nil
}

// resolveViewBox prefers an explicit viewBox and falls back to "0 0 w h"
// built from the root's width and height.
func resolveViewBox(root *xmlquery.Node) (ViewBox, error) {
	if raw := root.SelectAttr("viewBox"); strings.TrimSpace(raw) != "" {
		return ParseViewBox(raw)
	}

	w, wok := parseLength(root.SelectAttr("width"))
	h, hok := parseLength(root.SelectAttr("height"))
	if !wok || !hok {
		return ViewBox{}, errors.New("no viewBox and no usable width/height")
	}
	return ViewBox{Width: w, Height: h}, nil
}

// walkElements calls fn for every element below root in document order.
func walkElements(root *xmlquery.Node, fn func(*xmlquery.Node)) {
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		fn(n)
		walkElements(n, fn)
	}
}

// scrub removes everything below root that cannot be embedded safely:
// <script> elements, on* handler attributes, javascript: links, and
// elements or attributes in namespaces the composite does not declare.
func scrub(root *xmlquery.Node) {
	var drop []*xmlquery.Node
	walkElements(root, func(n *xmlquery.Node) {
		if strings.EqualFold(n.Data, "script") {
			drop = append(drop, n)
			return
		}
		if n.Prefix != "" {
			if n.NamespaceURI != svgNS {
				drop = append(drop, n)
				return
			}
			n.Prefix = ""
		}

		kept := n.Attr[:0]
		for _, a := range n.Attr {
			switch a.Name.Space {
			case "":
				if a.Name.Local == "xmlns" {
					continue
				}
			case "xlink", xlinkNS:
				a.Name.Space = "xlink"
			case "xml", xmlNS:
				a.Name.Space = "xml"
			default:
				continue
			}
			if strings.HasPrefix(strings.ToLower(a.Name.Local), "on") {
				continue
			}
			if isHref(a.Name.Space, a.Name.Local) &&
				strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Value)), "javascript:") {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	})
	for _, n := range drop {
		unlink(n)
	}
}

func unlink(n *xmlquery.Node) {
	parent := n.Parent
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	} else if parent != nil {
		parent.FirstChild = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	} else if parent != nil {
		parent.LastChild = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}

func isHref(space, local string) bool {
	return local == "href" && (space == "" || space == "xlink" || space == xlinkNS)
}

func suffixClasses(value, suffix string) string {
	fields := strings.Fields(value)
	for i, f := range fields {
		fields[i] = f + suffix
	}
	return strings.Join(fields, " ")
}
