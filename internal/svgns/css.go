package svgns

import (
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// urlRef matches url(#id) with optional quotes and inner whitespace.
var urlRef = regexp.MustCompile(`url\(\s*(['"]?)#([^)'"\s]+)(['"]?)\s*\)`)

// rewriteURLRefs points every url(#id) whose id is in ids at the renamed id.
// References to unknown ids are left alone.
func rewriteURLRefs(s string, ids map[string]string) string {
	if len(ids) == 0 || !strings.Contains(s, "url(") {
		return s
	}
	return urlRef.ReplaceAllStringFunc(s, func(m string) string {
		sub := urlRef.FindStringSubmatch(m)
		renamed, ok := ids[sub[2]]
		if !ok {
			return m
		}
		return "url(" + sub[1] + "#" + renamed + sub[3] + ")"
	})
}

type block int

const (
	ruleBlock block = iota // contains qualified rules, e.g. @media
	declBlock              // contains declarations
	opaqueBlock            // contents are never selectors, e.g. @keyframes
)

// groupingRules hold nested style rules whose selectors must be rewritten.
var groupingRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@layer":     true,
	"@container": true,
	"@document":  true,
	"@scope":     true,
}

type cssToken struct {
	tt   css.TokenType
	data string
}

// rewriteStylesheet appends suffix to every class selector in a stylesheet,
// including selectors nested in grouping at-rules, and renames #id selectors
// and url(#id) references found in ids. Declaration values are copied verbatim.
func rewriteStylesheet(src, suffix string, ids map[string]string) string {
	lexer := css.NewLexer(parse.NewInputString(src))

	var tokens []cssToken
	for {
		tt, data := lexer.Next()
		if tt == css.ErrorToken {
			break
		}
		tokens = append(tokens, cssToken{tt: tt, data: string(data)})
	}

	var (
		out       strings.Builder
		stack     []block
		atRule    string
		inPrelude bool
	)
	selectorContext := func() bool {
		return len(stack) == 0 || stack[len(stack)-1] == ruleBlock
	}
	out.Grow(len(src) + 8*len(suffix))

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.tt {
		case css.WhitespaceToken, css.CommentToken:
		case css.AtKeywordToken:
			if !inPrelude {
				atRule = strings.ToLower(tok.data)
			}
			inPrelude = true
		case css.LeftBraceToken:
			kind := opaqueBlock
			if selectorContext() {
				switch {
				case atRule == "":
					kind = declBlock
				case groupingRules[atRule]:
					kind = ruleBlock
				}
			}
			stack = append(stack, kind)
			atRule, inPrelude = "", false
		case css.RightBraceToken:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			atRule, inPrelude = "", false
		case css.SemicolonToken:
			atRule, inPrelude = "", false
		case css.DelimToken:
			inPrelude = true
			if tok.data == "." && atRule == "" && selectorContext() &&
				i+1 < len(tokens) && tokens[i+1].tt == css.IdentToken {
				out.WriteString(".")
				out.WriteString(tokens[i+1].data)
				out.WriteString(suffix)
				i++
				continue
			}
		case css.HashToken:
			inPrelude = true
			if atRule == "" && selectorContext() {
				if renamed, ok := ids[tok.data[1:]]; ok {
					out.WriteString("#" + renamed)
					continue
				}
			}
		default:
			inPrelude = true
		}
		out.WriteString(tok.data)
	}

	return rewriteURLRefs(out.String(), ids)
}
