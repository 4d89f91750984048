package reference

import (
	"bytes"
	"io"
	"slices"

	"golang.org/x/net/html"
)

// Mode selects what the HTML pass does with each relative reference.
type Mode int

const (
	// ModeResolve resolves references through the identity map. Used for
	// authored HTML, which the markdown renderer never sees.
	ModeResolve Mode = iota
	// ModeNormalize only cleans already-rewritten references. References the
	// session recorded as misses are left exactly as authored.
	ModeNormalize
)

// referenceAttrs maps tag names to the attributes that carry references.
var referenceAttrs = map[string][]string{
	"a":      {"href"},
	"area":   {"href"},
	"link":   {"href"},
	"img":    {"src"},
	"script": {"src"},
	"source": {"src"},
	"video":  {"src", "poster"},
	"audio":  {"src"},
	"iframe": {"src"},
	"track":  {"src"},
}

func attrKind(tag string) Kind {
	switch tag {
	case "a", "area", "link", "iframe":
		return KindLink
	default:
		return KindImage
	}
}

// RewriteHTML walks body with the HTML tokenizer and rewrites reference
// attributes. Tokens that carry no changed reference are copied byte for byte.
func (s *Session) RewriteHTML(body []byte, mode Mode) ([]byte, error) {
	fn := func(raw string, kind Kind) string {
		if mode == ModeNormalize {
			if s.missed(raw) {
				return raw
			}
			return NormalizeReference(raw)
		}
		return s.Rewrite(raw, kind)
	}
	return rewriteHTML(body, fn)
}

func rewriteHTML(body []byte, fn func(string, Kind) string) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(body))

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return out.Bytes(), nil
		}

		raw := append([]byte(nil), z.Raw()...)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}

		tok := z.Token()
		attrs, ok := referenceAttrs[tok.Data]
		if !ok {
			out.Write(raw)
			continue
		}

		changed := false
		for i := range tok.Attr {
			a := &tok.Attr[i]
			if a.Namespace != "" || !slices.Contains(attrs, a.Key) {
				continue
			}
			if v := fn(a.Val, attrKind(tok.Data)); v != a.Val {
				a.Val = v
				changed = true
			}
		}
		if changed {
			out.WriteString(tok.String())
		} else {
			out.Write(raw)
		}
	}
}
