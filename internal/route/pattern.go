package route

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

type partKind int

const (
	partLiteral partKind = iota
	partCapture
	partOptional
)

type part struct {
	kind  partKind
	text  string // literal text or capture name
	group []part // members of an optional group
}

// Pattern is a parsed route template. Segments are literals, `:name`
// captures, or `( ... )` optional groups which are dropped whole when any
// capture inside them has no value.
type Pattern struct {
	raw   string
	parts []part
}

// String returns the source text of the pattern.
func (p Pattern) String() string { return p.raw }

// Captures lists capture names in order of appearance.
func (p Pattern) Captures() []string {
	var names []string
	var walk func([]part)
	walk = func(parts []part) {
		for _, pt := range parts {
			switch pt.kind {
			case partCapture:
				names = append(names, pt.text)
			case partOptional:
				walk(pt.group)
			}
		}
	}
	walk(p.parts)
	return names
}

// Parse compiles a pattern. Malformed patterns return a fatal route error.
func Parse(raw string) (Pattern, error) {
	if strings.TrimSpace(raw) == "" {
		return Pattern{}, patternError(raw, "empty pattern", -1)
	}

	var (
		top     []part
		group   []part
		inGroup bool
		lit     strings.Builder
	)
	emit := func(pt part) {
		if inGroup {
			group = append(group, pt)
		} else {
			top = append(top, pt)
		}
	}
	flush := func() {
		if lit.Len() > 0 {
			emit(part{kind: partLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '(':
			if inGroup {
				return Pattern{}, patternError(raw, "nested optional group", i)
			}
			flush()
			inGroup = true
		case ')':
			if !inGroup {
				return Pattern{}, patternError(raw, "unbalanced ')'", i)
			}
			flush()
			if len(group) == 0 {
				return Pattern{}, patternError(raw, "empty optional group", i)
			}
			top = append(top, part{kind: partOptional, group: group})
			group = nil
			inGroup = false
		case ':':
			j := i + 1
			for j < len(raw) && isNameByte(raw[j]) {
				j++
			}
			if j == i+1 {
				return Pattern{}, patternError(raw, "capture without a name", i)
			}
			flush()
			emit(part{kind: partCapture, text: raw[i+1 : j]})
			i = j - 1
		default:
			lit.WriteByte(c)
		}
	}
	if inGroup {
		return Pattern{}, patternError(raw, "unclosed optional group", len(raw))
	}
	flush()
	return Pattern{raw: raw, parts: top}, nil
}

// MustParse is Parse for static patterns; it panics on error.
func MustParse(raw string) Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Expand substitutes captures using lookup. It reports false when a required
// capture has no value. The result is normalized by NormalizeOutput.
func (p Pattern) Expand(lookup func(name string) (string, bool)) (string, bool) {
	var b strings.Builder
	for _, pt := range p.parts {
		switch pt.kind {
		case partLiteral:
			b.WriteString(pt.text)
		case partCapture:
			v, ok := lookup(pt.text)
			if !ok {
				return "", false
			}
			b.WriteString(v)
		case partOptional:
			b.WriteString(expandOptional(pt.group, lookup))
		}
	}
	out := NormalizeOutput(b.String())
	return out, out != ""
}

func expandOptional(group []part, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for _, pt := range group {
		if pt.kind == partLiteral {
			b.WriteString(pt.text)
			continue
		}
		v, ok := lookup(pt.text)
		if !ok || v == "" {
			return ""
		}
		b.WriteString(v)
	}
	return b.String()
}

// NormalizeOutput collapses repeated separators, strips the leading slash and
// turns a trailing slash into a directory index.
func NormalizeOutput(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	dirIndex := strings.HasSuffix(p, "/")
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if dirIndex {
		if p == "" {
			return "index.html"
		}
		p += "/index.html"
	}
	return p
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func patternError(raw, reason string, offset int) error {
	b := errors.RouteError("malformed route pattern: "+reason).WithContext("pattern", raw)
	if offset >= 0 {
		b = b.WithContext("offset", offset)
	}
	return b.Build()
}
