// Package route derives output paths for content items from ordered pattern rules.
package route

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goliatone/go-slug"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

// Rule pairs a pattern with the items it applies to.
type Rule struct {
	// Match is a doublestar glob over original paths; empty matches every item.
	Match    string
	Pattern  Pattern
	Defaults map[string]string
}

// NewRule parses pattern and validates match.
func NewRule(match, pattern string, defaults map[string]string) (Rule, error) {
	if match != "" && !doublestar.ValidatePattern(match) {
		return Rule{}, errors.RouteError("malformed route match glob").WithContext("match", match).Build()
	}
	p, err := Parse(pattern)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Match: match, Pattern: p, Defaults: defaults}, nil
}

// Applies reports whether the rule's glob selects the item.
func (r Rule) Applies(it *content.Item) bool {
	if r.Match == "" {
		return true
	}
	ok, err := doublestar.Match(r.Match, it.Original())
	return err == nil && ok
}

// Assigner applies rules in declaration order.
type Assigner struct {
	rules []Rule
}

// NewAssigner returns an assigner over rules.
func NewAssigner(rules ...Rule) *Assigner {
	return &Assigner{rules: rules}
}

// Rules returns the configured rules.
func (a *Assigner) Rules() []Rule { return a.rules }

// Assign returns the output path for it. The first rule whose glob selects the
// item and whose required captures all resolve wins. When nothing matches the
// item keeps its original path and matched is false; misses are never errors.
func (a *Assigner) Assign(it *content.Item) (string, bool) {
	for _, r := range a.rules {
		if !r.Applies(it) {
			continue
		}
		if out, ok := r.Pattern.Expand(captureLookup(it, r.Defaults)); ok {
			return out, true
		}
	}
	return it.Original(), false
}

// captureLookup resolves a capture from item metadata, then rule defaults,
// then path built-ins. An absent category resolves to the "misc" sentinel.
func captureLookup(it *content.Item, defaults map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if v, ok := it.Meta.String(name); ok {
			return Slug(v), true
		}
		if v, ok := defaults[name]; ok && v != "" {
			return Slug(v), true
		}
		if v, ok := builtin(it, name); ok {
			return v, true
		}
		if name == content.KeyCategory {
			return content.DefaultCategory, true
		}
		return "", false
	}
}

func builtin(it *content.Item, name string) (string, bool) {
	orig := it.Original()
	dir := path.Dir(orig)
	if dir == "." {
		dir = ""
	}
	ext := path.Ext(orig)
	base := strings.TrimSuffix(path.Base(orig), ext)

	switch name {
	case "dir":
		return dir, true
	case "basename":
		return base, base != ""
	case "ext":
		return strings.TrimPrefix(ext, "."), ext != ""
	case "path":
		return strings.TrimSuffix(orig, ext), orig != ""
	case "slug":
		if title := it.Meta.Title(); title != "" {
			return Slug(title), true
		}
		return Slug(base), base != ""
	}

	date := it.Meta.Date()
	if date.IsZero() {
		return "", false
	}
	switch name {
	case "date":
		return date.Format("2006-01-02"), true
	case "year":
		return fmt.Sprintf("%04d", date.Year()), true
	case "month":
		return fmt.Sprintf("%02d", int(date.Month())), true
	case "day":
		return fmt.Sprintf("%02d", date.Day()), true
	}
	return "", false
}

// Slug normalizes a metadata value for use as a path segment.
func Slug(v string) string {
	if s, err := slug.Normalize(v); err == nil && s != "" {
		return s
	}
	return fallbackSlug(v)
}

func fallbackSlug(v string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		switch {
		case r == '/' || r == '\\' || r == '.' || r == ' ' || r == '_' || r == '-':
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		case r < 0x20 || strings.ContainsRune(`?#%:*"<>|`, r):
		default:
			b.WriteRune(r)
			dash = false
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
