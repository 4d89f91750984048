package content

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// Well-known metadata keys. Authors may declare any other key; route patterns
// and taxonomies reference keys by name.
const (
	KeyTitle    = "title"
	KeyDate     = "date"
	KeyCategory = "category"
	KeyTags     = "tags"
	KeyDraft    = "draft"

	// Derived fields populated by the engine for templates.
	KeyLink         = "link"
	KeyLinkFromRoot = "linkFromRoot"
	KeyLinkAbsolute = "linkAbsolute"
	KeyPathToRoot   = "pathToRoot"

	// Fields carried by synthesized term index items.
	KeyTaxonomy = "taxonomy"
	KeyTerm     = "term"
	KeyMembers  = "members"
	KeyTerms    = "terms"
	KeyTopTerms = "topTerms"
)

// DefaultCategory is substituted when an item declares no category.
const DefaultCategory = "misc"

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Metadata is the per-item key/value bag decoded from front matter.
type Metadata map[string]any

// Set assigns a value, allocating the map when needed.
func (m *Metadata) Set(key string, value any) {
	if *m == nil {
		*m = Metadata{}
	}
	(*m)[key] = value
}

// Has reports whether key is present with a non-nil value.
func (m Metadata) Has(key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// String returns a scalar value rendered as a string. Empty strings count as absent.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case time.Time:
		s = val.Format("2006-01-02")
	case int, int64, float64, bool, uint64:
		s = fmt.Sprint(val)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Strings returns a list value. A plain string is split on commas so that
// `tags: a, b` and `tags: [a, b]` are equivalent.
func (m Metadata) Strings(key string) []string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	var raw []string
	switch val := v.(type) {
	case []string:
		raw = val
	case []any:
		for _, e := range val {
			if e == nil {
				continue
			}
			raw = append(raw, fmt.Sprint(e))
		}
	case string:
		raw = strings.Split(val, ",")
	default:
		if s, ok := m.String(key); ok {
			raw = []string{s}
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Time parses a date value.
func (m Metadata) Time(key string) (time.Time, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		val = strings.TrimSpace(val)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Bool reports a boolean flag; "true" and "yes" strings count as set.
func (m Metadata) Bool(key string) bool {
	switch val := m[key].(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}

// Title returns the title field.
func (m Metadata) Title() string {
	s, _ := m.String(KeyTitle)
	return s
}

// Date returns the publish date, zero when absent.
func (m Metadata) Date() time.Time {
	t, _ := m.Time(KeyDate)
	return t
}

// Category returns the category field or DefaultCategory.
func (m Metadata) Category() string {
	if s, ok := m.String(KeyCategory); ok {
		return s
	}
	return DefaultCategory
}

// Draft reports the draft flag.
func (m Metadata) Draft() bool { return m.Bool(KeyDraft) }

// Clone returns a shallow copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}
