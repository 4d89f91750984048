// Package reference rewrites relative references in rendered bodies so they
// resolve against the final output tree.
//
// Authors write references relative to the source layout. A reference is
// joined with the directory of the referencing item's original path, looked
// up in the frozen identity map, and re-emitted relative to the referencing
// item's current directory. Misses are passed through unchanged and reported.
package reference

import (
	"cmp"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/identity"
)

// Kind distinguishes hyperlinks from embedded resources.
type Kind int

const (
	KindLink Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "link"
}

// Status is the outcome of resolving one reference.
type Status int

const (
	StatusSkipped    Status = iota // absolute, scheme-qualified or fragment-only
	StatusRewritten                // resolved through the identity map
	StatusUnresolved               // no item has the target original path
)

// Result is the value to substitute for a reference.
type Result struct {
	Value  string
	Status Status
	Target string // normalized original path looked up, empty when skipped
}

// Unresolved records a reference that could not be resolved.
type Unresolved struct {
	Source  string // original path of the referencing item
	Current string // current path of the referencing item
	Raw     string
	Kind    Kind
	Target  string
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// Resolver resolves references against a frozen identity map. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	snap       *identity.Snapshot
	extensions []string
}

// NewResolver creates a resolver. sourceExts are the extensions tried when a
// reference omits one (".md" when empty).
func NewResolver(snap *identity.Snapshot, sourceExts ...string) *Resolver {
	if len(sourceExts) == 0 {
		sourceExts = []string{".md"}
	}
	return &Resolver{snap: snap, extensions: sourceExts}
}

// IsRelative reports whether raw is a reference this package rewrites.
func IsRelative(raw string) bool {
	if raw == "" || raw[0] == '/' || raw[0] == '#' || raw[0] == '?' {
		return false
	}
	return !schemeRe.MatchString(raw)
}

// split separates raw into path, query (with '?') and fragment (with '#').
func split(raw string) (p, query, fragment string) {
	p = raw
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p, fragment = p[:i], p[i:]
	}
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p, query = p[:i], p[i:]
	}
	return p, query, fragment
}

// Resolve computes the replacement for raw found in source's body.
func (r *Resolver) Resolve(source *content.Item, raw string) Result {
	if !IsRelative(raw) {
		return Result{Value: raw, Status: StatusSkipped}
	}
	rawPath, query, fragment := split(raw)
	if rawPath == "" {
		return Result{Value: raw, Status: StatusSkipped}
	}

	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		decoded = rawPath
	}
	escaped := decoded != rawPath
	decoded = strings.ReplaceAll(decoded, "\\", "/")

	target := path.Join(content.Dir(source.Original()), decoded)
	if target == ".." || strings.HasPrefix(target, "../") {
		return Result{Value: raw, Status: StatusUnresolved, Target: target}
	}
	if target == "." {
		target = ""
	}

	current, ok := r.lookup(target)
	if !ok {
		return Result{Value: raw, Status: StatusUnresolved, Target: target}
	}

	rel := content.RelativePath(content.Dir(source.Current), current)
	if escaped {
		rel = (&url.URL{Path: rel}).EscapedPath()
	}
	return Result{Value: rel + query + fragment, Status: StatusRewritten, Target: target}
}

func (r *Resolver) lookup(target string) (string, bool) {
	if target != "" {
		if cur, ok := r.snap.Resolve(target); ok {
			return cur, true
		}
	}
	if path.Ext(target) != "" {
		return "", false
	}
	var candidates []string
	if target != "" {
		for _, ext := range r.extensions {
			candidates = append(candidates, target+ext)
		}
	}
	for _, ext := range r.extensions {
		candidates = append(candidates, path.Join(target, "index"+ext))
	}
	candidates = append(candidates, path.Join(target, "index.html"))
	for _, c := range candidates {
		if cur, ok := r.snap.Resolve(c); ok {
			return cur, true
		}
	}
	return "", false
}

// Session rewrites the references of one item and collects its misses. A
// session is owned by a single goroutine.
type Session struct {
	r         *Resolver
	source    *content.Item
	misses    []Unresolved
	rewritten int
}

// Session starts rewriting for source.
func (r *Resolver) Session(source *content.Item) *Session {
	return &Session{r: r, source: source}
}

// Rewrite is the renderer callback: it returns the value to substitute for raw.
func (s *Session) Rewrite(raw string, kind Kind) string {
	res := s.r.Resolve(s.source, raw)
	switch res.Status {
	case StatusRewritten:
		s.rewritten++
	case StatusUnresolved:
		s.misses = append(s.misses, Unresolved{
			Source:  s.source.Original(),
			Current: s.source.Current,
			Raw:     raw,
			Kind:    kind,
			Target:  res.Target,
		})
	}
	return res.Value
}

// Misses returns the unresolved references seen so far.
func (s *Session) Misses() []Unresolved { return s.misses }

// missed reports whether raw, as it appears in rendered output, is one of the
// session's misses. The renderer may have percent-encoded the destination.
func (s *Session) missed(raw string) bool {
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		unescaped = raw
	}
	return slices.ContainsFunc(s.misses, func(u Unresolved) bool {
		return u.Raw == raw || u.Raw == unescaped
	})
}

// Rewritten returns how many references were rewritten.
func (s *Session) Rewritten() int { return s.rewritten }

// SortUnresolved orders misses by source then raw text.
func SortUnresolved(u []Unresolved) {
	slices.SortStableFunc(u, func(a, b Unresolved) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Raw, b.Raw))
	})
}

// NormalizeReference cleans the path part of a relative reference, unifying
// separators and collapsing `.` and `..`. Query and fragment are kept
// verbatim. Non-relative references are returned unchanged. Applying it to
// its own output returns the same string.
func NormalizeReference(raw string) string {
	if !IsRelative(raw) {
		return raw
	}
	p, query, fragment := split(raw)
	if p == "" {
		return raw
	}
	p = strings.ReplaceAll(p, "\\", "/")
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	if trailing && p != "." && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p + query + fragment
}
