// Package taxonomy groups items by classification terms and synthesizes term
// index pages.
package taxonomy

import (
	"cmp"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/route"
)

// Definition declares one taxonomy.
type Definition struct {
	Name     string
	Singular string
	// Source is a doublestar glob over original paths; empty selects every page.
	Source string
	// Fields are the metadata keys that supply terms.
	Fields []string
	// Routes assign term index pages; captures see `term` and `taxonomy`.
	Routes *route.Assigner
	// Index, when set, routes a single overview page listing every term.
	Index    *route.Rule
	TopLimit int
}

// Term is one value of a taxonomy with its member items.
type Term struct {
	Name    string // as first written by an author
	Slug    string
	Members []*content.Item
}

// Count returns the number of members.
func (t *Term) Count() int { return len(t.Members) }

// Newest returns the publish date of the most recent member.
func (t *Term) Newest() time.Time {
	var newest time.Time
	for _, m := range t.Members {
		if d := m.Meta.Date(); d.After(newest) {
			newest = d
		}
	}
	return newest
}

// Taxonomy is the term to members mapping for one definition.
type Taxonomy struct {
	Def   Definition
	terms map[string]*Term
	order []string
}

// Aggregate builds the taxonomy from items. Terms are keyed by slug so that
// differently cased spellings merge; an item appears at most once per term.
// Members are ordered by publish date descending, keeping insertion order for
// equal dates.
func Aggregate(def Definition, items []*content.Item) *Taxonomy {
	tax := &Taxonomy{Def: def, terms: map[string]*Term{}}
	for _, it := range items {
		if it.Synthetic || !it.IsPage() || !selects(def.Source, it) {
			continue
		}
		for _, field := range def.Fields {
			for _, raw := range it.Meta.Strings(field) {
				tax.add(raw, it)
			}
		}
	}
	for _, term := range tax.terms {
		slices.SortStableFunc(term.Members, func(a, b *content.Item) int {
			return b.Meta.Date().Compare(a.Meta.Date())
		})
	}
	return tax
}

func (t *Taxonomy) add(raw string, it *content.Item) {
	key := route.Slug(raw)
	if key == "" {
		return
	}
	term, ok := t.terms[key]
	if !ok {
		term = &Term{Name: raw, Slug: key}
		t.terms[key] = term
		t.order = append(t.order, key)
	}
	if !slices.Contains(term.Members, it) {
		term.Members = append(term.Members, it)
	}
}

func selects(glob string, it *content.Item) bool {
	if glob == "" {
		return true
	}
	ok, err := doublestar.Match(glob, it.Original())
	return err == nil && ok
}

// Name returns the taxonomy name.
func (t *Taxonomy) Name() string { return t.Def.Name }

// Len returns the number of terms.
func (t *Taxonomy) Len() int { return len(t.terms) }

// Term looks a term up by name or slug.
func (t *Taxonomy) Term(name string) (*Term, bool) {
	term, ok := t.terms[route.Slug(name)]
	return term, ok
}

// Members returns the ordered members of a term.
func (t *Taxonomy) Members(name string) []*content.Item {
	if term, ok := t.Term(name); ok {
		return term.Members
	}
	return nil
}

// AllTerms returns every term sorted lexicographically by name.
func (t *Taxonomy) AllTerms() []*Term {
	out := t.collect()
	slices.SortFunc(out, func(a, b *Term) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Slug, b.Slug))
	})
	return out
}

// TopTerms ranks terms by member count descending, then by the date of each
// term's newest member descending, then by name. n <= 0 returns every term.
func (t *Taxonomy) TopTerms(n int) []*Term {
	out := t.collect()
	slices.SortFunc(out, func(a, b *Term) int {
		return cmp.Or(
			cmp.Compare(b.Count(), a.Count()),
			b.Newest().Compare(a.Newest()),
			cmp.Compare(a.Name, b.Name),
		)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (t *Taxonomy) collect() []*Term {
	out := make([]*Term, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.terms[key])
	}
	return out
}
