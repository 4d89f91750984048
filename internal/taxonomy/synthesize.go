package taxonomy

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

var titleCaser = cases.Title(language.Und)

// Synthesize creates one term index item per term, plus the overview item
// when the definition has an Index route. Items are routed by the taxonomy's
// own rules and their original path equals their routed path. Bodies are
// markdown whose links point at each member's original path, relative to the
// term page, so the regular reference pass rewrites them.
func Synthesize(tax *Taxonomy) ([]*content.Item, error) {
	def := tax.Def
	if def.Routes == nil {
		return nil, errors.ConfigError("taxonomy has no term route").WithContext("taxonomy", def.Name).Build()
	}

	terms := tax.AllTerms()
	items := make([]*content.Item, 0, len(terms)+1)
	termPaths := make(map[string]string, len(terms))

	for _, term := range terms {
		meta := content.Metadata{
			content.KeyTitle:    fmt.Sprintf("%s: %s", titleCaser.String(singular(def)), term.Name),
			content.KeyTaxonomy: def.Name,
			content.KeyTerm:     term.Slug,
			content.KeyMembers:  originals(term.Members),
		}
		if newest := term.Newest(); !newest.IsZero() {
			meta[content.KeyDate] = newest
		}

		probe := content.NewItem("", nil, meta, content.KindMarkdown)
		p, ok := def.Routes.Assign(probe)
		if !ok {
			return nil, errors.ConfigError("taxonomy pattern produced no path for term").
				WithContext("taxonomy", def.Name).
				WithContext("term", term.Name).
				Build()
		}
		termPaths[term.Slug] = p

		it := content.NewItem(p, termBody(p, meta.Title(), term.Members), meta, content.KindMarkdown)
		it.Synthetic = true
		items = append(items, it)
	}

	if def.Index != nil {
		meta := content.Metadata{
			content.KeyTitle:    titleCaser.String(def.Name),
			content.KeyTaxonomy: def.Name,
			content.KeyTerms:    termNames(terms),
			content.KeyTopTerms: termNames(tax.TopTerms(def.TopLimit)),
		}
		p, ok := def.Index.Pattern.Expand(func(name string) (string, bool) {
			if name == content.KeyTaxonomy {
				return def.Name, true
			}
			return "", false
		})
		if !ok {
			return nil, errors.ConfigError("taxonomy index pattern produced no path").
				WithContext("taxonomy", def.Name).
				WithContext("pattern", def.Index.Pattern.String()).
				Build()
		}
		it := content.NewItem(p, overviewBody(p, meta.Title(), terms, termPaths), meta, content.KindMarkdown)
		it.Synthetic = true
		items = append(items, it)
	}
	return items, nil
}

func singular(def Definition) string {
	if def.Singular != "" {
		return def.Singular
	}
	return def.Name
}

func termBody(self, title string, members []*content.Item) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeText(title))
	dir := content.Dir(self)
	for _, m := range members {
		label := m.Meta.Title()
		if label == "" {
			label = m.Original()
		}
		fmt.Fprintf(&b, "- [%s](%s)\n", escapeText(label), linkTarget(content.RelativePath(dir, m.Original())))
	}
	return []byte(b.String())
}

func overviewBody(self, title string, terms []*Term, paths map[string]string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeText(title))
	dir := content.Dir(self)
	for _, term := range terms {
		fmt.Fprintf(&b, "- [%s](%s) (%d)\n", escapeText(term.Name), linkTarget(content.RelativePath(dir, paths[term.Slug])), term.Count())
	}
	return []byte(b.String())
}

func originals(items []*content.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Original()
	}
	return out
}

func termNames(terms []*Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Name
	}
	return out
}

var textEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`)

func escapeText(s string) string { return textEscaper.Replace(s) }

// linkTarget wraps destinations containing spaces or parentheses in angle brackets.
func linkTarget(p string) string {
	if strings.ContainsAny(p, " ()") {
		return "<" + p + ">"
	}
	return p
}
