package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitelinks/internal/pipeline"
)

// TermsCmd implements the 'terms' command.
type TermsCmd struct {
	Taxonomy string `arg:"" optional:"" help:"Only print this taxonomy"`
	Top      int    `help:"Print the N highest ranked terms instead of all terms"`
	Members  bool   `short:"m" help:"List member items under each term"`
}

func (t *TermsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	res, err := plan(context.Background(), cfg)
	if err != nil {
		return err
	}
	return t.print(os.Stdout, res)
}

func (t *TermsCmd) print(out io.Writer, res *pipeline.Result) error {
	found := false
	for _, tax := range res.Taxonomies {
		if t.Taxonomy != "" && tax.Name() != t.Taxonomy {
			continue
		}
		found = true
		_, _ = fmt.Fprintf(out, "%s (%d terms)\n", tax.Name(), tax.Len())
		terms := tax.AllTerms()
		if t.Top > 0 {
			terms = tax.TopTerms(t.Top)
		}
		for _, term := range terms {
			_, _ = fmt.Fprintf(out, "  %-24s %3d\n", term.Name, term.Count())
			if t.Members {
				for _, m := range term.Members {
					_, _ = fmt.Fprintf(out, "      %s\n", m.Current)
				}
			}
		}
	}
	if t.Taxonomy != "" && !found {
		return fmt.Errorf("taxonomy %q is not configured", t.Taxonomy)
	}
	return nil
}
