package pipeline

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/logfields"
	"git.home.luguber.info/inful/sitelinks/internal/taxonomy"
)

func stageDropDrafts(_ context.Context, bs *BuildState) error {
	bs.Drafts = bs.Collection.RemoveFunc(func(it *content.Item) bool { return it.Meta.Draft() })
	if bs.Drafts > 0 {
		slog.Info("Dropped draft items", logfields.Count(bs.Drafts))
	}
	return nil
}

// stageAssignRoutes gives every authored item its output path and records the
// mapping. Items no rule places keep their original path.
func stageAssignRoutes(_ context.Context, bs *BuildState) error {
	for _, it := range bs.Collection.Items() {
		if it.Synthetic {
			continue
		}
		p, matched := bs.Builder.assigner.Assign(it)
		if err := bs.Tracker.Record(it.Original(), p); err != nil {
			return err
		}
		it.Current = p
		if matched {
			bs.Matched++
			slog.Debug("Route assigned", logfields.OriginalPath(it.Original()), logfields.CurrentPath(p))
		}
	}
	return nil
}

// stageAggregateTaxonomies groups routed items by term and regenerates the
// term index pages, replacing any left by an earlier run over the collection.
// Synthesized items claim their paths in the identity map like any other
// item, so a collision with an authored page is fatal.
func stageAggregateTaxonomies(_ context.Context, bs *BuildState) error {
	if n := bs.Collection.RemoveSynthetic(); n > 0 {
		slog.Debug("Removed stale term pages", logfields.Count(n))
	}
	items := bs.Collection.Items()
	for _, def := range bs.Builder.taxonomies {
		tax := taxonomy.Aggregate(def, items)
		pages, err := taxonomy.Synthesize(tax)
		if err != nil {
			return err
		}
		for _, it := range pages {
			if err := bs.Tracker.RecordSynthetic(it.Current); err != nil {
				return err
			}
			if err := bs.Collection.Add(it); err != nil {
				return err
			}
		}
		bs.Taxonomies = append(bs.Taxonomies, tax)
		slog.Debug("Taxonomy aggregated",
			logfields.Taxonomy(def.Name),
			slog.Int("terms", tax.Len()),
			slog.Int("pages", len(pages)))
	}
	bs.recorder().SetItems(bs.Collection.Len())
	return nil
}

func stageFreezeIdentity(_ context.Context, bs *BuildState) error {
	bs.Snapshot = bs.Tracker.Freeze()
	slog.Debug("Identity map frozen", logfields.Count(bs.Snapshot.Len()))
	return nil
}
