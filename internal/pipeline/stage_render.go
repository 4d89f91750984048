package pipeline

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
	"git.home.luguber.info/inful/sitelinks/internal/reference"
)

// forEach runs fn over items on up to workers goroutines. Each call owns its
// item exclusively.
func forEach(ctx context.Context, workers int, items []*content.Item, fn func(*content.Item) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, it := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(it)
		})
	}
	return g.Wait()
}

// stageRender converts markdown items to HTML. Every link and image
// destination passes through the item's rewrite session on the way.
func stageRender(ctx context.Context, bs *BuildState) error {
	snap, err := bs.Tracker.BeginRewriting()
	if err != nil {
		return err
	}
	bs.Snapshot = snap
	bs.Resolver = reference.NewResolver(snap, bs.Builder.cfg.Content.MarkdownExtensions...)

	var markdown []*content.Item
	for _, it := range bs.Collection.Items() {
		if it.Kind == content.KindMarkdown {
			markdown = append(markdown, it)
		}
	}
	return forEach(ctx, bs.Builder.cfg.Build.Workers, markdown, func(it *content.Item) error {
		session := bs.Resolver.Session(it)
		out, err := bs.Builder.renderer.Render(it.Content, session.Rewrite)
		if err != nil {
			return errors.WrapError(err, errors.CategoryRender, "failed to render item").
				WithContext("item", it.Original()).
				Build()
		}
		it.Content = out
		bs.keepSession(it, session)
		return nil
	})
}

// stageRewriteReferences resolves references inside authored HTML items and
// normalizes the already rewritten references of rendered markdown.
func stageRewriteReferences(ctx context.Context, bs *BuildState) error {
	var pages []*content.Item
	for _, it := range bs.Collection.Items() {
		if it.Kind != content.KindAsset {
			pages = append(pages, it)
		}
	}
	err := forEach(ctx, bs.Builder.cfg.Build.Workers, pages, func(it *content.Item) error {
		mode, session := reference.ModeResolve, bs.Resolver.Session(it)
		// Rendered markdown reuses its render session so misses stay verbatim.
		rendered := false
		if it.Kind == content.KindMarkdown {
			if s, ok := bs.renderSession(it); ok {
				mode, session, rendered = reference.ModeNormalize, s, true
			}
		}
		out, err := session.RewriteHTML(it.Content, mode)
		if err != nil {
			return errors.WrapError(err, errors.CategoryRender, "failed to rewrite HTML references").
				WithContext("item", it.Original()).
				Build()
		}
		it.Content = out
		if !rendered {
			bs.addSession(session)
		}
		return nil
	})
	if err != nil {
		return err
	}
	reference.SortUnresolved(bs.Unresolved)
	rec := bs.recorder()
	rec.AddReferences(metrics.ReferenceRewritten, bs.Rewritten)
	rec.AddReferences(metrics.ReferenceUnresolved, len(bs.Unresolved))
	return nil
}

// stageContentReplace applies configured regexp replacements to rendered
// pages whose output path matches the replacement's glob.
func stageContentReplace(_ context.Context, bs *BuildState) error {
	for _, it := range bs.Collection.Items() {
		if !it.IsPage() {
			continue
		}
		for _, r := range bs.Builder.replacements {
			if r.file != "" {
				if ok, err := doublestar.Match(r.file, it.Current); err != nil || !ok {
					continue
				}
			}
			it.Content = r.re.ReplaceAll(it.Content, r.with)
		}
	}
	return nil
}
