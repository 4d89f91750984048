package pipeline

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/feed"
	"git.home.luguber.info/inful/sitelinks/internal/logfields"
)

// stageReserveFeed claims the feed path before the identity map freezes so
// references to it resolve and an authored page at the same path is fatal.
func stageReserveFeed(_ context.Context, bs *BuildState) error {
	it := content.NewItem(bs.Builder.cfg.Feed.Path, nil, nil, content.KindAsset)
	it.Synthetic = true
	if err := bs.Tracker.RecordSynthetic(it.Current); err != nil {
		return err
	}
	if err := bs.Collection.Add(it); err != nil {
		return err
	}
	bs.Feed = it
	return nil
}

// stageBuildFeed fills the reserved feed with the newest matching pages. It
// runs after derive_links because entries use linkAbsolute.
func stageBuildFeed(_ context.Context, bs *BuildState) error {
	cfg := bs.Builder.cfg
	opts := feed.Options{
		Title:       cfg.Site.Title,
		Link:        cfg.Site.URL,
		Description: cfg.Site.Description,
		Source:      cfg.Feed.Source,
		Limit:       cfg.Feed.Limit,
	}
	items := bs.Collection.Items()
	out, err := feed.Build(opts, items)
	if err != nil {
		return err
	}
	bs.Feed.Content = out
	slog.Debug("Feed built", logfields.CurrentPath(bs.Feed.Current), logfields.Count(len(feed.Select(opts, items))))
	return nil
}
