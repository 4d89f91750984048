// Package feed builds an RSS 2.0 document from routed pages using their
// absolute links.
package feed

import (
	"encoding/xml"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

// KeyDescription is the front matter field used as an entry summary.
const KeyDescription = "description"

// Options describes the channel and which pages it lists.
type Options struct {
	Title       string
	Link        string // absolute site root
	Description string
	Source      string // doublestar glob over original paths; empty matches every page
	Limit       int    // zero lists every matching page
}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string  `xml:"title"`
	Link          string  `xml:"link"`
	Description   string  `xml:"description"`
	Generator     string  `xml:"generator"`
	LastBuildDate string  `xml:"lastBuildDate,omitempty"`
	Items         []entry `xml:"item"`
}

type guid struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type entry struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        guid   `xml:"guid"`
	PubDate     string `xml:"pubDate,omitempty"`
	Description string `xml:"description,omitempty"`
}

// Select returns the pages matching the source glob, newest first with
// undated pages last, capped at the limit. Synthetic pages and pages without
// an absolute link are skipped.
func Select(opts Options, items []*content.Item) []*content.Item {
	var out []*content.Item
	for _, it := range items {
		if it.Synthetic || !it.IsHTMLOutput() {
			continue
		}
		if _, ok := it.Meta.String(content.KeyLinkAbsolute); !ok {
			continue
		}
		if opts.Source != "" {
			if ok, _ := doublestar.Match(opts.Source, it.Original()); !ok {
				continue
			}
		}
		out = append(out, it)
	}
	slices.SortStableFunc(out, func(a, b *content.Item) int {
		if c := b.Meta.Date().Compare(a.Meta.Date()); c != 0 {
			return c
		}
		return strings.Compare(a.Original(), b.Original())
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Build renders the feed document for the selected pages.
func Build(opts Options, items []*content.Item) ([]byte, error) {
	if opts.Link == "" {
		return nil, errors.ConfigError("feed requires an absolute site url").Build()
	}
	doc := rss{
		Version: "2.0",
		Channel: channel{
			Title:       opts.Title,
			Link:        strings.TrimRight(opts.Link, "/") + "/",
			Description: opts.Description,
			Generator:   "sitelinks",
		},
	}

	var newest time.Time
	for _, it := range Select(opts, items) {
		link, _ := it.Meta.String(content.KeyLinkAbsolute)
		e := entry{
			Title: it.Meta.Title(),
			Link:  link,
			GUID:  guid{IsPermaLink: true, Value: link},
		}
		if e.Title == "" {
			e.Title = it.Original()
		}
		if d := it.Meta.Date(); !d.IsZero() {
			e.PubDate = d.UTC().Format(time.RFC1123Z)
			if d.After(newest) {
				newest = d
			}
		}
		e.Description, _ = it.Meta.String(KeyDescription)
		doc.Channel.Items = append(doc.Channel.Items, e)
	}
	if !newest.IsZero() {
		doc.Channel.LastBuildDate = newest.UTC().Format(time.RFC1123Z)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "failed to encode feed").Build()
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
