package feed

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

func page(original, current, title string, date time.Time) *content.Item {
	meta := content.Metadata{content.KeyTitle: title}
	if !date.IsZero() {
		meta[content.KeyDate] = date
	}
	it := content.NewItem(original, nil, meta, content.KindMarkdown)
	it.Current = current
	it.Meta.Set(content.KeyLinkAbsolute, "https://example.com/"+current)
	return it
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func originals(items []*content.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Original())
	}
	return out
}

func TestSelect(t *testing.T) {
	term := page("tags/go/index.html", "tags/go/index.html", "go", day("2024-03-01"))
	term.Synthetic = true
	unlinked := content.NewItem("posts/local.md", nil, content.Metadata{}, content.KindMarkdown)
	unlinked.Current = "posts/local.html"
	items := []*content.Item{
		page("posts/a.md", "a.html", "A", day("2024-01-01")),
		page("posts/undated.md", "undated.html", "U", time.Time{}),
		page("posts/c.md", "c.html", "C", day("2024-03-01")),
		page("about.md", "about.html", "About", day("2025-01-01")),
		page("posts/b.md", "b.html", "B", day("2024-03-01")),
		term,
		unlinked,
	}

	got := Select(Options{Source: "posts/*.md"}, items)
	assert.Equal(t, []string{"posts/b.md", "posts/c.md", "posts/a.md", "posts/undated.md"}, originals(got))

	got = Select(Options{Source: "posts/*.md", Limit: 2}, items)
	assert.Equal(t, []string{"posts/b.md", "posts/c.md"}, originals(got))

	got = Select(Options{}, items)
	assert.Equal(t, "about.md", got[0].Original())
	assert.Len(t, got, 5)
}

func TestBuild(t *testing.T) {
	post := page("posts/hello.md", "blog/hello/index.html", "Hello & welcome", day("2024-05-06"))
	post.Meta.Set(content.KeyLinkAbsolute, "https://example.com/blog/hello/")
	post.Meta.Set(KeyDescription, "First <post>")
	opts := Options{Title: "Schemescape", Link: "https://example.com", Description: "Notes", Limit: 5}

	out, err := Build(opts, []*content.Item{post})
	require.NoError(t, err)
	assert.Contains(t, string(out), xml.Header)

	var doc rss
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Equal(t, "2.0", doc.Version)
	assert.Equal(t, "Schemescape", doc.Channel.Title)
	assert.Equal(t, "https://example.com/", doc.Channel.Link)
	assert.Equal(t, "Notes", doc.Channel.Description)
	require.Len(t, doc.Channel.Items, 1)

	e := doc.Channel.Items[0]
	assert.Equal(t, "Hello & welcome", e.Title)
	assert.Equal(t, "https://example.com/blog/hello/", e.Link)
	assert.Equal(t, "https://example.com/blog/hello/", e.GUID.Value)
	assert.True(t, e.GUID.IsPermaLink)
	assert.Equal(t, "First <post>", e.Description)
	assert.Equal(t, "Mon, 06 May 2024 00:00:00 +0000", e.PubDate)
	assert.Equal(t, e.PubDate, doc.Channel.LastBuildDate)
}

func TestBuild_RequiresSiteURL(t *testing.T) {
	_, err := Build(Options{Title: "x"}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestBuild_EmptyChannel(t *testing.T) {
	out, err := Build(Options{Title: "x", Link: "https://example.com/"}, nil)
	require.NoError(t, err)

	var doc rss
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Empty(t, doc.Channel.Items)
	assert.Empty(t, doc.Channel.LastBuildDate)
}
