package linkverify

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitelinks/internal/reference"
)

func TestParseDocument(t *testing.T) {
	body := []byte(`<html><head><link rel="stylesheet" href="../css/site.css"></head>
<body>
<h2 id="intro">Intro</h2>
<a name="legacy"></a>
<p><a href="../b/index.html#intro">B &amp; more</a> <img src="img/a.png" alt="diagram"></p>
<video src="clip.mp4" poster="still.jpg"></video>
<a href="">empty</a>
</body></html>`)

	doc, err := ParseDocument(body)
	require.NoError(t, err)

	assert.True(t, doc.HasAnchor("intro"))
	assert.True(t, doc.HasAnchor("legacy"))
	assert.False(t, doc.HasAnchor("missing"))

	var urls []string
	for _, l := range doc.Links {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{"../css/site.css", "../b/index.html#intro", "img/a.png", "clip.mp4", "still.jpg"}, urls)

	assert.Equal(t, "B & more", doc.Links[1].Text)
	assert.Equal(t, reference.KindLink, doc.Links[1].Kind)
	assert.Equal(t, "diagram", doc.Links[2].Text)
	assert.Equal(t, reference.KindImage, doc.Links[2].Kind)
	assert.Equal(t, "poster", doc.Links[4].Attribute)
}

func TestHasAnchor_Escaped(t *testing.T) {
	doc, err := ParseDocument([]byte(`<h2 id="caf&#233;">x</h2>`))
	require.NoError(t, err)
	assert.True(t, doc.HasAnchor("caf%C3%A9"))
}

func TestClassify(t *testing.T) {
	site, err := url.Parse("https://docs.example.com/handbook/")
	require.NoError(t, err)

	tests := []struct {
		raw    string
		class  linkClass
		target string
	}{
		{"", classSkip, ""},
		{"#top", classFragment, ""},
		{"mailto:a@example.com", classSkip, ""},
		{"javascript:void(0)", classSkip, ""},
		{"ftp://example.com/file", classSkip, ""},
		{"../b/index.html", classInternal, "../b/index.html"},
		{"/handbook/guide/index.html", classRooted, "guide/index.html"},
		{"/handbook", classRooted, ""},
		{"https://docs.example.com/handbook/guide/", classRooted, "guide/"},
		{"https://other.example.com/x", classExternal, "https://other.example.com/x"},
		{"//cdn.example.net/lib.js", classExternal, "https://cdn.example.net/lib.js"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			class, target := classify(tt.raw, site)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.target, target)
		})
	}
}

func TestClassify_NoSite(t *testing.T) {
	class, target := classify("/guide/", nil)
	assert.Equal(t, classRooted, class)
	assert.Equal(t, "guide/", target)

	class, _ = classify("https://example.com/", nil)
	assert.Equal(t, classExternal, class)
}
