package reference

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/identity"
)

type routed struct{ original, current string }

func fixture(t *testing.T, entries ...routed) (*Resolver, map[string]*content.Item) {
	t.Helper()
	tr := identity.NewTracker()
	items := map[string]*content.Item{}
	for _, e := range entries {
		require.NoError(t, tr.Record(e.original, e.current))
		it := content.NewItem(e.original, nil, nil, content.KindMarkdown)
		it.Current = e.current
		items[e.original] = it
	}
	return NewResolver(tr.Freeze()), items
}

func TestResolve_RoundTripIntegrity(t *testing.T) {
	r, items := fixture(t,
		routed{"posts/x/a.md", "posts/x/a/index.html"},
		routed{"posts/y/b.md", "posts/y/index.html"},
	)
	a := items["posts/x/a.md"]

	res := r.Resolve(a, "../y/b.md")
	require.Equal(t, StatusRewritten, res.Status)
	assert.Equal(t, "posts/y/b.md", res.Target)
	assert.Equal(t, "../../y/index.html", res.Value)
	assert.Equal(t, "posts/y/index.html", path.Join(path.Dir(a.Current), res.Value))
}

func TestResolve_FragmentPreserved(t *testing.T) {
	r, items := fixture(t,
		routed{"docs/guide.md", "docs/guide.html"},
		routed{"docs/other.md", "reference/other/index.html"},
	)
	res := r.Resolve(items["docs/guide.md"], "other.md#section-2")
	require.Equal(t, StatusRewritten, res.Status)
	assert.Equal(t, "../reference/other/index.html#section-2", res.Value)

	res = r.Resolve(items["docs/guide.md"], "other.md?v=1#Sec%20Two")
	assert.Equal(t, "../reference/other/index.html?v=1#Sec%20Two", res.Value)
}

func TestResolve_Skipped(t *testing.T) {
	r, items := fixture(t, routed{"a.md", "a.html"})
	for _, raw := range []string{"", "/abs/path.html", "//cdn.example.com/x.js", "#top", "?q=1", "https://example.com", "mailto:me@example.com", "data:image/png;base64,xx"} {
		res := r.Resolve(items["a.md"], raw)
		assert.Equal(t, StatusSkipped, res.Status, raw)
		assert.Equal(t, raw, res.Value, raw)
	}
}

func TestResolve_Unresolved(t *testing.T) {
	r, items := fixture(t, routed{"posts/a.md", "posts/a.html"})
	a := items["posts/a.md"]

	res := r.Resolve(a, "missing.md")
	assert.Equal(t, StatusUnresolved, res.Status)
	assert.Equal(t, "missing.md", res.Value)
	assert.Equal(t, "posts/missing.md", res.Target)

	res = r.Resolve(a, "../../outside.md")
	assert.Equal(t, StatusUnresolved, res.Status)
}

func TestResolve_IndexAndExtensionFallbacks(t *testing.T) {
	r, items := fixture(t,
		routed{"index.md", "index.html"},
		routed{"guide/index.md", "guide/index.html"},
		routed{"notes.md", "notes/index.html"},
		routed{"img/logo.png", "img/logo.png"},
	)
	root := items["index.md"]

	assert.Equal(t, "guide/index.html", r.Resolve(root, "guide/").Value)
	assert.Equal(t, "guide/index.html", r.Resolve(root, "guide").Value)
	assert.Equal(t, "notes/index.html", r.Resolve(root, "notes").Value)
	assert.Equal(t, "img/logo.png", r.Resolve(root, `.\img\logo.png`).Value)
	assert.Equal(t, "../index.html", r.Resolve(items["guide/index.md"], "..").Value)
}

func TestResolve_UsesOriginalDirectory(t *testing.T) {
	r, items := fixture(t,
		routed{"posts/x/a.md", "a/index.html"},
		routed{"posts/x/pic.png", "posts/x/pic.png"},
	)
	res := r.Resolve(items["posts/x/a.md"], "pic.png")
	assert.Equal(t, "../posts/x/pic.png", res.Value)
}

func TestResolve_EscapedPath(t *testing.T) {
	r, items := fixture(t,
		routed{"a.md", "a.html"},
		routed{"my notes.md", "my notes/index.html"},
	)
	assert.Equal(t, "my%20notes/index.html", r.Resolve(items["a.md"], "my%20notes.md").Value)
}

func TestSession_CollectsMisses(t *testing.T) {
	r, items := fixture(t, routed{"a.md", "a.html"}, routed{"b.md", "b.html"})
	s := r.Session(items["a.md"])

	assert.Equal(t, "b.html", s.Rewrite("b.md", KindLink))
	assert.Equal(t, "gone.png", s.Rewrite("gone.png", KindImage))
	assert.Equal(t, "https://x.test", s.Rewrite("https://x.test", KindLink))

	assert.Equal(t, 1, s.Rewritten())
	require.Len(t, s.Misses(), 1)
	miss := s.Misses()[0]
	assert.Equal(t, Unresolved{Source: "a.md", Current: "a.html", Raw: "gone.png", Kind: KindImage, Target: "gone.png"}, miss)
}

func TestNormalizeReference_Idempotent(t *testing.T) {
	for _, raw := range []string{
		"../../y/index.html",
		"./a/../b/",
		`a\b\c.html#frag`,
		"..",
		"../",
		"./",
		"x.html?a=1#b",
		"https://example.com/a/../b",
		"#top",
	} {
		once := NormalizeReference(raw)
		assert.Equal(t, once, NormalizeReference(once), raw)
	}
	assert.Equal(t, "b/", NormalizeReference("./a/../b/"))
	assert.Equal(t, "a/b/c.html#frag", NormalizeReference(`a\b\c.html#frag`))
	assert.Equal(t, "https://example.com/a/../b", NormalizeReference("https://example.com/a/../b"))
}

func TestSortUnresolved(t *testing.T) {
	u := []Unresolved{{Source: "b.md", Raw: "x"}, {Source: "a.md", Raw: "z"}, {Source: "a.md", Raw: "y"}}
	SortUnresolved(u)
	assert.Equal(t, []string{"a.md:y", "a.md:z", "b.md:x"}, []string{u[0].Source + ":" + u[0].Raw, u[1].Source + ":" + u[1].Raw, u[2].Source + ":" + u[2].Raw})
}
