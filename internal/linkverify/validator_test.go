package linkverify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/reference"
)

func page(current, body string) *content.Item {
	return content.NewItem(current, []byte(body), nil, content.KindHTML)
}

func reasons(r *Report) []Reason {
	out := make([]Reason, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Reason)
	}
	return out
}

func internalOnly() config.ValidationConfig {
	return config.ValidationConfig{Enabled: true}
}

func TestValidate_InternalReferences(t *testing.T) {
	items := []*content.Item{
		page("index.html", `<a href="guide/">Guide</a> <a href="guide/index.html#setup">Setup</a> <a href="#top">Top</a><h1 id="top">Home</h1>`),
		page("guide/index.html", `<h2 id="setup">Setup</h2><a href="../">Home</a> <a href="/">Root</a> <a href="../img/logo.png">logo</a>`),
		content.NewItem("img/logo.png", []byte{0x89}, nil, content.KindAsset),
	}

	v := NewValidator(internalOnly(), "")
	report, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)

	assert.Empty(t, report.Failures)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 6, report.Checked)
	assert.NotEmpty(t, report.BuildID)
	assert.NoError(t, report.Err())
}

func TestValidate_MissingTargetAndFragment(t *testing.T) {
	items := []*content.Item{
		page("a/index.html", `<a href="../b/index.html">B</a> <a href="../c/index.html#nope">C</a> <a href="#gone">self</a> <a href="../../outside.html">out</a>`),
		page("c/index.html", `<h2 id="here">Here</h2>`),
	}

	v := NewValidator(internalOnly(), "")
	report, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)

	require.Len(t, report.Failures, 4)
	byRaw := map[string]Failure{}
	for _, f := range report.Failures {
		byRaw[f.Raw] = f
	}
	assert.Equal(t, ReasonMissingTarget, byRaw["../b/index.html"].Reason)
	assert.Equal(t, "b/index.html", byRaw["../b/index.html"].Target)
	assert.Equal(t, ReasonMissingFragment, byRaw["../c/index.html#nope"].Reason)
	assert.Equal(t, "c/index.html#nope", byRaw["../c/index.html#nope"].Target)
	assert.Equal(t, ReasonMissingFragment, byRaw["#gone"].Reason)
	assert.Equal(t, ReasonMissingTarget, byRaw["../../outside.html"].Reason)

	assert.True(t, report.HasErrors())
	assert.Error(t, report.Err())
}

func TestValidate_RootedWithSiteBase(t *testing.T) {
	items := []*content.Item{
		page("index.html", `<a href="/docs/guide/">g</a> <a href="https://example.com/docs/guide/index.html">abs</a> <a href="/docs/missing">m</a>`),
		page("guide/index.html", `ok`),
	}

	v := NewValidator(internalOnly(), "https://example.com/docs/")
	report, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/docs/missing", report.Failures[0].Raw)
	assert.Equal(t, ReasonMissingTarget, report.Failures[0].Reason)
}

func TestValidate_UnresolvedFromRewrite(t *testing.T) {
	items := []*content.Item{
		page("posts/a.html", `<a href="missing.md">x</a> <a href="missing%20page.md">y</a>`),
	}
	unresolved := []reference.Unresolved{
		{Source: "posts/a.html", Current: "posts/a.html", Raw: "missing.md", Target: "posts/missing.md"},
		{Source: "posts/a.html", Current: "posts/a.html", Raw: "missing.md", Target: "posts/missing.md"},
		{Source: "posts/a.html", Current: "posts/a.html", Raw: "missing page.md", Target: "posts/missing page.md"},
	}

	v := NewValidator(internalOnly(), "")
	report, err := v.Validate(context.Background(), items, unresolved)
	require.NoError(t, err)

	assert.Equal(t, []Reason{ReasonUnresolved, ReasonUnresolved}, reasons(report))
	assert.Equal(t, 0, report.Checked)
}

// probeServer counts requests per path.
type probeServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newProbeServer(t *testing.T) *probeServer {
	t.Helper()
	ps := &probeServer{hits: map[string]int{}}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.hits[r.URL.Path]++
		n := ps.hits[r.URL.Path]
		ps.mu.Unlock()

		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/private":
			w.WriteHeader(http.StatusUnauthorized)
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
		case "/flaky":
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
		case "/dies":
			if n == 1 {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *probeServer) count(p string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.hits[p]
}

func externalConfig(mode config.ExternalMode, allowRedirects bool) config.ValidationConfig {
	return config.ValidationConfig{
		Enabled: true,
		External: config.ExternalConfig{
			Enabled:        true,
			Mode:           mode,
			AllowRedirects: allowRedirects,
			MaxRedirects:   3,
			Timeout:        "2s",
			MaxConcurrent:  4,
			Retry:          config.RetryConfig{Mode: config.RetryBackoffFixed, Initial: "1ms", Max: "1ms", MaxRetries: 2},
		},
	}
}

func TestValidate_ExternalProbes(t *testing.T) {
	ps := newProbeServer(t)
	items := []*content.Item{
		page("index.html", `<a href="`+ps.URL+`/ok">ok</a> <a href="`+ps.URL+`/ok#section">ok again</a>
<a href="`+ps.URL+`/missing">missing</a> <a href="`+ps.URL+`/private">private</a>
<a href="`+ps.URL+`/flaky">flaky</a> <a href="`+ps.URL+`/moved">moved</a>`),
	}

	v := NewValidator(externalConfig(config.ExternalModeWarn, false), "", WithHTTPClient(ps.Client()))
	report, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)

	require.Len(t, report.Failures, 2)
	byRaw := map[string]Failure{}
	for _, f := range report.Failures {
		byRaw[f.Raw] = f
	}
	missing := byRaw[ps.URL+"/missing"]
	assert.Equal(t, ReasonExternalStatus, missing.Reason)
	assert.Equal(t, http.StatusNotFound, missing.Status)
	assert.Equal(t, SeverityWarning, missing.Severity)
	moved := byRaw[ps.URL+"/moved"]
	assert.Equal(t, ReasonRedirect, moved.Reason)
	assert.Equal(t, http.StatusMovedPermanently, moved.Status)

	assert.Equal(t, 1, ps.count("/ok"), "fragment variants share one probe")
	assert.Equal(t, 1, ps.count("/missing"), "4xx is not retried")
	assert.Equal(t, 2, ps.count("/flaky"), "5xx is retried")
	assert.Equal(t, 5, report.Probed)

	assert.False(t, report.HasErrors())
	assert.Len(t, report.Warnings(), 2)
	assert.NoError(t, report.Err())
}

func TestValidate_FollowsRedirectsWhenAllowed(t *testing.T) {
	ps := newProbeServer(t)
	items := []*content.Item{page("index.html", `<a href="`+ps.URL+`/moved">moved</a>`)}

	v := NewValidator(externalConfig(config.ExternalModeWarn, true), "", WithHTTPClient(ps.Client()))
	report, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, ps.count("/ok"))
}

func TestValidate_FailModeBreaksBuild(t *testing.T) {
	ps := newProbeServer(t)
	items := []*content.Item{page("index.html", `<a href="`+ps.URL+`/down">down</a>`)}

	v := NewValidator(externalConfig(config.ExternalModeFail, false), "", WithHTTPClient(ps.Client()))
	report, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, SeverityError, report.Failures[0].Severity)
	assert.Equal(t, http.StatusBadGateway, report.Failures[0].Status)
	assert.Equal(t, 3, ps.count("/down"), "first attempt plus two retries")
	assert.True(t, report.HasErrors())
}

func TestValidate_ExternalDisabledOrSkipped(t *testing.T) {
	ps := newProbeServer(t)
	items := []*content.Item{page("index.html", `<a href="`+ps.URL+`/missing">missing</a>`)}

	v := NewValidator(internalOnly(), "", WithHTTPClient(ps.Client()))
	report, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)

	cfg := externalConfig(config.ExternalModeFail, false)
	cfg.External.SkipHosts = []string{"127.0.0.1"}
	v = NewValidator(cfg, "", WithHTTPClient(ps.Client()))
	report, err = v.Validate(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 0, ps.count("/missing"))
}

func TestValidate_ReusesCacheAcrossRuns(t *testing.T) {
	ps := newProbeServer(t)
	items := []*content.Item{
		page("clean.html", `<a href="`+ps.URL+`/ok">ok</a>`),
		page("broken.html", `<a href="`+ps.URL+`/missing">missing</a>`),
	}

	v := NewValidator(externalConfig(config.ExternalModeWarn, false), "", WithHTTPClient(ps.Client()))
	first, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)

	assert.Equal(t, reasons(first), reasons(second))
	assert.Equal(t, 1, ps.count("/ok"))
	assert.Equal(t, 1, ps.count("/missing"))
	assert.Equal(t, 0, second.Probed)
	assert.NotEqual(t, first.BuildID, second.BuildID)

	entry, err := v.cache.GetCachedResult(context.Background(), ps.URL+"/missing")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.IsValid)
	assert.Equal(t, 1, entry.FailureCount)
}

func TestValidate_RechecksUnchangedPageAfterTTL(t *testing.T) {
	ps := newProbeServer(t)
	items := []*content.Item{page("index.html", `<a href="`+ps.URL+`/dies">link</a>`)}

	cfg := externalConfig(config.ExternalModeFail, false)
	cfg.External.Cache = config.CacheConfig{TTL: "1ms", FailureTTL: "1ms"}
	v := NewValidator(cfg, "", WithHTTPClient(ps.Client()))

	first, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Empty(t, first.Failures)

	time.Sleep(10 * time.Millisecond)
	second, err := v.Validate(context.Background(), items, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, ps.count("/dies"))
	assert.Equal(t, 1, second.Probed)
	require.Len(t, second.Failures, 1)
	assert.Equal(t, http.StatusGone, second.Failures[0].Status)
	assert.Equal(t, SeverityError, second.Failures[0].Severity)
}

func TestValidate_PageEntryKeepsStalestCheckTime(t *testing.T) {
	ps := newProbeServer(t)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)
	v := NewValidator(externalConfig(config.ExternalModeWarn, false), "", WithHTTPClient(ps.Client()))
	require.NoError(t, v.cache.SetCachedResult(ctx, &CacheEntry{URL: ps.URL + "/ok", Status: 200, IsValid: true, LastChecked: old}))

	items := []*content.Item{page("index.html", `<a href="`+ps.URL+`/ok">ok</a> <a href="`+ps.URL+`/moved">moved</a>`)}
	report, err := v.Validate(ctx, items, nil)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1, "redirects fail while they are not allowed")

	entry, err := v.cache.GetPageEntry(ctx, "index.html")
	require.NoError(t, err)
	assert.Nil(t, entry, "pages with a failing link are not recorded")

	items = []*content.Item{page("index.html", `<a href="`+ps.URL+`/ok">ok</a>`)}
	_, err = v.Validate(ctx, items, nil)
	require.NoError(t, err)
	entry, err = v.cache.GetPageEntry(ctx, "index.html")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.CheckedAt.Equal(old), "stamped with the cached result's check time")
	assert.Equal(t, 0, ps.count("/ok"))
}

type recordingCache struct {
	*memoryCache
	mu     sync.Mutex
	events []*BrokenLinkEvent
}

func (c *recordingCache) PublishBrokenLink(_ context.Context, e *BrokenLinkEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func TestValidate_PublishesEvents(t *testing.T) {
	cache := &recordingCache{memoryCache: newMemoryCache()}
	p := content.NewItem("a.html", []byte(`<a href="b.html">b</a>`), content.Metadata{content.KeyTitle: "Page A"}, content.KindHTML)

	v := NewValidator(internalOnly(), "", WithCache(cache))
	report, err := v.Validate(context.Background(), []*content.Item{p}, nil)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	require.Len(t, cache.events, 1)
	e := cache.events[0]
	assert.Equal(t, report.BuildID, e.BuildID)
	assert.Equal(t, "Page A", e.Title)
	assert.Equal(t, ReasonMissingTarget, e.Reason)
	assert.Equal(t, "error", e.Severity)
	assert.False(t, e.Timestamp.IsZero())
}

func TestUpdateFailureTracking(t *testing.T) {
	first := &CacheEntry{IsValid: false}
	first.LastChecked = first.LastChecked.AddDate(2020, 0, 0)
	updateFailureTracking(first, nil)
	assert.Equal(t, 1, first.FailureCount)
	assert.Equal(t, first.LastChecked, first.FirstFailedAt)

	second := &CacheEntry{IsValid: false, LastChecked: first.LastChecked.AddDate(0, 0, 1)}
	updateFailureTracking(second, first)
	assert.Equal(t, 2, second.FailureCount)
	assert.Equal(t, first.FirstFailedAt, second.FirstFailedAt)
	assert.True(t, second.ConsecutiveFail)

	ok := &CacheEntry{IsValid: true}
	updateFailureTracking(ok, second)
	assert.Equal(t, 0, ok.FailureCount)
	assert.False(t, ok.ConsecutiveFail)
}
