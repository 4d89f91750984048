// Package linkverify is the final gate before publish: it re-scans every
// emitted reference in the finished output tree and reports each one that
// does not resolve.
package linkverify

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inful/mdfp"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/logfields"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
	"git.home.luguber.info/inful/sitelinks/internal/reference"
)

// Validator checks internal references against the output tree and probes
// external ones.
type Validator struct {
	cfg      config.ExternalConfig
	site     *url.URL
	cache    cacheClient
	ttl      cacheTTL
	prober   *prober
	recorder metrics.Recorder
}

// Option configures a Validator.
type Option func(*Validator)

// WithHTTPClient replaces the HTTP client used for probes.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Validator) { v.prober = newProber(v.cfg, c) }
}

// WithCache replaces the default in-memory probe cache.
func WithCache(c cacheClient) Option {
	return func(v *Validator) { v.cache = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(v *Validator) { v.recorder = r }
}

// NewValidator creates a validator. siteURL may be empty; when set, absolute
// links on the same host are checked against the tree instead of probed.
func NewValidator(cfg config.ValidationConfig, siteURL string, opts ...Option) *Validator {
	v := &Validator{
		cfg:   cfg.External,
		cache: newMemoryCache(),
		ttl: cacheTTL{
			success: config.Duration(cfg.External.Cache.TTL, 24*time.Hour),
			failure: config.Duration(cfg.External.Cache.FailureTTL, time.Hour),
		},
		recorder: metrics.NoopRecorder{},
	}
	if !cfg.Enabled {
		v.cfg.Enabled = false
	}
	if siteURL != "" {
		if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
			v.site = u
		}
	}
	v.prober = newProber(v.cfg, nil)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Close releases the cache connection.
func (v *Validator) Close() error { return v.cache.Close() }

// occurrence is one external reference waiting for its URL's probe result.
type occurrence struct {
	page *content.Item
	link Link
}

type tree struct {
	byCurrent map[string]*content.Item
	mu        sync.Mutex
	docs      map[string]*Document
}

// lookup resolves a root-relative output path. Directories resolve to their
// index.html; extensionless paths also try ".html" and "/index.html".
func (t *tree) lookup(p string) (*content.Item, bool) {
	dirRef := p == "" || strings.HasSuffix(p, "/")
	p = content.NormalizePath(p)
	if !dirRef {
		if it, ok := t.byCurrent[p]; ok {
			return it, true
		}
	}
	candidates := []string{path.Join(p, "index.html")}
	if !dirRef && path.Ext(p) == "" {
		candidates = append(candidates, p+".html")
	}
	for _, c := range candidates {
		if it, ok := t.byCurrent[c]; ok {
			return it, true
		}
	}
	return nil, false
}

func (t *tree) document(it *content.Item) (*Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if doc, ok := t.docs[it.Current]; ok {
		return doc, nil
	}
	doc, err := ParseDocument(it.Content)
	if err != nil {
		return nil, err
	}
	t.docs[it.Current] = doc
	return doc, nil
}

// Validate scans every HTML item in items. unresolved are the misses reported
// by the rewrite pass; each becomes a hard failure. The report lists every
// failure; the error is non-nil only when validation itself could not run.
func (v *Validator) Validate(ctx context.Context, items []*content.Item, unresolved []reference.Unresolved) (*Report, error) {
	report, misses := newReport(unresolved)
	t := &tree{byCurrent: make(map[string]*content.Item, len(items)), docs: map[string]*Document{}}
	for _, it := range items {
		t.byCurrent[it.Current] = it
	}

	external := map[string][]occurrence{}
	var order []string
	now := time.Now()
	pageEntries := map[string]*PageEntry{}

	for _, page := range items {
		if !page.IsHTMLOutput() {
			continue
		}
		report.Pages++
		doc, err := t.document(page)
		if err != nil {
			return nil, err
		}
		fingerprint := mdfp.CalculateFingerprintFromParts("", string(page.Content))
		skipExternal := false
		if v.cfg.Enabled {
			prev, err := v.cache.GetPageEntry(ctx, page.Current)
			if err != nil {
				slog.Debug("Page cache lookup error", logfields.CurrentPath(page.Current), logfields.Error(err))
			}
			skipExternal = v.ttl.skipPage(prev, fingerprint, now)
			if !skipExternal {
				pageEntries[page.Current] = &PageEntry{Path: page.Current, Fingerprint: fingerprint, CheckedAt: now}
			}
		}

		for _, link := range doc.Links {
			if isKnownMiss(misses, page.Original(), link.URL) {
				continue
			}
			report.Checked++
			class, target := classify(link.URL, v.site)
			switch class {
			case classSkip:
			case classFragment:
				if !doc.HasAnchor(link.URL[1:]) {
					report.Failures = append(report.Failures, v.internalFailure(page, link, page.Current, ReasonMissingFragment))
				}
			case classInternal, classRooted:
				if f, failed := v.checkInternal(t, page, link, class, target); failed {
					report.Failures = append(report.Failures, f)
				}
			case classExternal:
				if !v.cfg.Enabled || v.skipHost(target) {
					v.recorder.IncProbe(metrics.ProbeSkipped)
					continue
				}
				if skipExternal {
					v.recorder.IncProbe(metrics.ProbeCached)
					continue
				}
				key := stripFragment(target)
				if _, seen := external[key]; !seen {
					order = append(order, key)
				}
				external[key] = append(external[key], occurrence{page: page, link: link})
			}
		}
	}

	extFailures, checked, err := v.probeAll(ctx, order, external, report)
	if err != nil {
		return nil, err
	}
	report.Failures = append(report.Failures, extFailures...)

	for current, entry := range pageEntries {
		at, probed := checked[current]
		if probed && at.IsZero() {
			continue // a failing link; check again next run
		}
		if probed && at.Before(entry.CheckedAt) {
			entry.CheckedAt = at
		}
		if err := v.cache.SetPageEntry(ctx, entry); err != nil {
			slog.Debug("Failed to cache page entry", logfields.CurrentPath(current), logfields.Error(err))
		}
	}

	report.sort()
	for _, f := range report.Failures {
		v.recorder.IncValidationFailure(string(f.Reason), string(f.Severity))
		v.publish(ctx, report.BuildID, f, t)
	}
	return report, nil
}

// ReportUnresolved builds a report from rewrite misses alone, for builds that
// skip scanning the output tree.
func ReportUnresolved(unresolved []reference.Unresolved) *Report {
	report, _ := newReport(unresolved)
	report.sort()
	return report
}

// newReport seeds a report with one error per distinct miss and returns the
// set of source and raw pairs already reported.
func newReport(unresolved []reference.Unresolved) (*Report, map[string]struct{}) {
	report := &Report{BuildID: uuid.NewString()}
	misses := map[string]struct{}{}
	for _, u := range unresolved {
		key := u.Source + "\x00" + u.Raw
		if _, dup := misses[key]; dup {
			continue
		}
		misses[key] = struct{}{}
		report.Failures = append(report.Failures, Failure{
			Source: u.Source, Current: u.Current, Raw: u.Raw, Target: u.Target,
			Kind: u.Kind, Reason: ReasonUnresolved, Severity: SeverityError,
		})
	}
	return report, misses
}

func isKnownMiss(misses map[string]struct{}, source, raw string) bool {
	if _, ok := misses[source+"\x00"+raw]; ok {
		return true
	}
	if unescaped, err := url.PathUnescape(raw); err == nil && unescaped != raw {
		_, ok := misses[source+"\x00"+unescaped]
		return ok
	}
	return false
}

func (v *Validator) checkInternal(t *tree, page *content.Item, link Link, class linkClass, target string) (Failure, bool) {
	rawPath, fragment, _ := strings.Cut(target, "#")
	rawPath, _, _ = strings.Cut(rawPath, "?")
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		decoded = rawPath
	}

	resolved := decoded
	if class == classInternal {
		if decoded == "" {
			resolved = page.Current
		} else {
			trailing := strings.HasSuffix(decoded, "/")
			resolved = path.Join(content.Dir(page.Current), decoded)
			if resolved == ".." || strings.HasPrefix(resolved, "../") {
				return v.internalFailure(page, link, resolved, ReasonMissingTarget), true
			}
			if resolved == "." {
				resolved = ""
			}
			if trailing || resolved == "" {
				resolved += "/"
			}
		}
	}

	hit, ok := t.lookup(resolved)
	if !ok {
		return v.internalFailure(page, link, resolved, ReasonMissingTarget), true
	}
	if fragment == "" || !hit.IsHTMLOutput() {
		return Failure{}, false
	}
	doc, err := t.document(hit)
	if err != nil || !doc.HasAnchor(fragment) {
		return v.internalFailure(page, link, hit.Current+"#"+fragment, ReasonMissingFragment), true
	}
	return Failure{}, false
}

func (v *Validator) internalFailure(page *content.Item, link Link, target string, reason Reason) Failure {
	return Failure{
		Source:   page.Original(),
		Current:  page.Current,
		Raw:      link.URL,
		Target:   target,
		Kind:     link.Kind,
		Reason:   reason,
		Severity: SeverityError,
	}
}

func (v *Validator) skipHost(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return slices.ContainsFunc(v.cfg.SkipHosts, func(h string) bool {
		h = strings.ToLower(h)
		return host == h || strings.HasSuffix(host, "."+h)
	})
}

func stripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

func (v *Validator) severity() Severity {
	if v.cfg.Mode == config.ExternalModeFail {
		return SeverityError
	}
	return SeverityWarning
}

// probeAll checks each distinct URL once with bounded concurrency. Besides the
// failures it returns, per referencing page, the oldest check time among its
// URLs; a page referencing a failing URL maps to the zero time.
func (v *Validator) probeAll(ctx context.Context, order []string, external map[string][]occurrence, report *Report) ([]Failure, map[string]time.Time, error) {
	results := make([]probeResult, len(order))
	probed := make([]bool, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(v.cfg.MaxConcurrent, 1))
	for i, target := range order {
		g.Go(func() error {
			res, live := v.check(gctx, target)
			results[i] = res
			probed[i] = live
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []Failure
	checked := map[string]time.Time{}
	sev := v.severity()
	for i, target := range order {
		if probed[i] {
			report.Probed++
		}
		res := results[i]
		if res.OK {
			for _, occ := range external[target] {
				at, seen := checked[occ.page.Current]
				if !seen || (!at.IsZero() && res.Checked.Before(at)) {
					checked[occ.page.Current] = res.Checked
				}
			}
			continue
		}
		for _, occ := range external[target] {
			checked[occ.page.Current] = time.Time{}
			failures = append(failures, Failure{
				Source:   occ.page.Original(),
				Current:  occ.page.Current,
				Raw:      occ.link.URL,
				Target:   target,
				Kind:     occ.link.Kind,
				Reason:   res.Reason,
				Severity: sev,
				Status:   res.Status,
				Detail:   res.Detail,
			})
		}
		logLevel := slog.LevelWarn
		if sev == SeverityError {
			logLevel = slog.LevelError
		}
		slog.Log(ctx, logLevel, "External reference failed",
			logfields.URL(target), logfields.Status(res.Status), logfields.Reason(string(res.Reason)),
			logfields.Count(len(external[target])))
	}
	return failures, checked, nil
}

// check consults the cache, then probes. live reports whether a network probe ran.
func (v *Validator) check(ctx context.Context, target string) (probeResult, bool) {
	cached, err := v.cache.GetCachedResult(ctx, target)
	if err != nil {
		slog.Debug("Cache lookup error", logfields.URL(target), logfields.Error(err))
	} else if v.ttl.valid(cached, time.Now()) {
		v.recorder.IncProbe(metrics.ProbeCached)
		return probeResult{
			Status: cached.Status, OK: cached.IsValid, Reason: cached.Reason, Detail: cached.Error,
			Checked: cached.LastChecked,
		}, false
	}

	res := v.prober.probe(ctx, target)
	if res.Retries > 0 {
		v.recorder.IncProbe(metrics.ProbeRetried)
	}
	if res.OK {
		v.recorder.IncProbe(metrics.ProbeOK)
	} else {
		v.recorder.IncProbe(metrics.ProbeFailed)
	}
	if ctx.Err() != nil {
		return res, true
	}

	entry := &CacheEntry{
		URL:         target,
		Status:      res.Status,
		IsValid:     res.OK,
		Error:       res.Detail,
		Reason:      res.Reason,
		LastChecked: time.Now(),
	}
	res.Checked = entry.LastChecked
	updateFailureTracking(entry, cached)
	if err := v.cache.SetCachedResult(ctx, entry); err != nil {
		slog.Warn("Failed to update probe cache", logfields.URL(target), logfields.Error(err))
	}
	return res, true
}

// updateFailureTracking carries consecutive failure counts across builds.
func updateFailureTracking(entry, cached *CacheEntry) {
	if entry.IsValid {
		entry.FailureCount = 0
		entry.ConsecutiveFail = false
		return
	}
	entry.FailureCount = 1
	entry.FirstFailedAt = entry.LastChecked
	if cached != nil && !cached.IsValid {
		entry.FailureCount = cached.FailureCount + 1
		if !cached.FirstFailedAt.IsZero() {
			entry.FirstFailedAt = cached.FirstFailedAt
		}
	}
	entry.ConsecutiveFail = true
}

func (v *Validator) publish(ctx context.Context, buildID string, f Failure, t *tree) {
	title := ""
	if it, ok := t.byCurrent[f.Current]; ok {
		title = it.Meta.Title()
	}
	event := newEvent(buildID, f, title)
	event.Timestamp = time.Now()
	if f.Status != 0 || f.Reason == ReasonExternalError {
		if entry, err := v.cache.GetCachedResult(ctx, f.Target); err == nil && entry != nil {
			event.FailureCount = entry.FailureCount
			event.FirstFailedAt = entry.FirstFailedAt
		}
	}
	if err := v.cache.PublishBrokenLink(ctx, event); err != nil {
		slog.Error("Failed to publish broken link event", logfields.Reference(f.Raw), logfields.Item(f.Source), logfields.Error(err))
	}
}
