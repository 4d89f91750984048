package pipeline

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitelinks/internal/config"
	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/linkverify"
	"git.home.luguber.info/inful/sitelinks/internal/logfields"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
	"git.home.luguber.info/inful/sitelinks/internal/reference"
	"git.home.luguber.info/inful/sitelinks/internal/render"
	"git.home.luguber.info/inful/sitelinks/internal/route"
	"git.home.luguber.info/inful/sitelinks/internal/taxonomy"
)

type replacement struct {
	file string
	re   *regexp.Regexp
	with []byte
}

// Builder holds everything derived from configuration that stays constant
// across builds. One Builder may run many builds in sequence.
type Builder struct {
	cfg          *config.Config
	assigner     *route.Assigner
	taxonomies   []taxonomy.Definition
	renderer     *render.Renderer
	replacements []replacement
	validator    *linkverify.Validator
	recorder     metrics.Recorder
	writeOutput  bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// WithValidator replaces the validator built from configuration.
func WithValidator(v *linkverify.Validator) Option { return func(b *Builder) { b.validator = v } }

// WithoutOutput skips the write_output stage.
func WithoutOutput() Option { return func(b *Builder) { b.writeOutput = false } }

// NewBuilder compiles routes, taxonomies and replacements from cfg. cfg must
// have passed config.Validate; compile errors are still returned as config
// errors rather than panics.
func NewBuilder(cfg *config.Config, opts ...Option) (*Builder, error) {
	b := &Builder{
		cfg:         cfg,
		renderer:    render.New(render.Options{Unsafe: cfg.Render.Unsafe}),
		recorder:    metrics.NoopRecorder{},
		writeOutput: true,
	}

	rules := make([]route.Rule, 0, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		rule, err := route.NewRule(rc.Match, rc.Pattern, rc.Defaults)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	b.assigner = route.NewAssigner(rules...)

	for _, tc := range cfg.Taxonomies {
		rule, err := route.NewRule("", tc.Pattern, nil)
		if err != nil {
			return nil, err
		}
		def := taxonomy.Definition{
			Name:     tc.Name,
			Singular: tc.Singular,
			Source:   tc.Source,
			Fields:   tc.Fields,
			Routes:   route.NewAssigner(rule),
			TopLimit: tc.TopLimit,
		}
		if tc.IndexPattern != "" {
			index, err := route.NewRule("", tc.IndexPattern, nil)
			if err != nil {
				return nil, err
			}
			def.Index = &index
		}
		b.taxonomies = append(b.taxonomies, def)
	}

	for _, rc := range cfg.Replacements {
		re, err := regexp.Compile(rc.Pattern)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "invalid replacement pattern").
				WithContext("pattern", rc.Pattern).
				Build()
		}
		b.replacements = append(b.replacements, replacement{file: rc.File, re: re, with: []byte(rc.Replacement)})
	}

	for _, opt := range opts {
		opt(b)
	}
	if b.validator == nil && cfg.Validation.Enabled {
		b.validator = linkverify.NewValidator(cfg.Validation, cfg.Site.URL, linkverify.WithRecorder(b.recorder))
	}
	return b, nil
}

// Close releases the validator's cache.
func (b *Builder) Close() error {
	if b.validator == nil {
		return nil
	}
	return b.validator.Close()
}

// Route is one entry of the final identity map.
type Route struct {
	Original  string `json:"original"`
	Current   string `json:"current"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// Result describes a finished (or aborted) build.
type Result struct {
	Items      []*content.Item
	Taxonomies []*taxonomy.Taxonomy
	Matched    int
	Drafts     int
	Rewritten  int
	Unresolved []reference.Unresolved
	Report     *linkverify.Report
	Durations  map[StageName]time.Duration
	Duration   time.Duration
	Outcome    metrics.BuildOutcomeLabel
}

// Routes lists every item's original and current path, sorted by original.
func (r *Result) Routes() []Route {
	out := make([]Route, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, Route{Original: it.Original(), Current: it.Current, Synthetic: it.Synthetic})
	}
	slices.SortFunc(out, func(a, b Route) int { return strings.Compare(a.Original, b.Original) })
	return out
}

// planStages returns the route planning stages shared by Plan and Build.
func (b *Builder) planStages() *Plan {
	return NewPlan().
		AddIf(!b.cfg.Content.IncludeDrafts, StageDropDrafts, stageDropDrafts).
		Add(StageAssignRoutes, stageAssignRoutes).
		Add(StageAggregateTaxonomies, stageAggregateTaxonomies).
		AddIf(b.cfg.Feed.Enabled(), StageReserveFeed, stageReserveFeed).
		Add(StageFreezeIdentity, stageFreezeIdentity)
}

// Plan assigns routes and synthesizes taxonomy pages without rendering.
func (b *Builder) Plan(ctx context.Context, coll *content.Collection) (*Result, error) {
	bs := newBuildState(b, coll)
	err := RunStages(ctx, bs, b.planStages().Defs)
	return bs.result(0), err
}

// Build runs every stage over coll. The collection is consumed: item bodies
// are replaced by their rendered output. A build whose validation report
// contains errors returns the result together with a reference error.
func (b *Builder) Build(ctx context.Context, coll *content.Collection) (*Result, error) {
	start := time.Now()
	bs := newBuildState(b, coll)

	plan := b.planStages().
		Add(StageRender, stageRender).
		Add(StageRewriteReferences, stageRewriteReferences).
		AddIf(len(b.replacements) > 0, StageContentReplace, stageContentReplace).
		Add(StageDeriveLinks, stageDeriveLinks).
		AddIf(b.cfg.Feed.Enabled(), StageBuildFeed, stageBuildFeed).
		AddIf(b.writeOutput, StageWriteOutput, stageWriteOutput).
		Add(StageValidate, stageValidate)

	err := RunStages(ctx, bs, plan.Defs)
	res := bs.result(time.Since(start))

	switch {
	case err != nil:
		res.Outcome = metrics.BuildOutcomeFailed
	case res.Report != nil && res.Report.HasErrors():
		res.Outcome = metrics.BuildOutcomeBroken
		err = res.Report.Err()
	case res.Report != nil && len(res.Report.Failures) > 0:
		res.Outcome = metrics.BuildOutcomeWarning
	default:
		res.Outcome = metrics.BuildOutcomeSuccess
	}
	b.recorder.ObserveBuildDuration(res.Duration)
	b.recorder.IncBuildOutcome(res.Outcome)

	attrs := []any{
		logfields.Count(len(res.Items)),
		slog.String("outcome", string(res.Outcome)),
		logfields.DurationMS(ms(res.Duration)),
	}
	if res.Report != nil {
		attrs = append(attrs, logfields.BuildID(res.Report.BuildID))
	}
	slog.Info("Build finished", attrs...)
	return res, err
}

func (bs *BuildState) result(d time.Duration) *Result {
	return &Result{
		Items:      bs.Collection.Items(),
		Taxonomies: bs.Taxonomies,
		Matched:    bs.Matched,
		Drafts:     bs.Drafts,
		Rewritten:  bs.Rewritten,
		Unresolved: bs.Unresolved,
		Report:     bs.Report,
		Durations:  bs.Durations,
		Duration:   d,
	}
}
