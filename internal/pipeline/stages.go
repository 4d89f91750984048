// Package pipeline runs the ordered build stages over an in-memory content
// collection: route assignment, taxonomy synthesis, identity freeze,
// rendering with reference rewriting, output and validation.
package pipeline

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitelinks/internal/logfields"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
)

// Stage is a discrete unit of work in the build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageDropDrafts          StageName = "drop_drafts"
	StageAssignRoutes        StageName = "assign_routes"
	StageAggregateTaxonomies StageName = "aggregate_taxonomies"
	StageReserveFeed         StageName = "reserve_feed"
	StageFreezeIdentity      StageName = "freeze_identity"
	StageRender              StageName = "render"
	StageRewriteReferences   StageName = "rewrite_references"
	StageContentReplace      StageName = "content_replace"
	StageDeriveLinks         StageName = "derive_links"
	StageBuildFeed           StageName = "build_feed"
	StageWriteOutput         StageName = "write_output"
	StageValidate            StageName = "validate"
)

// StageError wraps the error that aborted a stage.
type StageError struct {
	Stage    StageName
	Canceled bool
	Err      error
}

func (e *StageError) Error() string {
	if e.Canceled {
		return fmt.Sprintf("stage %s canceled: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Plan is a fluent builder for ordered stage definitions.
type Plan struct{ Defs []StageDef }

// NewPlan creates an empty plan.
func NewPlan() *Plan { return &Plan{Defs: make([]StageDef, 0, 10)} }

// Add appends a stage unconditionally.
func (p *Plan) Add(name StageName, fn Stage) *Plan {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage when cond is true.
func (p *Plan) AddIf(cond bool, name StageName, fn Stage) *Plan {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// RunStages executes stages in order, recording timing and stopping on the
// first error. Durations land in bs.Durations whether or not the stage fails.
func RunStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	rec := bs.recorder()
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			rec.IncStageResult(string(st.Name), metrics.ResultFatal)
			return &StageError{Stage: st.Name, Canceled: true, Err: err}
		}

		slog.Debug("Stage started", logfields.Stage(string(st.Name)))
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		bs.Durations[st.Name] = dur
		rec.ObserveStageDuration(string(st.Name), dur)

		if err != nil {
			rec.IncStageResult(string(st.Name), metrics.ResultFatal)
			slog.Error("Stage failed",
				logfields.Stage(string(st.Name)),
				logfields.DurationMS(ms(dur)),
				logfields.Error(err))
			return &StageError{Stage: st.Name, Canceled: stdErrors.Is(err, context.Canceled), Err: err}
		}
		rec.IncStageResult(string(st.Name), metrics.ResultSuccess)
		slog.Debug("Stage finished", logfields.Stage(string(st.Name)), logfields.DurationMS(ms(dur)))
	}
	return nil
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
