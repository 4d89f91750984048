package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFatal   ResultLabel = "fatal"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess BuildOutcomeLabel = "success"
	BuildOutcomeBroken  BuildOutcomeLabel = "broken_links" // completed with validation errors
	BuildOutcomeWarning BuildOutcomeLabel = "warning"      // completed with validation warnings only
	BuildOutcomeFailed  BuildOutcomeLabel = "failed"       // aborted on a fatal error
)

// Reference outcome labels.
const (
	ReferenceRewritten  = "rewritten"
	ReferenceUnresolved = "unresolved"
)

// Probe result labels.
const (
	ProbeOK      = "ok"
	ProbeFailed  = "failed"
	ProbeCached  = "cached"
	ProbeRetried = "retried"
	ProbeSkipped = "skipped"
)

// Recorder defines observability hooks for builds. Implementations may forward
// to Prometheus; NoopRecorder is the default.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	SetItems(n int)
	AddReferences(outcome string, n int)
	IncValidationFailure(reason, severity string)
	IncProbe(result string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) SetItems(int)                               {}
func (NoopRecorder) AddReferences(string, int)                  {}
func (NoopRecorder) IncValidationFailure(string, string)        {}
func (NoopRecorder) IncProbe(string)                            {}
