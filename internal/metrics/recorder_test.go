package metrics

import "time"

// testRecorder counts calls; other packages use their own fakes.
type testRecorder struct {
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	buildOutcomes  map[BuildOutcomeLabel]int
	references     map[string]int
}

func newTestRecorder() *testRecorder {
	return &testRecorder{
		stageDurations: map[string]int{},
		stageResults:   map[string]map[ResultLabel]int{},
		buildOutcomes:  map[BuildOutcomeLabel]int{},
		references:     map[string]int{},
	}
}

func (t *testRecorder) ObserveStageDuration(stage string, _ time.Duration) { t.stageDurations[stage]++ }
func (t *testRecorder) ObserveBuildDuration(time.Duration)                 {}
func (t *testRecorder) IncStageResult(stage string, result ResultLabel) {
	m, ok := t.stageResults[stage]
	if !ok {
		m = map[ResultLabel]int{}
		t.stageResults[stage] = m
	}
	m[result]++
}
func (t *testRecorder) IncBuildOutcome(o BuildOutcomeLabel)   { t.buildOutcomes[o]++ }
func (t *testRecorder) SetItems(int)                          {}
func (t *testRecorder) AddReferences(outcome string, n int)   { t.references[outcome] += n }
func (t *testRecorder) IncValidationFailure(string, string)   {}
func (t *testRecorder) IncProbe(string)                       {}

var (
	_ Recorder = (*testRecorder)(nil)
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)
