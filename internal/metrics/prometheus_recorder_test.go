package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("assign_routes", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("assign_routes", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.SetItems(12)
	pr.AddReferences(ReferenceRewritten, 3)
	pr.AddReferences(ReferenceUnresolved, 0)
	pr.IncValidationFailure("unresolved", "error")
	pr.IncProbe(ProbeCached)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"sitelinks_stage_duration_seconds",
		"sitelinks_build_outcomes_total",
		"sitelinks_items",
		"sitelinks_references_total",
		"sitelinks_validation_failures_total",
		"sitelinks_external_probes_total",
	} {
		assert.True(t, names[want], want)
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncProbe(ProbeOK)
		pr.SetItems(1)
		pr.ObserveStageDuration("x", time.Second)
	})
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome(BuildOutcomeBroken)

	path := filepath.Join(t.TempDir(), "sitelinks.prom")
	require.NoError(t, pr.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sitelinks_build_outcomes_total{outcome="broken_links"} 1`)
}

func TestHTTPHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetItems(4)

	rec := httptest.NewRecorder()
	pr.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitelinks_items 4")

	tr := newTestRecorder()
	tr.AddReferences(ReferenceRewritten, 2)
	assert.Equal(t, 2, tr.references[ReferenceRewritten])
}
