package linkverify

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
	"git.home.luguber.info/inful/sitelinks/internal/reference"
)

// Reason classifies a failure.
type Reason string

const (
	// ReasonUnresolved: the rewrite pass found no item with the target original path.
	ReasonUnresolved Reason = "unresolved"
	// ReasonMissingTarget: the reference does not resolve to a file in the output tree.
	ReasonMissingTarget Reason = "missing_target"
	// ReasonMissingFragment: the target exists but has no element with the fragment id.
	ReasonMissingFragment Reason = "missing_fragment"
	ReasonExternalStatus  Reason = "external_status"
	ReasonExternalError   Reason = "external_error"
	ReasonRedirect        Reason = "redirect"
)

// Severity of a failure. Errors break the build.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Failure is one reference that did not pass validation.
type Failure struct {
	Source   string // original path of the referencing item
	Current  string // output path of the referencing item
	Raw      string // reference text as it appears in the output
	Target   string // resolved path or URL
	Kind     reference.Kind
	Reason   Reason
	Severity Severity
	Status   int    // HTTP status for external probes
	Detail   string // error text for external probes
}

func (f Failure) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %q (%s)", f.Source, f.Kind, f.Raw, f.Reason)
	if f.Status != 0 {
		fmt.Fprintf(&b, " status=%d", f.Status)
	}
	if f.Detail != "" {
		fmt.Fprintf(&b, " %s", f.Detail)
	}
	return b.String()
}

// Report lists every failure of one validation run.
type Report struct {
	BuildID  string
	Pages    int
	Checked  int // references examined
	Probed   int // external URLs probed over the network
	Failures []Failure
}

func (r *Report) sort() {
	slices.SortStableFunc(r.Failures, func(a, b Failure) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Raw, b.Raw), cmp.Compare(a.Reason, b.Reason))
	})
}

// HasErrors reports whether any failure breaks the build.
func (r *Report) HasErrors() bool {
	return slices.ContainsFunc(r.Failures, func(f Failure) bool { return f.Severity == SeverityError })
}

// Errors returns the build-breaking failures.
func (r *Report) Errors() []Failure { return r.filter(SeverityError) }

// Warnings returns failures that do not break the build.
func (r *Report) Warnings() []Failure { return r.filter(SeverityWarning) }

func (r *Report) filter(sev Severity) []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Err returns a reference error summarizing the report, or nil when no
// failure is an error.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, f := range errs {
		lines[i] = f.String()
	}
	return errors.ReferenceError(fmt.Sprintf("%d broken reference(s):\n  %s", len(errs), strings.Join(lines, "\n  "))).
		WithContext("build_id", r.BuildID).
		WithContext("count", len(errs)).
		Build()
}
