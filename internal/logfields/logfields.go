package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyItem         = "item"
	KeyOriginalPath = "original_path"
	KeyCurrentPath  = "current_path"
	KeyReference    = "reference"
	KeyReason       = "reason"
	KeyStage        = "stage"
	KeyDurationMS   = "duration_ms"
	KeyTaxonomy     = "taxonomy"
	KeyTerm         = "term"
	KeyURL          = "url"
	KeyStatus       = "status"
	KeyBuildID      = "build_id"
	KeyCount        = "count"
	KeyError        = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Item(p string) slog.Attr          { return slog.String(KeyItem, p) }
func OriginalPath(p string) slog.Attr  { return slog.String(KeyOriginalPath, p) }
func CurrentPath(p string) slog.Attr   { return slog.String(KeyCurrentPath, p) }
func Reference(r string) slog.Attr     { return slog.String(KeyReference, r) }
func Reason(r string) slog.Attr        { return slog.String(KeyReason, r) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Taxonomy(name string) slog.Attr   { return slog.String(KeyTaxonomy, name) }
func Term(t string) slog.Attr          { return slog.String(KeyTerm, t) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
