package pipeline

import (
	"sync"
	"time"

	"git.home.luguber.info/inful/sitelinks/internal/content"
	"git.home.luguber.info/inful/sitelinks/internal/identity"
	"git.home.luguber.info/inful/sitelinks/internal/linkverify"
	"git.home.luguber.info/inful/sitelinks/internal/metrics"
	"git.home.luguber.info/inful/sitelinks/internal/reference"
	"git.home.luguber.info/inful/sitelinks/internal/taxonomy"
)

// BuildState is the mutable state threaded through the stages of one build.
// Stages run sequentially; a stage that fans out owns the synchronization of
// whatever it shares.
type BuildState struct {
	Builder    *Builder
	Collection *content.Collection
	Tracker    *identity.Tracker
	Snapshot   *identity.Snapshot
	Resolver   *reference.Resolver
	Taxonomies []*taxonomy.Taxonomy
	Feed       *content.Item // reserved feed document, filled after links are derived

	// Matched counts items placed by a route rule rather than the identity fallback.
	Matched   int
	Drafts    int
	Rewritten int

	mu         sync.Mutex
	sessions   map[string]*reference.Session // render sessions by original path
	Unresolved []reference.Unresolved
	Report     *linkverify.Report

	Durations map[StageName]time.Duration
}

func newBuildState(b *Builder, coll *content.Collection) *BuildState {
	return &BuildState{
		Builder:    b,
		Collection: coll,
		Tracker:    identity.NewTracker(),
		sessions:   map[string]*reference.Session{},
		Durations:  map[StageName]time.Duration{},
	}
}

func (bs *BuildState) recorder() metrics.Recorder {
	if bs.Builder == nil || bs.Builder.recorder == nil {
		return metrics.NoopRecorder{}
	}
	return bs.Builder.recorder
}

// keepSession remembers the render session of a markdown item and folds its
// outcome into the state.
func (bs *BuildState) keepSession(it *content.Item, s *reference.Session) {
	bs.mu.Lock()
	bs.sessions[it.Original()] = s
	bs.mu.Unlock()
	bs.addSession(s)
}

// renderSession returns the session that rendered it, if any.
func (bs *BuildState) renderSession(it *content.Item) (*reference.Session, bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	s, ok := bs.sessions[it.Original()]
	return s, ok
}

// addSession folds the outcome of one item's rewrite session into the state.
func (bs *BuildState) addSession(s *reference.Session) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.Rewritten += s.Rewritten()
	bs.Unresolved = append(bs.Unresolved, s.Misses()...)
}
