package match

import (
	"github.com/facekit/livematch/internal/catalogue"
)

// UnknownLabel is the sentinel label reported when no candidate clears the
// similarity threshold.
const UnknownLabel = "unknown"

// Result is the outcome of matching one probe descriptor.
type Result struct {
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
	RecordID string  `json:"record_id,omitempty"`
	Known    bool    `json:"known"`
}

// Ranker picks the best candidate for a probe out of a catalogue snapshot.
// Returns the index into records and the similarity score, or -1 when no
// candidate is rankable. The snapshot is ordered most-recently-enrolled
// first; on equal similarity the earliest enrollment must win, so identical
// descriptors (duplicate photos) resolve deterministically.
//
// The contract deliberately hides the search structure: the default is a
// linear scan, which is fine at catalogue sizes in the low thousands, and an
// index-backed implementation can be swapped in without touching callers.
type Ranker interface {
	Rank(probe []float32, records []catalogue.IdentityRecord) (best int, score float64)
}

// LinearRanker scans every candidate. Candidates whose descriptor length
// does not match the probe are skipped, not fatal; this protects against
// partially-migrated catalogues where dimensionality changed over time.
type LinearRanker struct{}

// Rank implements Ranker. Scanning back to front (oldest first) with a
// strict comparison makes the oldest record win ties.
func (LinearRanker) Rank(probe []float32, records []catalogue.IdentityRecord) (int, float64) {
	best := -1
	bestScore := 0.0

	for i := len(records) - 1; i >= 0; i-- {
		if len(records[i].Descriptor) != len(probe) {
			continue
		}
		score := Similarity(probe, records[i].Descriptor)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	return best, bestScore
}

// Matcher matches probe descriptors against catalogue snapshots using an
// injectable ranking strategy.
type Matcher struct {
	ranker Ranker
}

// NewMatcher creates a matcher with the given ranking strategy. A nil ranker
// defaults to a linear scan.
func NewMatcher(ranker Ranker) *Matcher {
	if ranker == nil {
		ranker = LinearRanker{}
	}
	return &Matcher{ranker: ranker}
}

// Match returns the best candidate above the threshold, or the unknown
// sentinel with score 0. An empty snapshot is always unknown. Reported
// scores are clamped to [0,1]; negative cosine similarity can never clear a
// positive threshold so it reports as 0.
func (m *Matcher) Match(probe []float32, snapshot []catalogue.IdentityRecord, threshold float64) Result {
	if len(snapshot) == 0 {
		return Result{Label: UnknownLabel}
	}

	best, score := m.ranker.Rank(probe, snapshot)
	if best < 0 || score < threshold {
		return Result{Label: UnknownLabel}
	}

	if score < 0 {
		score = 0
	}
	return Result{
		Label:    snapshot[best].Label,
		Score:    score,
		RecordID: snapshot[best].ID,
		Known:    true,
	}
}
