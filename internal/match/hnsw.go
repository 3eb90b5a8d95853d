package match

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/facekit/livematch/internal/catalogue"
)

// hnswSearchK is how many approximate neighbors are pulled from the graph
// before exact re-ranking against the snapshot.
const hnswSearchK = 16

// hnswMaxNeighbors is the M parameter of the graph.
const hnswMaxNeighbors = 16

// HNSWRanker is an index-backed Ranker for large catalogues. The graph is
// rebuilt out of band (after enrollments); ranking re-scores the approximate
// neighbors exactly against the snapshot it is handed, so records missing
// from the snapshot (deactivated since the last rebuild) are never returned.
type HNSWRanker struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[string]
	fallback LinearRanker
}

// NewHNSWRanker creates an empty index-backed ranker. Until the first
// Rebuild it behaves exactly like a linear scan.
func NewHNSWRanker() *HNSWRanker {
	return &HNSWRanker{}
}

// Rebuild replaces the graph with one built from the given records.
func (r *HNSWRanker) Rebuild(records []catalogue.IdentityRecord) {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	for i := range records {
		if len(records[i].Descriptor) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(records[i].ID, records[i].Descriptor))
	}

	r.mu.Lock()
	r.graph = g
	r.mu.Unlock()
}

// Len returns the number of indexed records.
func (r *HNSWRanker) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.graph == nil {
		return 0
	}
	return r.graph.Len()
}

// Rank implements Ranker. Falls back to a linear scan when the index is
// empty or none of the approximate neighbors survive the snapshot filter.
func (r *HNSWRanker) Rank(probe []float32, records []catalogue.IdentityRecord) (int, float64) {
	r.mu.RLock()
	graph := r.graph
	r.mu.RUnlock()

	if graph == nil || graph.Len() == 0 {
		return r.fallback.Rank(probe, records)
	}

	byID := make(map[string]int, len(records))
	for i := range records {
		byID[records[i].ID] = i
	}

	neighbors := graph.Search(probe, hnswSearchK)

	best := -1
	bestScore := 0.0
	for _, n := range neighbors {
		i, ok := byID[n.Key]
		if !ok {
			// Indexed but not in the snapshot: deactivated since rebuild.
			continue
		}
		if len(records[i].Descriptor) != len(probe) {
			continue
		}
		score := Similarity(probe, records[i].Descriptor)
		// Snapshot is newest-first, so the larger index is the older record;
		// >= keeps the tie break consistent with LinearRanker.
		if best == -1 || score > bestScore || (score == bestScore && i > best) {
			best = i
			bestScore = score
		}
	}

	if best == -1 {
		return r.fallback.Rank(probe, records)
	}
	return best, bestScore
}
