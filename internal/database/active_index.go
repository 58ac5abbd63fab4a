package database

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSW parameters for 512-dim face embeddings.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswSearchK is how many candidates a nearest lookup requests. The
	// extra candidates let ties resolve by insertion sequence exactly.
	hnswSearchK = 8
)

// IndexEntry is one active face held by the in-memory index.
type IndexEntry struct {
	Seq       int64
	FaceID    string
	UserID    int64
	Embedding []float32
}

// indexSnapshot is the on-disk format of a persisted index.
type indexSnapshot struct {
	Version   int
	SavedAt   time.Time
	FaceCount int64
	MaxSeq    int64
	Entries   []IndexEntry
}

const indexSnapshotVersion = 1

// ActiveFaceIndex is an in-memory HNSW index over active faces, keeping
// Nearest sub-linear without a database round trip. Inserts add nodes,
// deactivations remove them, so the graph always mirrors the is_active set.
type ActiveFaceIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	entries map[int64]*IndexEntry // by seq
	maxSeq  int64
}

// NewActiveFaceIndex creates an empty index.
func NewActiveFaceIndex() *ActiveFaceIndex {
	return &ActiveFaceIndex{
		entries: make(map[int64]*IndexEntry),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with the given active faces.
func (idx *ActiveFaceIndex) Build(entries []IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.graph = newGraph()
	idx.entries = make(map[int64]*IndexEntry, len(entries))
	idx.maxSeq = 0

	for i := range entries {
		e := &entries[i]
		if len(e.Embedding) == 0 {
			continue
		}
		idx.graph.Add(hnsw.MakeNode(e.Seq, e.Embedding))
		idx.entries[e.Seq] = e
		if e.Seq > idx.maxSeq {
			idx.maxSeq = e.Seq
		}
	}
	return nil
}

// Add inserts a single face into the index.
func (idx *ActiveFaceIndex) Add(entry IndexEntry) {
	if len(entry.Embedding) == 0 {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.graph == nil {
		idx.graph = newGraph()
	}
	idx.graph.Add(hnsw.MakeNode(entry.Seq, entry.Embedding))
	idx.entries[entry.Seq] = &entry
	if entry.Seq > idx.maxSeq {
		idx.maxSeq = entry.Seq
	}
}

// Remove drops a face from the index, typically after deactivation.
func (idx *ActiveFaceIndex) Remove(seq int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.graph != nil {
		idx.graph.Delete(seq)
	}
	delete(idx.entries, seq)
}

// Nearest returns the best match for the query, or nil when the index is
// empty. Distances are recomputed exactly from the stored embeddings and
// ties resolve to the lowest insertion sequence.
func (idx *ActiveFaceIndex) Nearest(query []float32) *Match {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil || len(idx.entries) == 0 {
		return nil
	}

	neighbors := idx.graph.Search(query, hnswSearchK)
	if len(neighbors) == 0 {
		return nil
	}

	var best *IndexEntry
	bestDist := 3.0 // above the maximum cosine distance
	for _, n := range neighbors {
		entry, ok := idx.entries[n.Key]
		if !ok {
			continue
		}
		dist := CosineDistance(query, entry.Embedding)
		if dist < bestDist || (dist == bestDist && best != nil && entry.Seq < best.Seq) {
			bestDist = dist
			best = entry
		}
	}
	if best == nil {
		return nil
	}

	return &Match{
		FaceID:     best.FaceID,
		UserID:     best.UserID,
		Similarity: 1 - bestDist,
	}
}

// Count returns the number of faces in the index.
func (idx *ActiveFaceIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Save persists the index entries to path. The graph itself is rebuilt on
// load; entries are the source of truth.
func (idx *ActiveFaceIndex) Save(path string) error {
	idx.mu.RLock()
	snapshot := indexSnapshot{
		Version:   indexSnapshotVersion,
		SavedAt:   time.Now().UTC(),
		FaceCount: int64(len(idx.entries)),
		MaxSeq:    idx.maxSeq,
		Entries:   make([]IndexEntry, 0, len(idx.entries)),
	}
	for _, e := range idx.entries {
		snapshot.Entries = append(snapshot.Entries, *e)
	}
	idx.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(&snapshot); err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot from path and rebuilds the graph. faceCount and
// maxSeq are the current database stats; a stale snapshot is rejected so the
// caller falls back to rebuilding from the database.
func (idx *ActiveFaceIndex) Load(path string, faceCount, maxSeq int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var snapshot indexSnapshot
	if err := gob.NewDecoder(f).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode index snapshot: %w", err)
	}
	if snapshot.Version != indexSnapshotVersion {
		return fmt.Errorf("unsupported index snapshot version %d", snapshot.Version)
	}
	if snapshot.FaceCount != faceCount || snapshot.MaxSeq != maxSeq {
		return errors.New("index snapshot is stale")
	}

	return idx.Build(snapshot.Entries)
}
