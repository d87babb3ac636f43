package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pdf-chat-backend/models"
)

type memoryIndex struct {
	spec    IndexSpec
	polls   int
	records map[string]models.EmbeddedChunk
	seq     map[string]int
	nextSeq int
}

// MemoryBackend is an in-process brute-force cosine store.
type MemoryBackend struct {
	mu      sync.RWMutex
	indexes map[string]*memoryIndex

	// ReadyAfter makes a new index report ready only after that many readiness polls.
	ReadyAfter int
	// CreateCalls counts CreateIndex invocations.
	CreateCalls int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{indexes: make(map[string]*memoryIndex)}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) IndexExists(ctx context.Context, spec IndexSpec) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.indexes[spec.Name]
	return ok, nil
}

// CreateIndex only supports the cosine metric; Search always scores by cosine similarity.
func (m *MemoryBackend) CreateIndex(ctx context.Context, spec IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if spec.Metric != "" && spec.Metric != "cosine" {
		return fmt.Errorf("memory backend supports only the cosine metric, got %q", spec.Metric)
	}
	if _, ok := m.indexes[spec.Name]; ok {
		return fmt.Errorf("index %s already exists", spec.Name)
	}
	m.indexes[spec.Name] = &memoryIndex{
		spec:    spec,
		records: make(map[string]models.EmbeddedChunk),
		seq:     make(map[string]int),
	}
	return nil
}

func (m *MemoryBackend) IndexReady(ctx context.Context, spec IndexSpec) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[spec.Name]
	if !ok {
		return false, nil
	}
	idx.polls++
	return idx.polls > m.ReadyAfter, nil
}

func (m *MemoryBackend) index(name string) (*memoryIndex, error) {
	idx, ok := m.indexes[name]
	if !ok {
		return nil, fmt.Errorf("index %s does not exist", name)
	}
	return idx, nil
}

func (m *MemoryBackend) Upsert(ctx context.Context, spec IndexSpec, records []models.EmbeddedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.index(spec.Name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Vector) != idx.spec.Dimension {
			return fmt.Errorf("vector for %s has %d dimensions, index has %d", r.ID, len(r.Vector), idx.spec.Dimension)
		}
		if _, seen := idx.seq[r.ID]; !seen {
			idx.seq[r.ID] = idx.nextSeq
			idx.nextSeq++
		}
		idx.records[r.ID] = r
	}
	return nil
}

func (m *MemoryBackend) Search(ctx context.Context, spec IndexSpec, vector []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.index(spec.Name)
	if err != nil {
		return nil, err
	}

	type scored struct {
		match Match
		seq   int
	}
	results := make([]scored, 0, len(idx.records))
	for id, r := range idx.records {
		results = append(results, scored{
			match: Match{Chunk: r.Chunk, Score: cosineSimilarity(vector, r.Vector)},
			seq:   idx.seq[id],
		})
	}

	// Sort by score descending, insertion order breaks ties
	sort.Slice(results, func(i, j int) bool {
		if results[i].match.Score != results[j].match.Score {
			return results[i].match.Score > results[j].match.Score
		}
		return results[i].seq < results[j].seq
	})

	if len(results) > k {
		results = results[:k]
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = r.match
	}
	return matches, nil
}

func (m *MemoryBackend) Count(ctx context.Context, spec IndexSpec) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.index(spec.Name)
	if err != nil {
		return 0, err
	}
	return int64(len(idx.records)), nil
}

func (m *MemoryBackend) Reset(ctx context.Context, spec IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.index(spec.Name)
	if err != nil {
		return err
	}
	idx.records = make(map[string]models.EmbeddedChunk)
	idx.seq = make(map[string]int)
	idx.nextSeq = 0
	return nil
}
