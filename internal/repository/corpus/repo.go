package corpus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/paperchat/paperchat/internal/db"
	"github.com/paperchat/paperchat/internal/domain"
)

// store is the consumer interface for corpus operations (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig holds index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo holds the embedded representation of at most one document corpus in
// Redis hashes behind an FT vector index.
type Repo struct {
	store     store
	keyPrefix string
	hnsw      HNSWConfig
}

// New creates a corpus repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// WithHNSW sets HNSW index build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

func (r *Repo) chunkKey(id string) string { return r.keyPrefix + "chunk:" + id }
func (r *Repo) chunkPattern() string      { return r.keyPrefix + "chunk:*" }
func (r *Repo) indexName() string         { return r.keyPrefix + "chunks:idx" }

// EnsureIndex creates the FT vector index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, dimensions int) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.keyPrefix + "chunk:"},
		Fields: []db.IndexField{
			{Name: "__content", Type: db.IndexFieldText},
			{
				Name:              "__vector",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// ReplaceAll deletes every resident chunk and inserts the given ones. The
// single-active-document policy lives here: callers must serialize writes,
// this method only guarantees the delete happens before the insert.
func (r *Repo) ReplaceAll(ctx context.Context, chunks []domain.Chunk) error {
	existing, err := r.store.Scan(ctx, r.chunkPattern())
	if err != nil {
		return fmt.Errorf("scan resident chunks: %w: %w", domain.ErrStoreWrite, err)
	}

	if len(existing) > 0 {
		if err := r.store.DelMulti(ctx, existing); err != nil {
			return fmt.Errorf("delete resident chunks: %w: %w", domain.ErrStoreWrite, err)
		}
	}

	for _, c := range chunks {
		fields := map[string]string{
			"__content": c.Text,
			"__vector":  vectorToBytes(c.Vector),
		}
		if err := r.store.HSet(ctx, r.chunkKey(c.ID), fields); err != nil {
			return fmt.Errorf("insert chunk %s: %w: %w", c.ID, domain.ErrStoreWrite, err)
		}
	}

	return nil
}

// Count returns the number of resident chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	keys, err := r.store.Scan(ctx, r.chunkPattern())
	if err != nil {
		return 0, fmt.Errorf("scan resident chunks: %w", err)
	}
	return len(keys), nil
}

// SearchKNN returns the k nearest chunks to the query vector, most similar
// first. An empty corpus yields an empty slice, never an error.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]domain.Passage, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__content", "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	passages := make([]domain.Passage, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		passages = append(passages, domain.Passage{
			Text:  entry.Fields["__content"],
			Score: entry.Score,
		})
	}
	return passages, nil
}

// vectorToBytes serializes []float32 to the little-endian binary string
// stored in the __vector hash field.
func vectorToBytes(v []float32) string {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return string(b)
}
