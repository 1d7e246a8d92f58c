package corpus

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/paperchat/paperchat/internal/db"
	"github.com/paperchat/paperchat/internal/domain"
)

func TestEnsureIndex_SkipsExisting(t *testing.T) {
	created := false
	store := &mockStore{
		indexExistsFn: func(_ context.Context, name string) (bool, error) {
			if name != "test:chunks:idx" {
				t.Errorf("index name = %q, want test:chunks:idx", name)
			}
			return true, nil
		},
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error {
			created = true
			return nil
		},
	}
	repo := New(store, "test:")

	if err := repo.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("existing index must not be recreated")
	}
}

func TestEnsureIndex_CreatesVectorIndex(t *testing.T) {
	var gotDef *db.IndexDefinition
	store := &mockStore{
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			gotDef = def
			return nil
		},
	}
	repo := New(store, "test:").WithHNSW(HNSWConfig{M: 16, EFConstruct: 200})

	if err := repo.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDef == nil {
		t.Fatal("CreateIndex was not called")
	}
	if len(gotDef.Fields) != 2 {
		t.Fatalf("expected 2 index fields, got %d", len(gotDef.Fields))
	}
	vec := gotDef.Fields[1]
	if vec.Type != db.IndexFieldVector || vec.VectorDim != 1536 {
		t.Errorf("vector field = %+v, want HNSW dim 1536", vec)
	}
	if vec.VectorDistance != db.DistanceCosine {
		t.Errorf("distance = %s, want cosine", vec.VectorDistance)
	}
	if vec.VectorM != 16 || vec.VectorEFConstruct != 200 {
		t.Errorf("HNSW params = %d/%d, want 16/200", vec.VectorM, vec.VectorEFConstruct)
	}
}

func TestEnsureIndex_ConcurrentCreateRace(t *testing.T) {
	store := &mockStore{
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error {
			return db.ErrIndexExists
		},
	}
	repo := New(store, "test:")

	if err := repo.EnsureIndex(context.Background(), 128); err != nil {
		t.Fatalf("losing an index-create race should not fail: %v", err)
	}
}

func TestReplaceAll_DeletesBeforeInsert(t *testing.T) {
	var ops []string
	store := &mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "test:chunk:*" {
				t.Errorf("scan pattern = %q, want test:chunk:*", pattern)
			}
			return []string{"test:chunk:old1", "test:chunk:old2"}, nil
		},
		delMultiFn: func(_ context.Context, keys []string) error {
			ops = append(ops, "del")
			if len(keys) != 2 {
				t.Errorf("deleted %d keys, want 2", len(keys))
			}
			return nil
		},
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			ops = append(ops, "hset "+key)
			if fields["__content"] != "new doc" {
				t.Errorf("__content = %q, want new doc", fields["__content"])
			}
			if len(fields["__vector"]) != 8 {
				t.Errorf("__vector is %d bytes, want 8 for 2 floats", len(fields["__vector"]))
			}
			return nil
		},
	}
	repo := New(store, "test:")

	chunks := []domain.Chunk{{ID: "abc", Text: "new doc", Vector: []float32{0.1, 0.2}}}
	if err := repo.ReplaceAll(context.Background(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"del", "hset test:chunk:abc"}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("operation order mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceAll_EmptyCorpusSkipsDelete(t *testing.T) {
	deleted := false
	store := &mockStore{
		delMultiFn: func(_ context.Context, _ []string) error {
			deleted = true
			return nil
		},
	}
	repo := New(store, "test:")

	chunks := []domain.Chunk{{ID: "abc", Text: "doc", Vector: []float32{0.1}}}
	if err := repo.ReplaceAll(context.Background(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted {
		t.Error("DelMulti should not run when no chunks are resident")
	}
}

func TestReplaceAll_WrapsStoreErrors(t *testing.T) {
	store := &mockStore{
		hsetFn: func(_ context.Context, _ string, _ map[string]string) error {
			return errors.New("connection reset")
		},
	}
	repo := New(store, "test:")

	err := repo.ReplaceAll(context.Background(), []domain.Chunk{{ID: "a", Text: "t"}})
	if !errors.Is(err, domain.ErrStoreWrite) {
		t.Fatalf("err = %v, want ErrStoreWrite", err)
	}
}

func TestSearchKNN_MapsEntries(t *testing.T) {
	store := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.K != 10 {
				t.Errorf("k = %d, want 10", q.K)
			}
			if q.IndexName != "test:chunks:idx" {
				t.Errorf("index = %q, want test:chunks:idx", q.IndexName)
			}
			return &db.SearchResult{
				Total: 2,
				Entries: []db.SearchEntry{
					{Key: "test:chunk:a", Score: 0.95, Fields: map[string]string{"__content": "first"}},
					{Key: "test:chunk:b", Score: 0.61, Fields: map[string]string{"__content": "second"}},
				},
			}, nil
		},
	}
	repo := New(store, "test:")

	passages, err := repo.SearchKNN(context.Background(), []float32{0.1, 0.2}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].Text != "first" || passages[0].Score != 0.95 {
		t.Errorf("passage[0] = %+v", passages[0])
	}
	if passages[1].Text != "second" {
		t.Errorf("passage[1] = %+v", passages[1])
	}
}

func TestSearchKNN_EmptyCorpus(t *testing.T) {
	store := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return &db.SearchResult{Total: 0}, nil
		},
	}
	repo := New(store, "test:")

	passages, err := repo.SearchKNN(context.Background(), []float32{0.1}, 10)
	if err != nil {
		t.Fatalf("empty corpus must not error: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("expected no passages, got %d", len(passages))
	}
}

func TestCount(t *testing.T) {
	store := &mockStore{
		scanFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"test:chunk:a", "test:chunk:b", "test:chunk:c"}, nil
		},
	}
	repo := New(store, "test:")

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}
