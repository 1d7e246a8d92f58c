package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusCounter reports the number of stored corpus chunks.
type CorpusCounter interface {
	Count(ctx context.Context) (int, error)
}
