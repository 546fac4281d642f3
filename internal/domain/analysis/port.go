package analysis

import "context"

// Repository port for persisting and querying analyses.
// All list operations return newest first, ties broken by insertion order.
type Repository interface {
	Migrate(ctx context.Context) error
	Append(ctx context.Context, text, summary string, md Metadata) (*Record, error)
	ListAll(ctx context.Context) ([]*Record, error)
	FindByTopicSubstring(ctx context.Context, s string) ([]*Record, error)
	FindByKeywordOrTextSubstring(ctx context.Context, s string) ([]*Record, error)
}

// Archive port for keeping the raw model output next to a stored record.
type Archive interface {
	Put(ctx context.Context, key string, body []byte) (string, error)
}
