package ai

import "context"

// Client extracts a summary and structured fields from text in a single call.
// The returned string is the raw model output, expected to be one JSON object.
type Client interface {
	Extract(ctx context.Context, text string) (string, error)
}
