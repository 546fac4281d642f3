package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
)

const summaryField = "summary"

// ParseModelOutput splits the model's JSON object into the summary and the
// remaining structured fields, in the order the model wrote them. Code fences
// around the JSON are ignored.
func ParseModelOutput(raw string) (string, domain.Metadata, error) {
	content := cleanJSONResponse(raw)
	if content == "" {
		return "", domain.Metadata{}, fmt.Errorf("empty model response")
	}

	fields, err := domain.ParseMetadata([]byte(content))
	if errors.Is(err, domain.ErrNotObject) {
		return "", domain.Metadata{}, fmt.Errorf("model response is not a JSON object")
	}
	if err != nil {
		return "", domain.Metadata{}, fmt.Errorf("failed to parse model response: %w", err)
	}

	var summary string
	v, _ := fields.Get(summaryField)
	switch s := v.(type) {
	case nil:
	case string:
		summary = s
	default:
		b, _ := json.Marshal(s)
		summary = string(b)
	}
	fields.Delete(summaryField)
	return summary, fields, nil
}

func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
