package prompt

import "fmt"

// GetSystemPrompt provides strict directions for JSON output.
func GetSystemPrompt() string {
	return `You are a helpful assistant that extracts structured information from text. Return only valid JSON: one object, no markdown, no commentary, no code fences.`
}

// GetUserPrompt asks for the summary and the structured fields in one response.
func GetUserPrompt(text string) string {
	return fmt.Sprintf(`Analyze this text and return JSON with:
- summary: 1-2 sentence summary (string)
- title: extract or generate a title (string)
- topics: 3 key topics (array of strings)
- sentiment: positive/neutral/negative (string)

Text: %s`, text)
}
