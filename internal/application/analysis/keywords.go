package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// MaxKeywords is how many keywords ExtractKeywords returns at most.
const MaxKeywords = 3

var letterRun = regexp.MustCompile(`[a-z]+`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {}, "day": {},
	"get": {}, "has": {}, "him": {}, "his": {}, "how": {}, "its": {}, "may": {}, "new": {},
	"now": {}, "old": {}, "see": {}, "two": {}, "way": {}, "who": {}, "boy": {}, "did": {},
	"man": {}, "men": {}, "put": {}, "say": {}, "she": {}, "too": {}, "use": {},
}

// ExtractKeywords returns up to three frequent terms of text, most frequent first,
// ties kept in first-seen order. It is a lexical frequency count over a stoplist,
// not part-of-speech tagging, so results only approximate "key nouns".
func ExtractKeywords(text string) []string {
	counts := make(map[string]int)
	var order []string
	for _, tok := range letterRun.FindAllString(strings.ToLower(text), -1) {
		if len(tok) < 4 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	if order == nil {
		return []string{}
	}
	return order
}
