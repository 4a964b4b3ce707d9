// Package score holds the relevance scorers. Both are pure functions over
// their inputs: no state, no clock, case-insensitive, never negative.
//
// The entity and location scorers stay separate on purpose. Location ranking
// promises that an exactly-named node outranks every partial match, so the
// location scorer keeps exact, prefix and substring as exclusive tiers; the
// entity scorer has no prefix tier.
package score

import "strings"

const (
	exactWeight        = 100
	prefixWeight       = 80
	containsWeight     = 50
	wordPairWeight     = 10
	descContainsWeight = 20
)

// Relevance scores a record title and description against a query.
// Tiers on the title are exclusive: an exact match scores 100 flat, a
// substring match scores 50 plus word-pair bonuses. A description containing
// the query adds 20 either way.
func Relevance(query, title, description string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	t := strings.ToLower(title)

	score := 0
	switch {
	case t == q:
		score += exactWeight
	case strings.Contains(t, q):
		score += containsWeight + wordPairs(q, t)*wordPairWeight
	default:
		score += wordPairs(q, t) * wordPairWeight
	}
	if strings.Contains(strings.ToLower(description), q) {
		score += descContainsWeight
	}
	return score
}

// LocationRelevance scores a location name against a query. Exact 100,
// prefix 80, substring 50, exclusive; non-exact matches also earn word-pair
// bonuses.
func LocationRelevance(query, name string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	n := strings.ToLower(name)

	switch {
	case n == q:
		return exactWeight
	case strings.HasPrefix(n, q):
		return prefixWeight + wordPairs(q, n)*wordPairWeight
	case strings.Contains(n, q):
		return containsWeight + wordPairs(q, n)*wordPairWeight
	default:
		return wordPairs(q, n) * wordPairWeight
	}
}

// wordPairs counts (query word, title word) pairs where the title word
// contains the query word. Both inputs must already be lowercased.
func wordPairs(query, title string) int {
	queryWords := strings.Fields(query)
	titleWords := strings.Fields(title)
	pairs := 0
	for _, qw := range queryWords {
		for _, tw := range titleWords {
			if strings.Contains(tw, qw) {
				pairs++
			}
		}
	}
	return pairs
}
