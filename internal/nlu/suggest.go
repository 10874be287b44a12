// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nlu

import (
	"sort"
	"strings"
)

// suggestLocked ranks candidate intents for an input no rule matched.
// Candidates come from the recent context history (recency-weighted) and
// from the registered intent names (lexical overlap with the input).
// The ranking is a heuristic, not a contract, but it must be deterministic:
// scores are fixed for a fixed history and ties break alphabetically.
// Caller must hold e.mu (read lock is sufficient).
func (e *Engine) suggestLocked(normalized string) []string {
	scores := make(map[string]float64)

	if e.suggestions != nil {
		recent := e.suggestions.RecentIntents(e.maxSuggest * 2)
		for i, name := range recent {
			// Newest first: the most recent intent gets the largest bonus.
			bonus := 1.0 - float64(i)*0.1
			if bonus < 0.1 {
				bonus = 0.1
			}
			if bonus > scores[name] {
				scores[name] = bonus
			}
		}
	}

	inputTokens := strings.Fields(normalized)
	for _, cr := range e.rules {
		overlap := lexicalOverlap(inputTokens, cr.rule.Intent)
		if overlap > 0 && overlap+0.5 > scores[cr.rule.Intent] {
			scores[cr.rule.Intent] = overlap + 0.5
		}
	}
	for _, kw := range e.keywords {
		overlap := lexicalOverlap(inputTokens, kw.intent)
		if overlap > 0 && overlap+0.5 > scores[kw.intent] {
			scores[kw.intent] = overlap + 0.5
		}
	}

	type scored struct {
		name  string
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for name, score := range scores {
		ranked = append(ranked, scored{name, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})

	limit := e.maxSuggest
	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]string, 0, limit)
	for _, s := range ranked[:limit] {
		out = append(out, s.name)
	}
	return out
}

// lexicalOverlap scores how many tokens of the input appear in the intent
// name, normalized by the intent's token count.
func lexicalOverlap(inputTokens []string, intent string) float64 {
	intentTokens := strings.Split(intent, "_")
	if len(intentTokens) == 0 {
		return 0
	}

	hits := 0
	for _, it := range intentTokens {
		for _, token := range inputTokens {
			if token == it {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(intentTokens))
}
