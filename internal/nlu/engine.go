// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nlu

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// defaultConfidence is assigned to rules registered without an explicit score.
const defaultConfidence = 1.0

// keywordConfidence is the score for keyword fallback matches. Keyword hits
// are weaker evidence than a full pattern match, so they always carry a
// FuzzyMatch marker the router can disclose to the user.
const keywordConfidence = 0.7

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// SuggestionSource supplies recently seen intents for suggestion ranking.
// The context Tracker satisfies this interface.
type SuggestionSource interface {
	RecentIntents(n int) []string
}

// Engine is a rule-based NLU engine. Rules are evaluated in registration
// order and the first match wins, which lets skill-declared rules pre-empt
// the generic built-in ones. Parsing is a pure function over the current
// rule set; the rule set itself only changes through explicit registration.
type Engine struct {
	mu       sync.RWMutex
	rules    []compiledRule
	keywords []keywordRule

	suggestions SuggestionSource
	maxSuggest  int
}

type keywordRule struct {
	keyword string
	intent  string
}

// NewEngine creates an empty NLU engine. maxSuggest caps the number of
// suggestions returned on a failed parse; values <= 0 use the default of 3.
func NewEngine(maxSuggest int) *Engine {
	if maxSuggest <= 0 {
		maxSuggest = 3
	}
	return &Engine{maxSuggest: maxSuggest}
}

// SetSuggestionSource wires a context history used to rank suggestions.
func (e *Engine) SetSuggestionSource(src SuggestionSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suggestions = src
}

// RegisterRule appends a rule to the end of the rule sequence.
// The pattern is compiled eagerly so a malformed expression is rejected at
// registration time instead of poisoning every parse.
func (e *Engine) RegisterRule(rule Rule) error {
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return fmt.Errorf("nlu: invalid pattern %q for intent %q: %w", rule.Pattern, rule.Intent, err)
	}
	if rule.Intent == "" {
		return fmt.Errorf("nlu: rule with pattern %q has no intent", rule.Pattern)
	}
	if rule.Confidence <= 0 {
		rule.Confidence = defaultConfidence
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, compiledRule{rule: rule, re: re})
	return nil
}

// RegisterRules appends rules in order, stopping at the first bad pattern.
func (e *Engine) RegisterRules(rules []Rule) error {
	for _, r := range rules {
		if err := e.RegisterRule(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterKeyword adds a keyword fallback: when no pattern rule matches but
// the normalized text contains the keyword, the intent is returned with
// reduced confidence and the keyword recorded as the fuzzy match.
func (e *Engine) RegisterKeyword(keyword, intent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keywords = append(e.keywords, keywordRule{keyword: strings.ToLower(keyword), intent: intent})
}

// RuleCount returns the number of registered pattern rules.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// IntentNames returns the distinct intent names reachable through the
// current rule set, in registration order.
func (e *Engine) IntentNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]bool, len(e.rules))
	var names []string
	for _, cr := range e.rules {
		if !seen[cr.rule.Intent] {
			seen[cr.rule.Intent] = true
			names = append(names, cr.rule.Intent)
		}
	}
	for _, kw := range e.keywords {
		if !seen[kw.intent] {
			seen[kw.intent] = true
			names = append(names, kw.intent)
		}
	}
	return names
}

// Parse classifies text into an Intent, or nil when nothing matches.
func (e *Engine) Parse(text string) *Intent {
	intent, _ := e.ParseWithConfidence(text)
	return intent
}

// ParseWithConfidence classifies text into an Intent with a confidence
// score. When no rule matches it returns a nil intent together with at most
// maxSuggest suggestion strings ranked by recency and lexical overlap with
// the input. Suggestion ranking is deterministic for a fixed history.
func (e *Engine) ParseWithConfidence(text string) (*Intent, []string) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, cr := range e.rules {
		m := cr.re.FindStringSubmatchIndex(normalized)
		if m == nil {
			continue
		}
		return &Intent{
			Name:       cr.rule.Intent,
			Slots:      extractSlots(cr.re, normalized, m),
			Confidence: cr.rule.Confidence,
		}, nil
	}

	for _, kw := range e.keywords {
		if strings.Contains(normalized, kw.keyword) {
			log.Debugf("nlu: keyword fallback %q -> %s", kw.keyword, kw.intent)
			return &Intent{
				Name:       kw.intent,
				Slots:      map[string]string{},
				Confidence: keywordConfidence,
				FuzzyMatch: kw.keyword,
			}, nil
		}
	}

	return nil, e.suggestLocked(normalized)
}

// extractSlots builds the slot map from named capture groups. Groups that
// did not participate in the match are present with an empty string value,
// so handlers never need to distinguish missing from empty.
func extractSlots(re *regexp.Regexp, text string, matchIndex []int) map[string]string {
	slots := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		start, end := matchIndex[2*i], matchIndex[2*i+1]
		if start < 0 || end < 0 {
			slots[name] = ""
			continue
		}
		slots[name] = strings.TrimSpace(text[start:end])
	}
	return slots
}
