// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package nlu provides rule-based natural language understanding for the
// command pipeline. It classifies raw text into intents with extracted slots
// and a confidence score, and tracks conversation context across turns.
package nlu

// Intent represents the classified action a user's command maps to.
// Instances are created by the Engine and never mutated afterwards.
type Intent struct {
	// Name is the intent identifier, e.g. "open_application".
	Name string `json:"name"`

	// Slots holds named parameters extracted from the command text.
	// Slot keys are defined per pattern; values are trimmed and may be
	// empty strings when a capture group did not participate in the match.
	Slots map[string]string `json:"slots"`

	// Confidence is the classification certainty in [0, 1].
	Confidence float64 `json:"confidence"`

	// FuzzyMatch names a near-miss alternative when the intent was
	// resolved through the keyword fallback rather than a full pattern.
	FuzzyMatch string `json:"fuzzy_match,omitempty"`
}

// Rule is a single recognition rule: a regular expression mapped to an
// intent name with a base confidence. Rule order is significant; earlier
// rules take priority over later ones.
type Rule struct {
	// Pattern is the matcher expression. Named capture groups become slots.
	Pattern string `json:"pattern" yaml:"pattern"`

	// Intent is the intent name this rule resolves to.
	Intent string `json:"intent" yaml:"intent"`

	// Confidence is the base confidence assigned to matches of this rule.
	// Zero means the built-in default of 1.0.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}
