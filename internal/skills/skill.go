// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package skills provides the pluggable skill registry. A skill is a
// self-contained handler unit owning one or more intents; the registry
// enforces single ownership per intent and shields the router from
// faulting handlers.
package skills

import "github.com/traylinx/majordomo/internal/nlu"

// Skill is the capability contract every handler unit implements.
// Handlers receive the intent name and extracted slots; they must tolerate
// empty-string slot values and must not panic across this boundary (the
// registry recovers, but a panic is logged as a skill defect).
type Skill interface {
	// Name returns a stable identifier used in logs and conflict reports.
	Name() string

	// Intents returns the set of intent names this skill owns.
	Intents() []string

	// Handle executes the intent. It returns true when the turn was
	// handled; a false return or an error sends the router to the next
	// dispatch stage.
	Handle(intent string, slots map[string]string) (bool, error)
}

// PatternProvider is implemented by skills that ship their own NLU rules.
// Skill-declared rules are registered ahead of the generic built-in rules
// so they win order-sensitive matching.
type PatternProvider interface {
	Patterns() []nlu.Rule
}

// KeywordProvider is implemented by skills that also declare keyword
// fallbacks for their intents.
type KeywordProvider interface {
	Keywords() map[string]string
}

// FuzzyHandler is implemented by skills that participate in the secondary
// fallback pass, claiming intents they do not own exactly.
type FuzzyHandler interface {
	// HandleFuzzy gives the skill a chance to claim a near-miss intent.
	// It returns true only when the skill actually handled the turn.
	HandleFuzzy(intent string, slots map[string]string) (bool, error)
}
