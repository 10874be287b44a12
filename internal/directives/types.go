// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package directives implements admin-authored steering rules evaluated
// before dispatch. A directive condition is an expression over the turn
// context; a matching directive can remap the intent, block it outright,
// or short-circuit with a fixed response.
package directives

import "time"

// Action names what a matching directive does to the turn.
type Action string

const (
	// ActionRemap replaces the parsed intent with Target before dispatch.
	ActionRemap Action = "remap"
	// ActionBlock denies the turn with a spoken refusal.
	ActionBlock Action = "block"
	// ActionRespond answers with Response and consumes the turn.
	ActionRespond Action = "respond"
)

// Directive is a single steering rule.
type Directive struct {
	Name string `yaml:"name" json:"name"`

	// Condition is an expression over TurnContext, e.g.
	// "Intent == 'shutdown_computer' && Hour >= 22". Empty means always.
	Condition string `yaml:"condition" json:"condition"`

	// Priority orders evaluation; higher runs first.
	Priority int `yaml:"priority" json:"priority"`

	Action   Action `yaml:"action" json:"action"`
	Target   string `yaml:"target,omitempty" json:"target,omitempty"`
	Response string `yaml:"response,omitempty" json:"response,omitempty"`
}

// TurnContext is the expression environment for directive conditions.
type TurnContext struct {
	Text       string    `json:"text"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	TextLength int       `json:"text_length"`
	Hour       int       `json:"hour"`
	DayOfWeek  string    `json:"day_of_week"`
	Timestamp  time.Time `json:"timestamp"`
}

// Outcome describes what the matched directive asks the router to do.
type Outcome struct {
	Directive *Directive
	Action    Action
	Intent    string
	Response  string
}
