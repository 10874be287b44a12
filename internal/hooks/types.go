// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hooks provides the event bus used to observe the command
// pipeline. The router and skill registry publish lifecycle events;
// logging and external integrations subscribe to them.
package hooks

import "time"

// Event identifies a pipeline lifecycle event.
type Event string

const (
	// EventCommandReceived fires when the router accepts a non-empty command.
	EventCommandReceived Event = "command.received"
	// EventIntentParsed fires after the NLU engine resolved an intent.
	EventIntentParsed Event = "intent.parsed"
	// EventPermissionDenied fires when the permission gate rejects a turn.
	EventPermissionDenied Event = "permission.denied"
	// EventCommandHandled fires when any dispatch stage handled the turn.
	EventCommandHandled Event = "command.handled"
	// EventCommandMissed fires when the terminal fallback consumed the turn.
	EventCommandMissed Event = "command.missed"
	// EventSkillRegistered fires when a skill is added to the registry.
	EventSkillRegistered Event = "skill.registered"
	// EventIntentConflict fires when two skills claim the same intent.
	EventIntentConflict Event = "intent.conflict"
	// EventAliasGenerated fires when the learning engine synthesizes a rule.
	EventAliasGenerated Event = "alias.generated"
)

// EventContext carries the payload delivered to subscribers.
type EventContext struct {
	Event     Event
	Timestamp time.Time

	// TurnID identifies the command turn that produced the event, when any.
	TurnID string
	// Intent is the resolved intent name, when known.
	Intent string
	// Stage names the pipeline stage that produced the event.
	Stage string
	// Text is the normalized command text the turn started from.
	Text string
	// Confidence is the parse confidence, zero when no intent was resolved.
	Confidence float64

	Data map[string]interface{}
}
