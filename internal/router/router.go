// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package router implements the intent dispatch pipeline. Each incoming
// command runs through a fixed sequence of stages (parse, context record,
// confidence notice, permission gate, skill dispatch, legacy dispatch,
// learned dispatch, fuzzy fallback, terminal fallback) and always ends in a
// user-facing response. No stage failure ever propagates to the caller.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/directives"
	"github.com/traylinx/majordomo/internal/hooks"
	"github.com/traylinx/majordomo/internal/learning"
	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/permissions"
	"github.com/traylinx/majordomo/internal/skills"
	"github.com/traylinx/majordomo/internal/speech"
)

// confidenceNoticeThreshold triggers the low-confidence disclosure.
const confidenceNoticeThreshold = 0.8

// Stage names the pipeline stage that resolved a turn.
const (
	StageEmpty     = "empty"
	StageDirective = "directive"
	StageDenied    = "denied"
	StageSkill     = "skill"
	StageLegacy    = "legacy"
	StageLearned   = "learned"
	StageFuzzy     = "fuzzy"
	StageFallback  = "fallback"
)

// LegacyHandler is a built-in handler predating the skill system.
type LegacyHandler func(slots map[string]string) (bool, error)

// Result summarizes a processed turn for callers such as the HTTP API.
// The router itself signals nothing through it: per the pipeline contract
// every non-empty turn is handled, and all failure signaling happens
// through the spoken response.
type Result struct {
	TurnID      string   `json:"turn_id"`
	Input       string   `json:"input"`
	Intent      string   `json:"intent,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	Stage       string   `json:"stage"`
	Spoken      []string `json:"spoken"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Router is the orchestrator for the command pipeline.
type Router struct {
	// mu serializes turn processing: one command runs to completion
	// before the next starts, regardless of which thread submitted it.
	mu sync.Mutex

	engine   *nlu.Engine
	tracker  *nlu.Tracker
	perms    atomic.Pointer[permissions.Table]
	registry *skills.Registry
	learning *learning.Engine
	steering *directives.Engine
	speaker  speech.Speaker
	capture  *speech.Capture
	bus      *hooks.EventBus

	legacyMu sync.RWMutex
	legacy   map[string]LegacyHandler

	statsMu sync.Mutex
	stats   map[string]int64
}

// Options carries the router's collaborators. Engine, Tracker, Permissions,
// Registry and Speaker are required; the rest are optional.
type Options struct {
	Engine      *nlu.Engine
	Tracker     *nlu.Tracker
	Permissions *permissions.Table
	Registry    *skills.Registry
	Learning    *learning.Engine
	Directives  *directives.Engine
	Speaker     speech.Speaker
	Bus         *hooks.EventBus
}

// New creates a router from its collaborators.
func New(opts Options) (*Router, error) {
	if opts.Engine == nil || opts.Tracker == nil || opts.Registry == nil || opts.Speaker == nil {
		return nil, fmt.Errorf("router: engine, tracker, registry and speaker are required")
	}
	if opts.Permissions == nil {
		return nil, fmt.Errorf("router: permission table is required")
	}

	r := &Router{
		engine:   opts.Engine,
		tracker:  opts.Tracker,
		registry: opts.Registry,
		learning: opts.Learning,
		steering: opts.Directives,
		speaker:  opts.Speaker,
		bus:      opts.Bus,
		legacy:   make(map[string]LegacyHandler),
		stats:    make(map[string]int64),
	}
	// When the speaker is a capture wrapper, Process drains it per turn so
	// skill responses show up in the Result too.
	r.capture, _ = opts.Speaker.(*speech.Capture)
	r.perms.Store(opts.Permissions)
	return r, nil
}

// SetPermissions atomically swaps the permission table; used by the config
// watcher for live reload.
func (r *Router) SetPermissions(table *permissions.Table) {
	if table != nil {
		r.perms.Store(table)
	}
}

// RegisterLegacyHandler installs a built-in handler keyed by intent name.
// Legacy handlers are attempted after skill dispatch.
func (r *Router) RegisterLegacyHandler(intent string, handler LegacyHandler) {
	r.legacyMu.Lock()
	defer r.legacyMu.Unlock()
	r.legacy[intent] = handler
}

// Stats returns a copy of the per-stage resolution counters.
func (r *Router) Stats() map[string]int64 {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	out := make(map[string]int64, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

// Process runs one command through the pipeline on behalf of a principal
// with the given role. It never returns an error and never panics; the only
// silent exit is empty input.
func (r *Router) Process(ctx context.Context, role permissions.Role, rawText string) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capture != nil {
		r.capture.Drain()
	}
	result := r.process(ctx, role, rawText)
	if r.capture != nil {
		result.Spoken = r.capture.Drain()
	}
	return result
}

func (r *Router) process(ctx context.Context, role permissions.Role, rawText string) *Result {
	result := &Result{Input: rawText}

	// Stage 1: empty input terminates silently. There was no command to
	// fail on, so nothing is spoken.
	text := strings.TrimSpace(rawText)
	if text == "" {
		log.Warn("Empty command received")
		result.Stage = StageEmpty
		r.count(StageEmpty)
		return result
	}

	turnID := uuid.NewString()[:8]
	result.TurnID = turnID
	logger := log.WithField("turn_id", turnID)
	logger.Infof("Command received: %s", text)
	r.publishTurn(hooks.EventCommandReceived, result, text, nil)

	speak := func(line string) {
		result.Spoken = append(result.Spoken, line)
		r.speaker.Speak(line)
	}

	// Stage 2: parse. A panicking rule set is treated as "no intent".
	intent, suggestions := r.safeParse(logger, text)
	result.Suggestions = suggestions
	if intent == nil {
		r.fallback(ctx, logger, result, text, suggestions, speak)
		return result
	}
	result.Intent = intent.Name
	result.Confidence = intent.Confidence
	logger.Infof("Intent parsed: %s (confidence=%.2f)", intent.Name, intent.Confidence)
	r.publishTurn(hooks.EventIntentParsed, result, text, nil)

	// Directive pass: steering rules may remap, block, or answer the turn
	// before ordinary dispatch.
	if outcome := r.applyDirectives(logger, text, intent); outcome != nil {
		switch outcome.Action {
		case directives.ActionRespond:
			speak(outcome.Response)
			result.Stage = StageDirective
			r.count(StageDirective)
			r.publishTurn(hooks.EventCommandHandled, result, text, nil)
			return result
		case directives.ActionBlock:
			speak("That command is blocked by policy.")
			result.Stage = StageDirective
			r.count(StageDirective)
			r.publishTurn(hooks.EventPermissionDenied, result, text, nil)
			return result
		case directives.ActionRemap:
			logger.Infof("Directive remapped intent %s -> %s", intent.Name, outcome.Intent)
			intent = &nlu.Intent{
				Name:       outcome.Intent,
				Slots:      intent.Slots,
				Confidence: intent.Confidence,
				FuzzyMatch: intent.FuzzyMatch,
			}
			result.Intent = intent.Name
		}
	}

	// Stage 3: record context. Best effort; a tracker fault must not
	// abort the turn.
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Errorf("Context record failed: %v", rec)
			}
		}()
		r.tracker.Record(nlu.Entry{
			Kind:       nlu.EntryIntent,
			Intent:     intent.Name,
			Slots:      intent.Slots,
			Confidence: intent.Confidence,
		})
	}()

	// Stage 4: confidence notice. Discloses uncertainty but does not
	// block dispatch with the original intent.
	if intent.Confidence < confidenceNoticeThreshold {
		notice := fmt.Sprintf("I detected '%s' with %.0f%% confidence.", intent.Name, intent.Confidence*100)
		if intent.FuzzyMatch != "" {
			notice += fmt.Sprintf(" Did you mean '%s'?", intent.FuzzyMatch)
		}
		speak(notice)
	}

	// Stage 5: permission gate. Denial consumes the turn.
	if !r.perms.Load().IsAuthorized(role, intent.Name) {
		logger.Warnf("Permission denied: role=%s intent=%s", role, intent.Name)
		speak("You do not have permission for that command.")
		result.Stage = StageDenied
		r.count(StageDenied)
		r.publishTurn(hooks.EventPermissionDenied, result, text, map[string]interface{}{"role": role.String()})
		return result
	}

	// Stage 6: skill dispatch.
	if r.registry.Dispatch(intent.Name, intent.Slots) {
		logger.Infof("Skill handled: %s", intent.Name)
		result.Stage = StageSkill
		r.count(StageSkill)
		r.publishTurn(hooks.EventCommandHandled, result, text, nil)
		return result
	}

	// Stage 7: legacy dispatch. Faults are swallowed and logged.
	if r.dispatchLegacy(logger, intent.Name, intent.Slots) {
		result.Stage = StageLegacy
		r.count(StageLegacy)
		r.publishTurn(hooks.EventCommandHandled, result, text, nil)
		return result
	}

	// Stage 8: learned dispatch. A known correction for the literal input
	// re-enters dispatch under the corrected intent.
	if r.learning != nil {
		if learned, ok := r.learning.LookupCorrection(ctx, text); ok && learned != intent.Name {
			logger.Infof("Learned correction: %q -> %s", text, learned)
			if r.registry.Dispatch(learned, intent.Slots) || r.dispatchLegacy(logger, learned, intent.Slots) {
				result.Stage = StageLearned
				result.Intent = learned
				r.count(StageLearned)
				r.publishTurn(hooks.EventCommandHandled, result, text, nil)
				return result
			}
		}
	}

	// Stage 9: fuzzy fallback. Skills may claim the intent heuristically.
	if r.registry.FuzzyDispatch(intent.Name, intent.Slots) {
		logger.Infof("Fuzzy dispatch handled: %s", intent.Name)
		result.Stage = StageFuzzy
		r.count(StageFuzzy)
		r.publishTurn(hooks.EventCommandHandled, result, text, nil)
		return result
	}

	// Stage 10: terminal fallback.
	r.fallback(ctx, logger, result, text, suggestions, speak)
	return result
}

// fallback is the terminal stage: it always speaks, records the miss, and
// marks the turn handled.
func (r *Router) fallback(ctx context.Context, logger *log.Entry, result *Result, text string, suggestions []string, speak func(string)) {
	if len(suggestions) > 0 {
		speak("I did not understand. Did you mean: " + strings.Join(suggestions, ", ") + "?")
	} else {
		speak("I could not process that instruction.")
	}

	if r.learning != nil {
		if err := r.learning.RecordMiss(ctx, text); err != nil {
			logger.Warnf("Failed to record miss: %v", err)
		}
	}

	result.Stage = StageFallback
	r.count(StageFallback)
	r.publishTurn(hooks.EventCommandMissed, result, text, nil)
	logger.Warnf("Unhandled command: %s", text)
}

func (r *Router) safeParse(logger *log.Entry, text string) (intent *nlu.Intent, suggestions []string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("NLU parse panicked: %v", rec)
			intent, suggestions = nil, nil
		}
	}()
	return r.engine.ParseWithConfidence(text)
}

func (r *Router) applyDirectives(logger *log.Entry, text string, intent *nlu.Intent) *directives.Outcome {
	if r.steering == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("Directive evaluation panicked: %v", rec)
		}
	}()

	now := time.Now()
	return r.steering.Apply(&directives.TurnContext{
		Text:       text,
		Intent:     intent.Name,
		Confidence: intent.Confidence,
		TextLength: len(text),
		Hour:       now.Hour(),
		DayOfWeek:  now.Weekday().String(),
		Timestamp:  now,
	})
}

func (r *Router) dispatchLegacy(logger *log.Entry, intent string, slots map[string]string) (handled bool) {
	r.legacyMu.RLock()
	handler, ok := r.legacy[intent]
	r.legacyMu.RUnlock()
	if !ok {
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("Legacy handler panicked for %q: %v", intent, rec)
			handled = false
		}
	}()

	handled, err := handler(slots)
	if err != nil {
		logger.Errorf("Legacy handler failed for %q: %v", intent, err)
		return false
	}
	if handled {
		logger.Infof("Legacy handler handled: %s", intent)
	}
	return handled
}

func (r *Router) count(stage string) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats[stage]++
}

// publishTurn delivers a lifecycle event carrying the turn result's state
// at the time of publication.
func (r *Router) publishTurn(event hooks.Event, result *Result, text string, data map[string]interface{}) {
	if r.bus == nil {
		return
	}
	r.bus.PublishAsync(&hooks.EventContext{
		Event:      event,
		TurnID:     result.TurnID,
		Intent:     result.Intent,
		Stage:      result.Stage,
		Text:       text,
		Confidence: result.Confidence,
		Data:       data,
	})
}
