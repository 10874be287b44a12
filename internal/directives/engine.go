// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package directives

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Engine holds the loaded directives and applies them to turns.
type Engine struct {
	mu         sync.RWMutex
	directives []Directive
	evaluator  *ConditionEvaluator
}

// NewEngine creates a directive engine from the configured rules.
// Directives with an unknown action are rejected.
func NewEngine(directives []Directive) (*Engine, error) {
	for i, d := range directives {
		switch d.Action {
		case ActionRemap:
			if d.Target == "" {
				return nil, fmt.Errorf("directives: %q remaps without a target intent", d.Name)
			}
		case ActionBlock:
		case ActionRespond:
			if d.Response == "" {
				return nil, fmt.Errorf("directives: %q responds without a response text", d.Name)
			}
		default:
			return nil, fmt.Errorf("directives: %q has unknown action %q", d.Name, d.Action)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("directives: rule %d has no name", i)
		}
	}

	sorted := make([]Directive, len(directives))
	copy(sorted, directives)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	return &Engine{directives: sorted, evaluator: NewConditionEvaluator()}, nil
}

// Reload swaps the directive set, keeping the compiled-program cache.
func (e *Engine) Reload(directives []Directive) error {
	replacement, err := NewEngine(directives)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.directives = replacement.directives
	return nil
}

// Apply evaluates directives in priority order and returns the outcome of
// the first match, or nil when nothing matched. Evaluation errors disable
// the offending directive for the turn but never abort the pipeline.
func (e *Engine) Apply(ctx *TurnContext) *Outcome {
	e.mu.RLock()
	rules := make([]Directive, len(e.directives))
	copy(rules, e.directives)
	e.mu.RUnlock()

	for i := range rules {
		d := &rules[i]
		matched, err := e.evaluator.Evaluate(d.Condition, ctx)
		if err != nil {
			log.Warnf("Directive %q evaluation failed: %v", d.Name, err)
			continue
		}
		if !matched {
			continue
		}

		outcome := &Outcome{Directive: d, Action: d.Action, Intent: d.Target, Response: d.Response}
		log.Infof("Directive matched: %s (action=%s)", d.Name, d.Action)
		return outcome
	}
	return nil
}

// Count returns the number of loaded directives.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.directives)
}
