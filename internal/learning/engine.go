// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package learning

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/hooks"
	"github.com/traylinx/majordomo/internal/nlu"
)

// DefaultAliasThreshold is the number of identical corrections required
// before an alias rule is generated.
const DefaultAliasThreshold = 2

// aliasConfidence is assigned to generated exact-match rules. High, but
// below 1.0 so a hand-written built-in rule reads as stronger evidence.
const aliasConfidence = 0.99

// missRetention bounds how long uncorrected misses are kept. An old miss
// nobody corrected is noise, not signal.
const missRetention = 30 * 24 * time.Hour

// RuleRegistrar receives generated recognition rules. The NLU engine
// satisfies this interface.
type RuleRegistrar interface {
	RegisterRule(rule nlu.Rule) error
}

// Engine is the learning and correction engine. It records misses, applies
// user corrections to the most recent uncorrected miss, and compiles
// repeated corrections into new NLU rules.
type Engine struct {
	mu        sync.Mutex
	store     *Store
	registrar RuleRegistrar
	threshold int
	bus       *hooks.EventBus
}

// NewEngine creates a learning engine on top of a store. The registrar
// receives generated alias rules; threshold values <= 0 use the default.
func NewEngine(store *Store, registrar RuleRegistrar, threshold int, bus *hooks.EventBus) *Engine {
	if threshold <= 0 {
		threshold = DefaultAliasThreshold
	}
	return &Engine{store: store, registrar: registrar, threshold: threshold, bus: bus}
}

// Start loads previously generated aliases into the NLU engine so learned
// rules survive restarts.
func (e *Engine) Start(ctx context.Context) error {
	aliases, err := e.store.Aliases(ctx)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		if err := e.registrar.RegisterRule(aliasRule(alias.Text, alias.Intent)); err != nil {
			log.Warnf("Failed to restore alias %q -> %s: %v", alias.Text, alias.Intent, err)
		}
	}
	if len(aliases) > 0 {
		log.Infof("Restored %d learned aliases", len(aliases))
	}

	if pruned, err := e.store.PruneMisses(ctx, missRetention); err != nil {
		log.Warnf("Failed to prune stale misses: %v", err)
	} else if pruned > 0 {
		log.Infof("Pruned %d stale uncorrected misses", pruned)
	}
	return nil
}

// RecordMiss stores an unrecognized input with corrected = false.
func (e *Engine) RecordMiss(ctx context.Context, text string) error {
	text = normalize(text)
	if text == "" {
		return fmt.Errorf("learning: cannot record empty miss")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.store.InsertMiss(ctx, text); err != nil {
		return err
	}
	log.Debugf("Recorded miss: %q", text)
	return nil
}

// ApplyCorrection binds the most recent uncorrected miss to an intent.
// The scan is reverse-chronological; the first uncorrected record wins and
// is mutated exactly once. It returns false when nothing is left to correct.
func (e *Engine) ApplyCorrection(ctx context.Context, text, intent string) (bool, error) {
	if intent == "" {
		return false, fmt.Errorf("learning: correction requires an intent name")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	miss, ok, err := e.store.LatestUncorrected(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := e.store.MarkCorrected(ctx, miss.ID, intent); err != nil {
		return false, err
	}

	log.Infof("Correction applied: %q -> %s", miss.Text, intent)
	if text != "" && normalize(text) != miss.Text {
		log.Debugf("Correction text %q differs from selected miss %q", text, miss.Text)
	}
	return true, nil
}

// AutoGenerateAliases synthesizes exact-match rules for every (text, intent)
// pair corrected at least threshold times, registers them with the NLU
// engine, and returns the number of new rules. Pairs that already produced
// a rule are skipped, making the operation idempotent. A threshold <= 0
// uses the engine's configured threshold.
func (e *Engine) AutoGenerateAliases(ctx context.Context, threshold int) (int, error) {
	if threshold <= 0 {
		threshold = e.threshold
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	groups, err := e.store.CorrectionGroups(ctx)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, g := range groups {
		if g.Count < threshold {
			continue
		}
		exists, err := e.store.HasAlias(ctx, g.Text, g.Intent)
		if err != nil {
			return generated, err
		}
		if exists {
			continue
		}

		if err := e.registrar.RegisterRule(aliasRule(g.Text, g.Intent)); err != nil {
			log.Warnf("Failed to register alias rule for %q: %v", g.Text, err)
			continue
		}
		if err := e.store.InsertAlias(ctx, g.Text, g.Intent); err != nil {
			return generated, err
		}

		generated++
		log.Infof("Generated alias: %q -> %s (%d corrections)", g.Text, g.Intent, g.Count)
		if e.bus != nil {
			e.bus.PublishAsync(&hooks.EventContext{
				Event:  hooks.EventAliasGenerated,
				Intent: g.Intent,
				Data:   map[string]interface{}{"text": g.Text, "corrections": g.Count},
			})
		}
	}
	return generated, nil
}

// LookupCorrection resolves a literal input against known corrections,
// used by the router's learned-command dispatch stage.
func (e *Engine) LookupCorrection(ctx context.Context, text string) (string, bool) {
	intent, ok, err := e.store.LookupCorrection(ctx, normalize(text))
	if err != nil {
		log.Warnf("Correction lookup failed: %v", err)
		return "", false
	}
	return intent, ok
}

// RecentMisses returns up to limit recent misses, newest first.
func (e *Engine) RecentMisses(ctx context.Context, limit int) ([]*Miss, error) {
	return e.store.Misses(ctx, limit)
}

// Stats returns aggregate learning counters.
func (e *Engine) Stats(ctx context.Context) (map[string]interface{}, error) {
	return e.store.Stats(ctx)
}

// aliasRule builds the exact-match rule for a learned pair.
func aliasRule(text, intent string) nlu.Rule {
	return nlu.Rule{
		Pattern:    "^" + regexp.QuoteMeta(text) + "$",
		Intent:     intent,
		Confidence: aliasConfidence,
	}
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
