// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package skills

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/hooks"
)

// Conflict records a rejected intent claim.
type Conflict struct {
	Intent   string `json:"intent"`
	Owner    string `json:"owner"`
	Rejected string `json:"rejected"`
}

// Registry manages the collection of skills and dispatches intents to the
// skill owning them.
//
// Ownership policy: first registered wins. A later skill claiming an
// already-owned intent keeps its other intents but the conflicting claim is
// rejected, logged, and recorded. The policy is deterministic: dispatch of
// a conflicted intent always reaches the first-registered owner.
type Registry struct {
	mu        sync.RWMutex
	skills    []Skill
	owners    map[string]Skill
	conflicts []Conflict
	usage     map[string]int64
	bus       *hooks.EventBus
}

// NewRegistry creates an empty skill registry. The event bus is optional.
func NewRegistry(bus *hooks.EventBus) *Registry {
	return &Registry{
		owners: make(map[string]Skill),
		usage:  make(map[string]int64),
		bus:    bus,
	}
}

// Register adds a skill and claims its declared intents. Conflicting claims
// are rejected per the first-registered-wins policy; registration itself
// never fails because of a conflict.
func (r *Registry) Register(skill Skill) error {
	if skill == nil {
		return fmt.Errorf("skills: cannot register nil skill")
	}
	if skill.Name() == "" {
		return fmt.Errorf("skills: skill has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.skills = append(r.skills, skill)

	for _, intent := range skill.Intents() {
		if owner, exists := r.owners[intent]; exists {
			if owner == skill {
				continue
			}
			conflict := Conflict{Intent: intent, Owner: owner.Name(), Rejected: skill.Name()}
			r.conflicts = append(r.conflicts, conflict)
			log.Warnf("Intent conflict: %q already owned by %s, rejecting claim from %s",
				intent, owner.Name(), skill.Name())
			if r.bus != nil {
				r.bus.PublishAsync(&hooks.EventContext{
					Event:  hooks.EventIntentConflict,
					Intent: intent,
					Data: map[string]interface{}{
						"owner":    conflict.Owner,
						"rejected": conflict.Rejected,
					},
				})
			}
			continue
		}
		r.owners[intent] = skill
	}

	log.Infof("Skill registered: %s (intents=%v)", skill.Name(), skill.Intents())
	if r.bus != nil {
		r.bus.PublishAsync(&hooks.EventContext{
			Event: hooks.EventSkillRegistered,
			Data:  map[string]interface{}{"skill": skill.Name()},
		})
	}
	return nil
}

// Dispatch routes an intent to its owning skill. It returns false when no
// skill owns the intent or the owner failed; a skill error or panic never
// propagates past the registry boundary.
func (r *Registry) Dispatch(intent string, slots map[string]string) bool {
	r.mu.RLock()
	skill, ok := r.owners[intent]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	handled := r.invoke(skill, intent, slots)
	if handled {
		r.mu.Lock()
		r.usage[intent]++
		r.mu.Unlock()
	}
	return handled
}

// FuzzyDispatch is the secondary broader pass: skills implementing
// FuzzyHandler may claim an intent without an exact registry hit.
// Skills are consulted in registration order; the first claim wins.
func (r *Registry) FuzzyDispatch(intent string, slots map[string]string) bool {
	r.mu.RLock()
	candidates := make([]Skill, len(r.skills))
	copy(candidates, r.skills)
	r.mu.RUnlock()

	for _, skill := range candidates {
		fh, ok := skill.(FuzzyHandler)
		if !ok {
			continue
		}
		if r.invokeFuzzy(fh, skill.Name(), intent, slots) {
			return true
		}
	}
	return false
}

func (r *Registry) invoke(skill Skill, intent string, slots map[string]string) (handled bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Skill %s panicked handling %q: %v", skill.Name(), intent, rec)
			handled = false
		}
	}()

	handled, err := skill.Handle(intent, slots)
	if err != nil {
		log.Errorf("Skill %s failed handling %q: %v", skill.Name(), intent, err)
		return false
	}
	return handled
}

func (r *Registry) invokeFuzzy(fh FuzzyHandler, name, intent string, slots map[string]string) (handled bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Skill %s panicked in fuzzy pass for %q: %v", name, intent, rec)
			handled = false
		}
	}()

	handled, err := fh.HandleFuzzy(intent, slots)
	if err != nil {
		log.Debugf("Skill %s declined fuzzy %q: %v", name, intent, err)
		return false
	}
	return handled
}

// Owner returns the skill owning an intent, when one exists.
func (r *Registry) Owner(intent string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	skill, ok := r.owners[intent]
	return skill, ok
}

// Conflicts returns a copy of the recorded ownership conflicts.
func (r *Registry) Conflicts() []Conflict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

// SkillCount returns the number of registered skills.
func (r *Registry) SkillCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

// IntentNames returns all owned intent names; order is unspecified.
func (r *Registry) IntentNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.owners))
	for intent := range r.owners {
		names = append(names, intent)
	}
	return names
}

// UsageStats returns a copy of the per-intent dispatch counts.
func (r *Registry) UsageStats() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.usage))
	for k, v := range r.usage {
		out[k] = v
	}
	return out
}
