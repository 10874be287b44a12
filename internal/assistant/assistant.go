// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package assistant wires the NLU engine, context tracker, permission table,
// skill registry, learning engine, and router into a running assistant.
package assistant

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/config"
	"github.com/traylinx/majordomo/internal/directives"
	"github.com/traylinx/majordomo/internal/hooks"
	"github.com/traylinx/majordomo/internal/learning"
	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/permissions"
	"github.com/traylinx/majordomo/internal/plugin"
	"github.com/traylinx/majordomo/internal/router"
	"github.com/traylinx/majordomo/internal/skills"
	"github.com/traylinx/majordomo/internal/skills/builtin"
	"github.com/traylinx/majordomo/internal/speech"
)

// Assistant owns the full command pipeline and its collaborators.
type Assistant struct {
	Engine   *nlu.Engine
	Tracker  *nlu.Tracker
	Registry *skills.Registry
	Learning *learning.Engine
	Router   *router.Router
	Bus      *hooks.EventBus

	luaEngine *plugin.LuaEngine
	store     *learning.Store
	steering  *directives.Engine
}

// New builds an assistant from configuration. The speaker receives every
// user-facing response.
func New(ctx context.Context, cfg *config.Config, speaker speech.Speaker) (*Assistant, error) {
	bus := hooks.NewEventBus()
	bus.Subscribe(hooks.EventCommandMissed, func(ec *hooks.EventContext) {
		log.WithField("turn_id", ec.TurnID).Info("Command missed; recorded for correction")
	})
	bus.Subscribe(hooks.EventAliasGenerated, func(ec *hooks.EventContext) {
		log.WithField("turn_id", ec.TurnID).Infof("Learned new alias for intent %s", ec.Intent)
	})

	// Wrap the speaker so each turn's responses can be drained into the
	// turn result, which the HTTP API returns to clients.
	capture := speech.NewCapture(speaker)

	engine := nlu.NewEngine(cfg.NLU.MaxSuggestions)
	tracker := nlu.NewTracker(cfg.Context.Capacity)
	engine.SetSuggestionSource(tracker)

	registry := skills.NewRegistry(bus)

	a := &Assistant{
		Engine:   engine,
		Tracker:  tracker,
		Registry: registry,
		Bus:      bus,
	}

	if cfg.Learning.Enabled {
		store, err := learning.NewStore(cfg.Learning.DBPath)
		if err != nil {
			return nil, fmt.Errorf("assistant: failed to create learning store: %w", err)
		}
		if err := store.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("assistant: failed to open learning store: %w", err)
		}
		a.store = store
		a.Learning = learning.NewEngine(store, engine, cfg.Learning.AliasThreshold, bus)
		if err := a.Learning.Start(ctx); err != nil {
			log.Warnf("Failed to restore learned aliases: %v", err)
		}
	}

	for _, s := range builtinSkills(a, capture) {
		a.AddSkill(s)
	}

	if cfg.Plugins.Enabled {
		a.luaEngine = plugin.NewLuaEngine(plugin.Config{
			Enabled:   true,
			PluginDir: cfg.Plugins.Dir,
		}, capture)
		for _, s := range a.luaEngine.Load() {
			a.AddSkill(s)
		}
	}

	// Config-declared rules come after the skill patterns so built-ins
	// keep first-match priority.
	for _, r := range cfg.Rules {
		rule := nlu.Rule{Pattern: r.Pattern, Intent: r.Intent, Confidence: r.Confidence}
		if err := engine.RegisterRule(rule); err != nil {
			log.Warnf("Skipping invalid config rule: %v", err)
		}
	}

	table, err := buildPermissions(&cfg.Permissions)
	if err != nil {
		return nil, err
	}

	// The engine is created even when no directives are configured so a
	// config reload can populate it later.
	a.steering, err = directives.NewEngine(cfg.Directives)
	if err != nil {
		return nil, fmt.Errorf("assistant: invalid directives: %w", err)
	}

	a.Router, err = router.New(router.Options{
		Engine:      engine,
		Tracker:     tracker,
		Permissions: table,
		Registry:    registry,
		Learning:    a.Learning,
		Directives:  a.steering,
		Speaker:     capture,
		Bus:         bus,
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// AddSkill registers a skill with the registry and its declared patterns and
// keywords with the NLU engine.
func (a *Assistant) AddSkill(s skills.Skill) {
	if err := a.Registry.Register(s); err != nil {
		log.Errorf("Failed to register skill %q: %v", s.Name(), err)
		return
	}

	if pp, ok := s.(skills.PatternProvider); ok {
		for _, rule := range pp.Patterns() {
			if err := a.Engine.RegisterRule(rule); err != nil {
				log.Warnf("Skill %q declared an invalid pattern: %v", s.Name(), err)
			}
		}
	}
	if kp, ok := s.(skills.KeywordProvider); ok {
		for keyword, intent := range kp.Keywords() {
			a.Engine.RegisterKeyword(keyword, intent)
		}
	}
}

// Reconfigure applies a reloaded config to the running assistant. Only the
// permission table and directives support live reload; everything else
// requires a restart.
func (a *Assistant) Reconfigure(cfg *config.Config) {
	table, err := buildPermissions(&cfg.Permissions)
	if err != nil {
		log.Errorf("Reload: invalid permission config, keeping previous table: %v", err)
	} else {
		a.Router.SetPermissions(table)
	}

	if err := a.steering.Reload(cfg.Directives); err != nil {
		log.Errorf("Reload: invalid directives, keeping previous set: %v", err)
	}
}

// Process runs one command through the pipeline.
func (a *Assistant) Process(ctx context.Context, role permissions.Role, text string) *router.Result {
	return a.Router.Process(ctx, role, text)
}

// Close releases the learning store and plugin interpreters.
func (a *Assistant) Close() {
	if a.luaEngine != nil {
		a.luaEngine.Shutdown()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warnf("Failed to close learning store: %v", err)
		}
	}
	a.Bus.Shutdown()
}

func builtinSkills(a *Assistant, speaker speech.Speaker) []skills.Skill {
	return []skills.Skill{
		builtin.NewDateTimeSkill(speaker, nil),
		builtin.NewSystemSkill(speaker, nil),
		builtin.NewAppSkill(speaker, nil),
		builtin.NewNetworkSkill(speaker, nil),
		builtin.NewVolumeSkill(speaker, nil),
		builtin.NewPersonalitySkill(speaker, nil),
		builtin.NewMetaSkill(speaker, a.Engine, a.Tracker, a.Learning),
	}
}

func buildPermissions(cfg *config.PermissionsConfig) (*permissions.Table, error) {
	required := permissions.DefaultRequirements()
	if len(cfg.Intents) > 0 {
		parsed, err := permissions.ParseRequirements(cfg.Intents)
		if err != nil {
			return nil, fmt.Errorf("assistant: invalid permission config: %w", err)
		}
		for intent, role := range parsed {
			required[intent] = role
		}
	}
	return permissions.NewTable(required, cfg.FailClosed), nil
}
