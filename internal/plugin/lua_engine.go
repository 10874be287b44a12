// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package plugin provides LUA-based skill support. Users drop *.lua scripts
// into the plugin directory; each script declares a skill table with a name,
// the intents it owns, optional NLU patterns, and a handle function. Loaded
// scripts plug into the registry like any built-in skill.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

// Config controls the Lua skill loader.
type Config struct {
	// Enabled determines if the plugin engine is active.
	Enabled bool
	// PluginDir is the directory scanned for *.lua skill scripts.
	PluginDir string
}

// LuaEngine loads and hosts Lua skills.
type LuaEngine struct {
	enabled   bool
	pluginDir string
	speaker   speech.Speaker

	mu     sync.Mutex
	skills []*LuaSkill
}

// NewLuaEngine creates a Lua skill engine. Responses spoken from scripts go
// through speaker.
func NewLuaEngine(cfg Config, speaker speech.Speaker) *LuaEngine {
	return &LuaEngine{
		enabled:   cfg.Enabled,
		pluginDir: cfg.PluginDir,
		speaker:   speaker,
	}
}

// Load scans the plugin directory and compiles every *.lua script into a
// skill. A script that fails to load is logged and skipped; it never stops
// the rest from loading.
func (e *LuaEngine) Load() []*LuaSkill {
	if !e.enabled || e.pluginDir == "" {
		return nil
	}

	entries, err := os.ReadDir(e.pluginDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Failed to read plugin directory %s: %v", e.pluginDir, err)
		}
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.skills = nil
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		path := filepath.Join(e.pluginDir, entry.Name())
		skill, err := e.loadScript(path)
		if err != nil {
			log.Errorf("Failed to load Lua skill %s: %v", entry.Name(), err)
			continue
		}
		e.skills = append(e.skills, skill)
		log.Infof("Loaded Lua skill %q from %s (%d intents)", skill.name, entry.Name(), len(skill.intents))
	}
	return e.skills
}

// Skills returns the currently loaded skills.
func (e *LuaEngine) Skills() []*LuaSkill {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*LuaSkill, len(e.skills))
	copy(out, e.skills)
	return out
}

func (e *LuaEngine) loadScript(path string) (*LuaSkill, error) {
	L := e.newState()

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("plugin: script error: %w", err)
	}

	tbl, ok := L.GetGlobal("skill").(*lua.LTable)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("plugin: script does not define a 'skill' table")
	}

	name := lua.LVAsString(L.GetField(tbl, "name"))
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".lua")
	}

	var intents []string
	if lst, ok := L.GetField(tbl, "intents").(*lua.LTable); ok {
		lst.ForEach(func(_, v lua.LValue) {
			if s := lua.LVAsString(v); s != "" {
				intents = append(intents, s)
			}
		})
	}
	if len(intents) == 0 {
		L.Close()
		return nil, fmt.Errorf("plugin: skill %q declares no intents", name)
	}

	var rules []nlu.Rule
	if lst, ok := L.GetField(tbl, "patterns").(*lua.LTable); ok {
		lst.ForEach(func(_, v lua.LValue) {
			pt, ok := v.(*lua.LTable)
			if !ok {
				return
			}
			rules = append(rules, nlu.Rule{
				Pattern:    lua.LVAsString(L.GetField(pt, "pattern")),
				Intent:     lua.LVAsString(L.GetField(pt, "intent")),
				Confidence: float64(lua.LVAsNumber(L.GetField(pt, "confidence"))),
			})
		})
	}

	handler, ok := L.GetField(tbl, "handle").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("plugin: skill %q has no handle function", name)
	}

	return &LuaSkill{
		name:    name,
		intents: intents,
		rules:   rules,
		state:   L,
		handler: handler,
	}, nil
}

// newState builds a sandboxed Lua state. Only safe standard libraries are
// loaded; io, os process control, and file loading are unavailable.
func (e *LuaEngine) newState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Safe subset of the os library: date and time only.
	osTbl := L.NewTable()
	L.SetField(osTbl, "time", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(time.Now().Unix()))
		return 1
	}))
	L.SetGlobal("os", osTbl)

	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)

	L.SetGlobal("speak", L.NewFunction(func(L *lua.LState) int {
		if e.speaker != nil {
			e.speaker.Speak(L.CheckString(1))
		}
		return 0
	}))
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		log.Infof("[lua] %s", L.CheckString(1))
		return 0
	}))

	return L
}

// Shutdown closes all Lua states.
func (e *LuaEngine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.skills {
		s.close()
	}
	e.skills = nil
}

// LuaSkill is a skill backed by a Lua script. Each skill owns a dedicated
// interpreter state; a mutex serializes calls into it.
type LuaSkill struct {
	name    string
	intents []string
	rules   []nlu.Rule

	mu      sync.Mutex
	state   *lua.LState
	handler *lua.LFunction
}

// Name returns the skill name declared by the script.
func (s *LuaSkill) Name() string { return s.name }

// Intents returns the intents the script declared.
func (s *LuaSkill) Intents() []string {
	out := make([]string, len(s.intents))
	copy(out, s.intents)
	return out
}

// Patterns returns the NLU rules the script declared.
func (s *LuaSkill) Patterns() []nlu.Rule {
	out := make([]nlu.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Handle calls the script's handle function with the intent and a slots
// table. The script returns a boolean; anything else counts as unhandled.
func (s *LuaSkill) Handle(intent string, slots map[string]string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return false, fmt.Errorf("plugin: skill %q is closed", s.name)
	}

	slotTbl := s.state.NewTable()
	for k, v := range slots {
		s.state.SetField(slotTbl, k, lua.LString(v))
	}

	if err := s.state.CallByParam(lua.P{
		Fn:      s.handler,
		NRet:    1,
		Protect: true,
	}, lua.LString(intent), slotTbl); err != nil {
		return false, fmt.Errorf("plugin: skill %q handler failed: %w", s.name, err)
	}

	ret := s.state.Get(-1)
	s.state.Pop(1)
	return lua.LVAsBool(ret), nil
}

func (s *LuaSkill) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}
