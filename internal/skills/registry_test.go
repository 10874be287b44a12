// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package skills

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSkill is a minimal configurable skill for registry tests.
type fakeSkill struct {
	name    string
	intents []string
	handle  func(intent string, slots map[string]string) (bool, error)
	fuzzy   func(intent string, slots map[string]string) (bool, error)
}

func (f *fakeSkill) Name() string      { return f.name }
func (f *fakeSkill) Intents() []string { return f.intents }

func (f *fakeSkill) Handle(intent string, slots map[string]string) (bool, error) {
	if f.handle == nil {
		return true, nil
	}
	return f.handle(intent, slots)
}

type fuzzySkill struct {
	fakeSkill
}

func (f *fuzzySkill) HandleFuzzy(intent string, slots map[string]string) (bool, error) {
	if f.fuzzy == nil {
		return false, nil
	}
	return f.fuzzy(intent, slots)
}

func TestRegister_RejectsNilAndUnnamed(t *testing.T) {
	r := NewRegistry(nil)
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&fakeSkill{name: ""}))
}

func TestRegister_FirstRegisteredOwnsConflictedIntent(t *testing.T) {
	r := NewRegistry(nil)

	var handledBy string
	first := &fakeSkill{name: "first", intents: []string{"get_weather"},
		handle: func(string, map[string]string) (bool, error) { handledBy = "first"; return true, nil }}
	second := &fakeSkill{name: "second", intents: []string{"get_weather", "get_forecast"},
		handle: func(string, map[string]string) (bool, error) { handledBy = "second"; return true, nil }}

	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(second), "conflicts must not fail registration")

	// Conflicted intent dispatches to the first-registered owner.
	assert.True(t, r.Dispatch("get_weather", nil))
	assert.Equal(t, "first", handledBy)

	// The rejected skill keeps its other intents.
	assert.True(t, r.Dispatch("get_forecast", nil))
	assert.Equal(t, "second", handledBy)

	conflicts := r.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, Conflict{Intent: "get_weather", Owner: "first", Rejected: "second"}, conflicts[0])
}

func TestRegister_ConflictDeterministicAcrossRepeats(t *testing.T) {
	for i := 0; i < 20; i++ {
		r := NewRegistry(nil)
		require.NoError(t, r.Register(&fakeSkill{name: "a", intents: []string{"x"}}))
		require.NoError(t, r.Register(&fakeSkill{name: "b", intents: []string{"x"}}))

		owner, ok := r.Owner("x")
		require.True(t, ok)
		assert.Equal(t, "a", owner.Name())
	}
}

func TestDispatch_UnknownIntent(t *testing.T) {
	r := NewRegistry(nil)
	assert.False(t, r.Dispatch("nobody_owns_this", nil))
}

func TestDispatch_SkillErrorMeansUnhandled(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fakeSkill{name: "flaky", intents: []string{"x"},
		handle: func(string, map[string]string) (bool, error) { return false, errors.New("boom") }}))

	assert.False(t, r.Dispatch("x", nil))
	assert.Empty(t, r.UsageStats(), "failed dispatch must not count as usage")
}

func TestDispatch_RecoversFromPanic(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fakeSkill{name: "crasher", intents: []string{"x"},
		handle: func(string, map[string]string) (bool, error) { panic("skill bug") }}))

	assert.NotPanics(t, func() {
		assert.False(t, r.Dispatch("x", nil))
	})
}

func TestDispatch_CountsUsage(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fakeSkill{name: "ok", intents: []string{"x"}}))

	r.Dispatch("x", nil)
	r.Dispatch("x", nil)
	assert.Equal(t, int64(2), r.UsageStats()["x"])
}

func TestFuzzyDispatch_RegistrationOrderFirstClaimWins(t *testing.T) {
	r := NewRegistry(nil)

	var claimed []string
	mk := func(name string, claim bool) *fuzzySkill {
		return &fuzzySkill{fakeSkill{name: name,
			fuzzy: func(string, map[string]string) (bool, error) {
				claimed = append(claimed, name)
				return claim, nil
			}}}
	}
	require.NoError(t, r.Register(mk("declines", false)))
	require.NoError(t, r.Register(mk("claims", true)))
	require.NoError(t, r.Register(mk("never_reached", true)))

	assert.True(t, r.FuzzyDispatch("mystery_intent", nil))
	assert.Equal(t, []string{"declines", "claims"}, claimed)
}

func TestFuzzyDispatch_PanicIsolated(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(&fuzzySkill{fakeSkill{name: "crasher",
		fuzzy: func(string, map[string]string) (bool, error) { panic("fuzzy bug") }}}))
	require.NoError(t, r.Register(&fuzzySkill{fakeSkill{name: "claims",
		fuzzy: func(string, map[string]string) (bool, error) { return true, nil }}}))

	assert.NotPanics(t, func() {
		assert.True(t, r.FuzzyDispatch("x", nil))
	})
}
