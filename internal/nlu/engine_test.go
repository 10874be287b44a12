// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRule_InvalidPattern(t *testing.T) {
	e := NewEngine(3)
	err := e.RegisterRule(Rule{Pattern: `(`, Intent: "broken"})
	assert.Error(t, err, "malformed patterns must be rejected at registration time")
	assert.Equal(t, 0, e.RuleCount())
}

func TestRegisterRule_MissingIntent(t *testing.T) {
	e := NewEngine(3)
	err := e.RegisterRule(Rule{Pattern: `^hello$`})
	assert.Error(t, err)
}

func TestParse_FirstMatchWins(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^open (?P<app>.+)$`, Intent: "open_application"}))
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^open chrome$`, Intent: "open_browser"}))

	// Both rules match, but the earlier registration wins.
	intent := e.Parse("open chrome")
	require.NotNil(t, intent)
	assert.Equal(t, "open_application", intent.Name)
	assert.Equal(t, "chrome", intent.Slots["app"])
}

func TestParse_OrderFollowsRegistration(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^open chrome$`, Intent: "open_browser"}))
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^open (?P<app>.+)$`, Intent: "open_application"}))

	intent := e.Parse("open chrome")
	require.NotNil(t, intent)
	assert.Equal(t, "open_browser", intent.Name)
}

func TestParse_NormalizesInput(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^what time is it$`, Intent: "get_time"}))

	intent := e.Parse("  What Time Is It  ")
	require.NotNil(t, intent)
	assert.Equal(t, "get_time", intent.Name)
	assert.Equal(t, 1.0, intent.Confidence)
}

func TestParse_EmptySlotsPresent(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{
		Pattern: `^remind me(?: at (?P<time>\d+))? to (?P<task>.+)$`,
		Intent:  "set_reminder",
	}))

	intent := e.Parse("remind me to feed the cat")
	require.NotNil(t, intent)
	assert.Equal(t, "feed the cat", intent.Slots["task"])

	// Optional group did not participate; slot exists with empty value.
	v, ok := intent.Slots["time"]
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParseWithConfidence_KeywordFallback(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^what time is it$`, Intent: "get_time"}))
	e.RegisterKeyword("weather", "get_weather")

	intent, suggestions := e.ParseWithConfidence("how is the weather looking")
	require.NotNil(t, intent)
	assert.Nil(t, suggestions)
	assert.Equal(t, "get_weather", intent.Name)
	assert.Equal(t, 0.7, intent.Confidence)
	assert.Equal(t, "weather", intent.FuzzyMatch, "keyword hits must disclose the fuzzy match")
}

func TestParseWithConfidence_NoMatchReturnsSuggestions(t *testing.T) {
	e := NewEngine(3)
	tracker := NewTracker(5)
	e.SetSuggestionSource(tracker)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^open (?P<app>.+)$`, Intent: "open_application"}))
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^close (?P<app>.+)$`, Intent: "close_application"}))

	tracker.Record(Entry{Kind: EntryIntent, Intent: "open_application"})

	intent, suggestions := e.ParseWithConfidence("zzzzz open-ish gibberish")
	assert.Nil(t, intent)
	assert.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 3)
}

func TestParseWithConfidence_SuggestionsDeterministic(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^aaa$`, Intent: "intent_a"}))
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^bbb$`, Intent: "intent_b"}))

	_, first := e.ParseWithConfidence("unmatched input")
	for i := 0; i < 10; i++ {
		_, again := e.ParseWithConfidence("unmatched input")
		assert.Equal(t, first, again, "suggestion ranking must be deterministic for a fixed history")
	}
}

func TestParseWithConfidence_EmptyInput(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `.*`, Intent: "catch_all"}))

	intent, suggestions := e.ParseWithConfidence("   ")
	assert.Nil(t, intent)
	assert.Nil(t, suggestions)
}

func TestIntentNames_DistinctInOrder(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRules([]Rule{
		{Pattern: `^a$`, Intent: "one"},
		{Pattern: `^b$`, Intent: "two"},
		{Pattern: `^c$`, Intent: "one"},
	}))
	e.RegisterKeyword("x", "three")

	assert.Equal(t, []string{"one", "two", "three"}, e.IntentNames())
}

func TestRegisterRule_DefaultConfidence(t *testing.T) {
	e := NewEngine(3)
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^ping$`, Intent: "ping"}))
	require.NoError(t, e.RegisterRule(Rule{Pattern: `^pong$`, Intent: "pong", Confidence: 0.5}))

	assert.Equal(t, 1.0, e.Parse("ping").Confidence)
	assert.Equal(t, 0.5, e.Parse("pong").Confidence)
}
