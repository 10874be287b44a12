// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package directives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine([]Directive{{Name: "bad", Action: "teleport"}})
	assert.Error(t, err, "unknown actions must be rejected")

	_, err = NewEngine([]Directive{{Name: "bad", Action: ActionRemap}})
	assert.Error(t, err, "remap without target must be rejected")

	_, err = NewEngine([]Directive{{Name: "bad", Action: ActionRespond}})
	assert.Error(t, err, "respond without response must be rejected")

	_, err = NewEngine([]Directive{{Action: ActionBlock}})
	assert.Error(t, err, "unnamed directives must be rejected")
}

func TestApply_PriorityOrder(t *testing.T) {
	e, err := NewEngine([]Directive{
		{Name: "low", Condition: "true", Priority: 1, Action: ActionRespond, Response: "low"},
		{Name: "high", Condition: "true", Priority: 10, Action: ActionRespond, Response: "high"},
	})
	require.NoError(t, err)

	outcome := e.Apply(&TurnContext{Intent: "anything"})
	require.NotNil(t, outcome)
	assert.Equal(t, "high", outcome.Response)
}

func TestApply_ConditionOverTurnContext(t *testing.T) {
	e, err := NewEngine([]Directive{
		{
			Name:      "night-shutdown-guard",
			Condition: `Intent == "shutdown_computer" && Hour >= 22`,
			Action:    ActionBlock,
		},
	})
	require.NoError(t, err)

	assert.Nil(t, e.Apply(&TurnContext{Intent: "shutdown_computer", Hour: 10}))

	outcome := e.Apply(&TurnContext{Intent: "shutdown_computer", Hour: 23})
	require.NotNil(t, outcome)
	assert.Equal(t, ActionBlock, outcome.Action)
}

func TestApply_Remap(t *testing.T) {
	e, err := NewEngine([]Directive{
		{
			Name:      "alias-status",
			Condition: `Intent == "system_status" && Confidence < 0.9`,
			Action:    ActionRemap,
			Target:    "get_time",
		},
	})
	require.NoError(t, err)

	outcome := e.Apply(&TurnContext{Intent: "system_status", Confidence: 0.7})
	require.NotNil(t, outcome)
	assert.Equal(t, ActionRemap, outcome.Action)
	assert.Equal(t, "get_time", outcome.Intent)
}

func TestApply_BadConditionSkipped(t *testing.T) {
	e, err := NewEngine([]Directive{
		{Name: "broken", Condition: `NoSuchField == 1`, Priority: 10, Action: ActionBlock},
		{Name: "works", Condition: "true", Priority: 1, Action: ActionRespond, Response: "ok"},
	})
	require.NoError(t, err)

	// The broken condition is skipped for the turn, never fatal.
	outcome := e.Apply(&TurnContext{Intent: "x"})
	require.NotNil(t, outcome)
	assert.Equal(t, "works", outcome.Directive.Name)
}

func TestApply_EmptyConditionAlwaysMatches(t *testing.T) {
	e, err := NewEngine([]Directive{
		{Name: "catch-all", Action: ActionRespond, Response: "always"},
	})
	require.NoError(t, err)

	outcome := e.Apply(&TurnContext{Intent: "whatever"})
	require.NotNil(t, outcome)
	assert.Equal(t, "always", outcome.Response)
}

func TestReload_InvalidKeepsPrevious(t *testing.T) {
	e, err := NewEngine([]Directive{
		{Name: "keep", Condition: "true", Action: ActionRespond, Response: "kept"},
	})
	require.NoError(t, err)

	assert.Error(t, e.Reload([]Directive{{Name: "bad", Action: "nope"}}))
	assert.Equal(t, 1, e.Count())

	outcome := e.Apply(&TurnContext{})
	require.NotNil(t, outcome)
	assert.Equal(t, "kept", outcome.Response)
}
