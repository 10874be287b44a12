// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package builtin contains the skills shipped with the assistant. Each skill
// declares the NLU rules for the intents it owns, so registering the skill is
// all that is needed to make its commands recognizable.
package builtin

import (
	"fmt"
	"time"

	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

// DateTimeSkill answers time and date queries.
type DateTimeSkill struct {
	speaker speech.Speaker
	now     func() time.Time
}

// NewDateTimeSkill creates the skill. now overrides the clock in tests; nil
// uses time.Now.
func NewDateTimeSkill(speaker speech.Speaker, now func() time.Time) *DateTimeSkill {
	if now == nil {
		now = time.Now
	}
	return &DateTimeSkill{speaker: speaker, now: now}
}

func (s *DateTimeSkill) Name() string { return "datetime" }

func (s *DateTimeSkill) Intents() []string {
	return []string{"get_time", "get_date"}
}

// Patterns declares the recognition rules for this skill.
func (s *DateTimeSkill) Patterns() []nlu.Rule {
	return []nlu.Rule{
		{Pattern: `^what(?:'s| is) the time\??$`, Intent: "get_time"},
		{Pattern: `^what time is it\??$`, Intent: "get_time"},
		{Pattern: `^tell me the time$`, Intent: "get_time"},
		{Pattern: `^what(?:'s| is) (?:the date|today(?:'s date)?)\??$`, Intent: "get_date"},
		{Pattern: `^what day is it\??$`, Intent: "get_date"},
	}
}

// Keywords declares low-confidence fallbacks.
func (s *DateTimeSkill) Keywords() map[string]string {
	return map[string]string{
		"time": "get_time",
		"date": "get_date",
	}
}

func (s *DateTimeSkill) Handle(intent string, slots map[string]string) (bool, error) {
	switch intent {
	case "get_time":
		s.speaker.Speak(fmt.Sprintf("It is %s.", s.now().Format("3:04 PM")))
		return true, nil
	case "get_date":
		s.speaker.Speak(fmt.Sprintf("Today is %s.", s.now().Format("Monday, January 2, 2006")))
		return true, nil
	}
	return false, nil
}
