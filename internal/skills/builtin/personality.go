// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builtin

import (
	"math/rand"

	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

var greetings = []string{
	"Good day. How may I assist?",
	"At your service.",
	"Hello. What can I do for you?",
}

var jokes = []string{
	"I would tell you a UDP joke, but you might not get it.",
	"There are only two hard things in computer science: cache invalidation, naming things, and off-by-one errors.",
	"I asked the DNS server for a joke. It said it would get back to me in 300 seconds.",
}

// PersonalitySkill handles small talk. Responses rotate through a fixed set.
type PersonalitySkill struct {
	speaker speech.Speaker
	pick    func(n int) int
}

// NewPersonalitySkill creates the skill. pick overrides response selection
// in tests; nil uses rand.Intn.
func NewPersonalitySkill(speaker speech.Speaker, pick func(n int) int) *PersonalitySkill {
	if pick == nil {
		pick = rand.Intn
	}
	return &PersonalitySkill{speaker: speaker, pick: pick}
}

func (s *PersonalitySkill) Name() string { return "personality" }

func (s *PersonalitySkill) Intents() []string {
	return []string{"greeting", "thanks", "who_are_you", "how_are_you", "tell_joke"}
}

func (s *PersonalitySkill) Patterns() []nlu.Rule {
	return []nlu.Rule{
		{Pattern: `^(?:hello|hi|hey|good (?:morning|afternoon|evening))[.!]?$`, Intent: "greeting"},
		{Pattern: `^(?:thanks|thank you)[.!]?$`, Intent: "thanks"},
		{Pattern: `^who are you\??$`, Intent: "who_are_you"},
		{Pattern: `^how are you(?: doing)?\??$`, Intent: "how_are_you"},
		{Pattern: `^tell me a joke$`, Intent: "tell_joke"},
	}
}

func (s *PersonalitySkill) Handle(intent string, slots map[string]string) (bool, error) {
	switch intent {
	case "greeting":
		s.speaker.Speak(greetings[s.pick(len(greetings))])
	case "thanks":
		s.speaker.Speak("You are most welcome.")
	case "who_are_you":
		s.speaker.Speak("I am Majordomo, your local assistant. Everything I do stays on this machine.")
	case "how_are_you":
		s.speaker.Speak("All systems nominal, thank you for asking.")
	case "tell_joke":
		s.speaker.Speak(jokes[s.pick(len(jokes))])
	default:
		return false, nil
	}
	return true, nil
}
