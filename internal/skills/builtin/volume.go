// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builtin

import (
	"fmt"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

// VolumeControl applies a volume level (0-100) or mute state to the host.
// The default implementation only logs.
type VolumeControl interface {
	SetLevel(level int) error
	SetMuted(muted bool) error
}

type loggingVolume struct{}

func (loggingVolume) SetLevel(level int) error {
	log.Infof("Volume change requested (no mixer attached): %d", level)
	return nil
}

func (loggingVolume) SetMuted(muted bool) error {
	log.Infof("Mute change requested (no mixer attached): %v", muted)
	return nil
}

// VolumeSkill owns audio volume intents. It tracks the last applied level
// so relative changes work without querying the host mixer.
type VolumeSkill struct {
	speaker speech.Speaker
	control VolumeControl

	mu    sync.Mutex
	level int
	muted bool
}

// NewVolumeSkill creates the skill with a starting level of 50.
// A nil control logs instead of executing.
func NewVolumeSkill(speaker speech.Speaker, control VolumeControl) *VolumeSkill {
	if control == nil {
		control = loggingVolume{}
	}
	return &VolumeSkill{speaker: speaker, control: control, level: 50}
}

func (s *VolumeSkill) Name() string { return "volume" }

func (s *VolumeSkill) Intents() []string {
	return []string{"set_volume", "volume_up", "volume_down", "mute", "unmute"}
}

func (s *VolumeSkill) Patterns() []nlu.Rule {
	return []nlu.Rule{
		{Pattern: `^(?:set )?volume(?: to)? (?P<level>\d{1,3})(?: percent)?$`, Intent: "set_volume"},
		{Pattern: `^(?:turn )?(?:the )?volume up$`, Intent: "volume_up"},
		{Pattern: `^(?:turn )?(?:the )?volume down$`, Intent: "volume_down"},
		{Pattern: `^louder$`, Intent: "volume_up"},
		{Pattern: `^quieter$`, Intent: "volume_down"},
		{Pattern: `^mute(?: the)?(?: sound| audio| volume)?$`, Intent: "mute"},
		{Pattern: `^unmute(?: the)?(?: sound| audio| volume)?$`, Intent: "unmute"},
	}
}

func (s *VolumeSkill) Handle(intent string, slots map[string]string) (bool, error) {
	switch intent {
	case "set_volume":
		level, err := strconv.Atoi(slots["level"])
		if err != nil || level < 0 || level > 100 {
			s.speaker.Speak("Volume must be between 0 and 100.")
			return true, nil
		}
		return s.apply(level)
	case "volume_up":
		s.mu.Lock()
		level := s.level + 10
		s.mu.Unlock()
		if level > 100 {
			level = 100
		}
		return s.apply(level)
	case "volume_down":
		s.mu.Lock()
		level := s.level - 10
		s.mu.Unlock()
		if level < 0 {
			level = 0
		}
		return s.apply(level)
	case "mute":
		return s.setMuted(true)
	case "unmute":
		return s.setMuted(false)
	}
	return false, nil
}

func (s *VolumeSkill) apply(level int) (bool, error) {
	if err := s.control.SetLevel(level); err != nil {
		s.speaker.Speak(fmt.Sprintf("I could not change the volume: %v", err))
		return true, nil
	}

	s.mu.Lock()
	s.level = level
	s.muted = false
	s.mu.Unlock()

	s.speaker.Speak(fmt.Sprintf("Volume set to %d percent.", level))
	return true, nil
}

func (s *VolumeSkill) setMuted(muted bool) (bool, error) {
	if err := s.control.SetMuted(muted); err != nil {
		s.speaker.Speak(fmt.Sprintf("I could not change the mute state: %v", err))
		return true, nil
	}

	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()

	if muted {
		s.speaker.Speak("Muted.")
	} else {
		s.speaker.Speak("Unmuted.")
	}
	return true, nil
}
