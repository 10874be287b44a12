// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builtin

import (
	"fmt"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

// SystemAction is invoked when a power-management intent fires. The default
// implementation only logs; wiring real OS calls is the embedder's job.
type SystemAction func(action string) error

// SystemSkill owns power management and host status intents. The intents
// are permission-gated upstream; by the time Handle runs the caller was
// already authorized.
type SystemSkill struct {
	speaker speech.Speaker
	action  SystemAction
	started time.Time
}

// NewSystemSkill creates the skill. A nil action logs instead of executing.
func NewSystemSkill(speaker speech.Speaker, action SystemAction) *SystemSkill {
	if action == nil {
		action = func(a string) error {
			log.Infof("System action requested (no executor attached): %s", a)
			return nil
		}
	}
	return &SystemSkill{speaker: speaker, action: action, started: time.Now()}
}

func (s *SystemSkill) Name() string { return "system" }

func (s *SystemSkill) Intents() []string {
	return []string{"shutdown_computer", "restart_computer", "lock_computer", "sleep_computer", "system_status"}
}

func (s *SystemSkill) Patterns() []nlu.Rule {
	return []nlu.Rule{
		{Pattern: `^(?:shut ?down|power off|turn off)(?: the)?(?: computer| pc| system)?$`, Intent: "shutdown_computer"},
		{Pattern: `^(?:restart|reboot)(?: the)?(?: computer| pc| system)?$`, Intent: "restart_computer"},
		{Pattern: `^lock(?: the)?(?: computer| pc| screen)?$`, Intent: "lock_computer"},
		{Pattern: `^(?:sleep|suspend)(?: the)?(?: computer| pc| system)?$`, Intent: "sleep_computer"},
		{Pattern: `^go to sleep$`, Intent: "sleep_computer"},
		{Pattern: `^(?:system|host) status$`, Intent: "system_status"},
		{Pattern: `^how(?:'s| is) the system(?: doing)?\??$`, Intent: "system_status"},
	}
}

func (s *SystemSkill) Keywords() map[string]string {
	return map[string]string{
		"shutdown": "shutdown_computer",
		"reboot":   "restart_computer",
	}
}

func (s *SystemSkill) Handle(intent string, slots map[string]string) (bool, error) {
	switch intent {
	case "shutdown_computer":
		return s.run("shutdown", "Shutting down the computer.")
	case "restart_computer":
		return s.run("restart", "Restarting the computer.")
	case "lock_computer":
		return s.run("lock", "Locking the computer.")
	case "sleep_computer":
		return s.run("sleep", "Putting the computer to sleep.")
	case "system_status":
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		s.speaker.Speak(fmt.Sprintf(
			"Running on %s/%s with %d goroutines, %.1f MB in use, up %s.",
			runtime.GOOS, runtime.GOARCH, runtime.NumGoroutine(),
			float64(mem.Alloc)/(1<<20), time.Since(s.started).Round(time.Second)))
		return true, nil
	}
	return false, nil
}

func (s *SystemSkill) run(action, confirmation string) (bool, error) {
	if err := s.action(action); err != nil {
		s.speaker.Speak(fmt.Sprintf("I could not %s the computer: %v", action, err))
		return true, nil
	}
	s.speaker.Speak(confirmation)
	return true, nil
}
