// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builtin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

// AppLauncher opens or closes an application by name. The default
// implementation only logs the request.
type AppLauncher interface {
	Open(app string) error
	Close(app string) error
}

type loggingLauncher struct{}

func (loggingLauncher) Open(app string) error {
	log.Infof("App launch requested (no launcher attached): %s", app)
	return nil
}

func (loggingLauncher) Close(app string) error {
	log.Infof("App close requested (no launcher attached): %s", app)
	return nil
}

// AppSkill handles application launching and closing. It keeps per-app
// usage counts and resolves user-defined aliases before launching.
type AppSkill struct {
	speaker  speech.Speaker
	launcher AppLauncher

	mu      sync.Mutex
	aliases map[string]string
	usage   map[string]int
}

// NewAppSkill creates the skill. A nil launcher logs instead of executing.
func NewAppSkill(speaker speech.Speaker, launcher AppLauncher) *AppSkill {
	if launcher == nil {
		launcher = loggingLauncher{}
	}
	return &AppSkill{
		speaker:  speaker,
		launcher: launcher,
		aliases:  make(map[string]string),
		usage:    make(map[string]int),
	}
}

func (s *AppSkill) Name() string { return "apps" }

func (s *AppSkill) Intents() []string {
	return []string{"open_application", "close_application", "add_app_alias", "list_frequent_apps"}
}

func (s *AppSkill) Patterns() []nlu.Rule {
	return []nlu.Rule{
		{Pattern: `^(?:open|launch|start) (?P<app>.+)$`, Intent: "open_application"},
		{Pattern: `^(?:close|quit|kill) (?P<app>.+)$`, Intent: "close_application"},
		{Pattern: `^call (?P<alias>.+?) (?P<app>[^ ]+)$`, Intent: "add_app_alias"},
		{Pattern: `^(?:list )?(?:my )?frequent apps$`, Intent: "list_frequent_apps"},
	}
}

func (s *AppSkill) Handle(intent string, slots map[string]string) (bool, error) {
	switch intent {
	case "open_application":
		return s.open(slots["app"])
	case "close_application":
		return s.close(slots["app"])
	case "add_app_alias":
		return s.addAlias(slots["alias"], slots["app"])
	case "list_frequent_apps":
		return s.listFrequent()
	}
	return false, nil
}

// HandleFuzzy claims launch-flavored intents other skills left unhandled,
// e.g. a learned alias that resolved to "open_browser".
func (s *AppSkill) HandleFuzzy(intent string, slots map[string]string) (bool, error) {
	if !strings.HasPrefix(intent, "open_") && !strings.HasPrefix(intent, "launch_") {
		return false, nil
	}
	app := slots["app"]
	if app == "" {
		app = strings.TrimPrefix(strings.TrimPrefix(intent, "open_"), "launch_")
		app = strings.ReplaceAll(app, "_", " ")
	}
	if app == "" || app == "application" {
		return false, nil
	}
	return s.open(app)
}

func (s *AppSkill) open(app string) (bool, error) {
	if app == "" {
		s.speaker.Speak("Which application should I open?")
		return true, nil
	}
	app = s.resolve(app)
	if err := s.launcher.Open(app); err != nil {
		s.speaker.Speak(fmt.Sprintf("I could not open %s: %v", app, err))
		return true, nil
	}

	s.mu.Lock()
	s.usage[app]++
	s.mu.Unlock()

	s.speaker.Speak(fmt.Sprintf("Opening %s.", app))
	return true, nil
}

func (s *AppSkill) close(app string) (bool, error) {
	if app == "" {
		s.speaker.Speak("Which application should I close?")
		return true, nil
	}
	app = s.resolve(app)
	if err := s.launcher.Close(app); err != nil {
		s.speaker.Speak(fmt.Sprintf("I could not close %s: %v", app, err))
		return true, nil
	}
	s.speaker.Speak(fmt.Sprintf("Closing %s.", app))
	return true, nil
}

func (s *AppSkill) addAlias(alias, app string) (bool, error) {
	if alias == "" || app == "" {
		s.speaker.Speak("I need both an alias and an application name.")
		return true, nil
	}
	s.mu.Lock()
	s.aliases[strings.ToLower(alias)] = app
	s.mu.Unlock()
	s.speaker.Speak(fmt.Sprintf("Understood. %q now means %s.", alias, app))
	return true, nil
}

func (s *AppSkill) listFrequent() (bool, error) {
	s.mu.Lock()
	type pair struct {
		app   string
		count int
	}
	pairs := make([]pair, 0, len(s.usage))
	for app, n := range s.usage {
		pairs = append(pairs, pair{app, n})
	}
	s.mu.Unlock()

	if len(pairs) == 0 {
		s.speaker.Speak("You have not opened any applications yet.")
		return true, nil
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].app < pairs[j].app
	})
	if len(pairs) > 5 {
		pairs = pairs[:5]
	}

	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = fmt.Sprintf("%s (%d)", p.app, p.count)
	}
	s.speaker.Speak("Your most used applications: " + strings.Join(names, ", ") + ".")
	return true, nil
}

func (s *AppSkill) resolve(app string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target, ok := s.aliases[strings.ToLower(app)]; ok {
		return target
	}
	return app
}
