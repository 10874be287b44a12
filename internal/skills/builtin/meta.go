// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package builtin

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/learning"
	"github.com/traylinx/majordomo/internal/nlu"
	"github.com/traylinx/majordomo/internal/speech"
)

// MetaSkill exposes the assistant's own context and learning machinery as
// voice commands: corrections ("i meant ..."), context inspection, learning
// stats, and export/import of learned data.
type MetaSkill struct {
	speaker  speech.Speaker
	engine   *nlu.Engine
	tracker  *nlu.Tracker
	learning *learning.Engine
}

// NewMetaSkill creates the skill. The learning engine may be nil, in which
// case learning intents answer with an explanation instead of failing.
func NewMetaSkill(speaker speech.Speaker, engine *nlu.Engine, tracker *nlu.Tracker, learn *learning.Engine) *MetaSkill {
	return &MetaSkill{speaker: speaker, engine: engine, tracker: tracker, learning: learn}
}

func (s *MetaSkill) Name() string { return "meta" }

func (s *MetaSkill) Intents() []string {
	return []string{
		"learning_correction",
		"get_context",
		"clear_context",
		"get_learning_stats",
		"export_learned_data",
		"import_learned_data",
		"generate_aliases",
	}
}

func (s *MetaSkill) Patterns() []nlu.Rule {
	return []nlu.Rule{
		{Pattern: `^(?:no,? )?i meant (?P<correction>.+)$`, Intent: "learning_correction"},
		{Pattern: `^that(?:'s| is) wrong,? i meant (?P<correction>.+)$`, Intent: "learning_correction"},
		{Pattern: `^th(?:at|is) means (?P<correction>.+)$`, Intent: "learning_correction"},
		{Pattern: `^correct: ?(?P<correction>.+)$`, Intent: "learning_correction"},
		{Pattern: `^(?:show|what(?:'s| is)) (?:my |the )?context\??$`, Intent: "get_context"},
		{Pattern: `^clear (?:the |my )?context$`, Intent: "clear_context"},
		{Pattern: `^(?:show )?learning stats$`, Intent: "get_learning_stats"},
		{Pattern: `^export learned data$`, Intent: "export_learned_data"},
		{Pattern: `^import learned data from (?P<path>.+)$`, Intent: "import_learned_data"},
		{Pattern: `^generate aliases$`, Intent: "generate_aliases"},
	}
}

func (s *MetaSkill) Handle(intent string, slots map[string]string) (bool, error) {
	ctx := context.Background()
	switch intent {
	case "learning_correction":
		return s.correct(ctx, slots["correction"])
	case "get_context":
		return s.showContext()
	case "clear_context":
		s.tracker.Clear()
		s.speaker.Speak("Context cleared.")
		return true, nil
	case "get_learning_stats":
		return s.stats(ctx)
	case "export_learned_data":
		return s.export(ctx)
	case "import_learned_data":
		return s.importFrom(ctx, slots["path"])
	case "generate_aliases":
		return s.generateAliases(ctx)
	}
	return false, nil
}

// correct re-parses the corrected phrase to find the intended intent, binds
// it to the most recent miss, and immediately tries to compile new aliases.
func (s *MetaSkill) correct(ctx context.Context, phrase string) (bool, error) {
	if s.learning == nil {
		s.speaker.Speak("Learning is disabled, so I cannot record corrections.")
		return true, nil
	}
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		s.speaker.Speak("What did you mean?")
		return true, nil
	}

	parsed := s.engine.Parse(phrase)
	if parsed == nil {
		s.speaker.Speak(fmt.Sprintf("I do not recognize %q either, I am afraid.", phrase))
		return true, nil
	}

	applied, err := s.learning.ApplyCorrection(ctx, phrase, parsed.Name)
	if err != nil {
		log.Errorf("Failed to apply correction: %v", err)
		s.speaker.Speak("Something went wrong while recording the correction.")
		return true, nil
	}
	if !applied {
		s.speaker.Speak("There is nothing recent to correct.")
		return true, nil
	}

	if n, err := s.learning.AutoGenerateAliases(ctx, 0); err != nil {
		log.Warnf("Alias generation after correction failed: %v", err)
	} else if n > 0 {
		s.speaker.Speak(fmt.Sprintf("Understood, that was %s. I have learned %d new phrasing(s).", parsed.Name, n))
		return true, nil
	}
	s.speaker.Speak(fmt.Sprintf("Understood, that was %s. I will remember.", parsed.Name))
	return true, nil
}

func (s *MetaSkill) showContext() (bool, error) {
	entries := s.tracker.Recent(5)
	if len(entries) == 0 {
		s.speaker.Speak("The context is empty.")
		return true, nil
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Intent != "" {
			parts = append(parts, e.Intent)
		}
	}
	s.speaker.Speak("Recent intents: " + strings.Join(parts, ", ") + ".")
	return true, nil
}

func (s *MetaSkill) stats(ctx context.Context) (bool, error) {
	if s.learning == nil {
		s.speaker.Speak("Learning is disabled.")
		return true, nil
	}
	stats, err := s.learning.Stats(ctx)
	if err != nil {
		log.Errorf("Failed to read learning stats: %v", err)
		s.speaker.Speak("I could not read the learning statistics.")
		return true, nil
	}
	s.speaker.Speak(fmt.Sprintf(
		"%v misses recorded, %v corrected, %v aliases learned.",
		stats["total_misses"], stats["corrected_misses"], stats["generated_aliases"]))
	return true, nil
}

func (s *MetaSkill) export(ctx context.Context) (bool, error) {
	if s.learning == nil {
		s.speaker.Speak("Learning is disabled, there is nothing to export.")
		return true, nil
	}
	path, err := s.learning.Export(ctx, "")
	if err != nil {
		log.Errorf("Export failed: %v", err)
		s.speaker.Speak("The export failed.")
		return true, nil
	}
	s.speaker.Speak("Learned data exported to " + path + ".")
	return true, nil
}

func (s *MetaSkill) importFrom(ctx context.Context, path string) (bool, error) {
	if s.learning == nil {
		s.speaker.Speak("Learning is disabled, I cannot import.")
		return true, nil
	}
	if path == "" {
		s.speaker.Speak("Which file should I import?")
		return true, nil
	}
	if _, err := s.learning.Import(ctx, path); err != nil {
		log.Errorf("Import failed: %v", err)
		s.speaker.Speak("The import failed.")
		return true, nil
	}
	s.speaker.Speak("Learned data imported.")
	return true, nil
}

func (s *MetaSkill) generateAliases(ctx context.Context) (bool, error) {
	if s.learning == nil {
		s.speaker.Speak("Learning is disabled.")
		return true, nil
	}
	n, err := s.learning.AutoGenerateAliases(ctx, 0)
	if err != nil {
		log.Errorf("Alias generation failed: %v", err)
		s.speaker.Speak("Alias generation failed.")
		return true, nil
	}
	s.speaker.Speak(fmt.Sprintf("Generated %d new alias rule(s).", n))
	return true, nil
}
