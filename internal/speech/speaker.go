// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package speech defines the speech output boundary. Actual TTS engines
// are external collaborators; the router only requires a Speaker.
package speech

import (
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Speaker delivers a spoken (or otherwise user-facing) response.
// Implementations must not block the pipeline for long; failures are not
// observable to the router.
type Speaker interface {
	Speak(text string)
}

// SpeakerFunc adapts a plain function to the Speaker interface.
type SpeakerFunc func(text string)

// Speak calls f.
func (f SpeakerFunc) Speak(text string) { f(text) }

// ConsoleSpeaker writes responses to an output stream and the log.
// It is the default Speaker when no TTS engine is attached.
type ConsoleSpeaker struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSpeaker creates a speaker writing to out.
func NewConsoleSpeaker(out io.Writer) *ConsoleSpeaker {
	return &ConsoleSpeaker{out: out}
}

// Speak writes the response prefixed for readability.
func (s *ConsoleSpeaker) Speak(text string) {
	log.Infof("speaking: %s", text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		fmt.Fprintf(s.out, ">> %s\n", text)
	}
}

// Recorder captures spoken responses for tests and the HTTP API.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Speak records the response.
func (r *Recorder) Speak(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
}

// Lines returns a copy of everything spoken so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Reset clears the recording.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
}
