// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package speech

import "sync"

// Capture wraps a Speaker and records everything spoken since the last
// Drain. The router drains it at turn boundaries so a turn's responses can
// be reported back to HTTP clients; turns are serialized upstream, so a
// drain always maps to exactly one turn.
type Capture struct {
	mu    sync.Mutex
	inner Speaker
	lines []string
}

// NewCapture wraps inner with response recording.
func NewCapture(inner Speaker) *Capture {
	return &Capture{inner: inner}
}

// Speak records the response and forwards it to the wrapped speaker.
func (c *Capture) Speak(text string) {
	c.mu.Lock()
	c.lines = append(c.lines, text)
	c.mu.Unlock()

	if c.inner != nil {
		c.inner.Speak(text)
	}
}

// Drain returns everything spoken since the previous drain and clears the
// buffer.
func (c *Capture) Drain() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := c.lines
	c.lines = nil
	return lines
}
