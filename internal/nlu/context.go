// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nlu

import (
	"sync"
	"time"
)

// DefaultMaxHistory bounds the context history when no capacity is given.
const DefaultMaxHistory = 20

// EntryKind tags the type of a context entry.
type EntryKind string

// EntryIntent marks entries recorded for successfully parsed intents.
const EntryIntent EntryKind = "intent"

// Entry is one record of a past turn. Entries are read-only after insertion
// and are only removed through capacity eviction, oldest first.
type Entry struct {
	Kind       EntryKind         `json:"kind"`
	Intent     string            `json:"intent"`
	Slots      map[string]string `json:"slots"`
	Confidence float64           `json:"confidence"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Tracker keeps a bounded, ordered history of past turns. The data structure
// carries its own lock so runtime recording from the router and suggestion
// reads from the engine do not race.
type Tracker struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// NewTracker creates a tracker holding at most capacity entries.
// Capacities <= 0 fall back to DefaultMaxHistory.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultMaxHistory
	}
	return &Tracker{capacity: capacity}
}

// Record appends an entry, evicting the oldest entry beyond capacity.
func (t *Tracker) Record(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, entry)
	if len(t.entries) > t.capacity {
		t.entries = t.entries[len(t.entries)-t.capacity:]
	}
}

// LastIntent returns the most recent entry tagged as an intent.
// The second return value is false when no such entry exists.
func (t *Tracker) LastIntent() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Kind == EntryIntent {
			return t.entries[i], true
		}
	}
	return Entry{}, false
}

// Recent returns up to n most recent entries, newest last.
func (t *Tracker) Recent(n int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || len(t.entries) == 0 {
		return nil
	}
	if n > len(t.entries) {
		n = len(t.entries)
	}
	out := make([]Entry, n)
	copy(out, t.entries[len(t.entries)-n:])
	return out
}

// RecentIntents returns the names of up to n most recent intent entries,
// newest first. It implements SuggestionSource.
func (t *Tracker) RecentIntents(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var names []string
	for i := len(t.entries) - 1; i >= 0 && len(names) < n; i-- {
		if t.entries[i].Kind == EntryIntent {
			names = append(names, t.entries[i].Intent)
		}
	}
	return names
}

// Len returns the number of stored entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Clear drops the whole history. Used by the NLU meta skill.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}
