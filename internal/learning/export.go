// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package learning

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const exportVersion = 1

// Export writes the learned data (misses, corrections, aliases) to a
// gzip-compressed JSON document and returns the final path. The format is
// internal to the learning engine; Import is its only consumer.
func (e *Engine) Export(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("majordomo-learned-%s.json.gz", time.Now().Format("20060102-150405"))
	}

	misses, err := e.store.Misses(ctx, 0)
	if err != nil {
		return "", err
	}
	aliases, err := e.store.Aliases(ctx)
	if err != nil {
		return "", err
	}

	doc := []byte(`{}`)
	doc, _ = sjson.SetBytes(doc, "version", exportVersion)
	doc, _ = sjson.SetBytes(doc, "exported_at", time.Now().Format(time.RFC3339))

	for i := len(misses) - 1; i >= 0; i-- {
		// Misses come newest first; export oldest first so import replays
		// them in their original order.
		doc, _ = sjson.SetBytes(doc, "misses.-1", misses[i])
	}
	for _, alias := range aliases {
		doc, _ = sjson.SetBytes(doc, "aliases.-1", alias)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("learning: failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("learning: failed to create export file: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(doc); err != nil {
		return "", fmt.Errorf("learning: failed to write export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("learning: failed to finalize export: %w", err)
	}

	log.Infof("Exported learned data to %s (%d misses, %d aliases)", path, len(misses), len(aliases))
	return path, nil
}

// Import merges a previously exported document into the store. Corrections
// are replayed as corrected misses; aliases are re-registered with the NLU
// engine unless already present. Import is idempotent for aliases.
func (e *Engine) Import(ctx context.Context, path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("learning: failed to open import file: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("learning: import file is not gzip data: %w", err)
	}
	defer zr.Close()

	doc, err := io.ReadAll(zr)
	if err != nil {
		return false, fmt.Errorf("learning: failed to read import file: %w", err)
	}

	if !gjson.ValidBytes(doc) {
		return false, fmt.Errorf("learning: import file is not valid JSON")
	}
	root := gjson.ParseBytes(doc)
	if v := root.Get("version").Int(); v != exportVersion {
		return false, fmt.Errorf("learning: unsupported export version %d", v)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	imported := 0
	for _, m := range root.Get("misses").Array() {
		text := m.Get("text").String()
		if text == "" {
			continue
		}
		id, err := e.store.InsertMiss(ctx, text)
		if err != nil {
			return imported > 0, err
		}
		if m.Get("corrected").Bool() {
			if intent := m.Get("corrected_intent").String(); intent != "" {
				if err := e.store.MarkCorrected(ctx, id, intent); err != nil {
					return imported > 0, err
				}
			}
		}
		imported++
	}

	for _, a := range root.Get("aliases").Array() {
		text, intent := a.Get("text").String(), a.Get("intent").String()
		if text == "" || intent == "" {
			continue
		}
		exists, err := e.store.HasAlias(ctx, text, intent)
		if err != nil {
			return imported > 0, err
		}
		if exists {
			continue
		}
		if err := e.registrar.RegisterRule(aliasRule(text, intent)); err != nil {
			log.Warnf("Failed to register imported alias %q: %v", text, err)
			continue
		}
		if err := e.store.InsertAlias(ctx, text, intent); err != nil {
			return imported > 0, err
		}
		imported++
	}

	log.Infof("Imported learned data from %s (%d records)", path, imported)
	return true, nil
}
