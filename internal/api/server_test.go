// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/majordomo/internal/assistant"
	"github.com/traylinx/majordomo/internal/config"
	"github.com/traylinx/majordomo/internal/speech"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Learning.DBPath = filepath.Join(t.TempDir(), "learning.db")

	a, err := assistant.New(context.Background(), cfg, &speech.Recorder{})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return NewServer(a)
}

func do(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostCommand_RunsPipeline(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/command", `{"text":"what time is it"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Intent string   `json:"intent"`
		Stage  string   `json:"stage"`
		Spoken []string `json:"spoken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "get_time", result.Intent)
	assert.Equal(t, "skill", result.Stage)
	assert.NotEmpty(t, result.Spoken)
}

func TestPostCommand_RoleHeaderGatesAdminIntents(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/command", `{"text":"shutdown"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Stage string `json:"stage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "denied", result.Stage, "default role is standard")

	w = do(t, s, http.MethodPost, "/v1/command", `{"text":"shutdown"}`,
		map[string]string{"X-Majordomo-Role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.NotEqual(t, "denied", result.Stage)
}

func TestPostCommand_InvalidBody(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/command", `{"no_text":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContext_RoundTrip(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/v1/command", `{"text":"what time is it"}`, nil)

	w := do(t, s, http.MethodGet, "/v1/context", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = do(t, s, http.MethodDelete, "/v1/context", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/v1/context", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Count)
}

func TestCorrections_NoMissReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/corrections", `{"intent":"get_time"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCorrections_BindsLatestMiss(t *testing.T) {
	s := newTestServer(t)

	// Produce a miss first.
	do(t, s, http.MethodPost, "/v1/command", `{"text":"xyzzy gibberish request"}`, nil)

	w := do(t, s, http.MethodPost, "/v1/corrections", `{"intent":"get_time"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodGet, "/v1/misses", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Misses []struct {
			Corrected       bool   `json:"corrected"`
			CorrectedIntent string `json:"corrected_intent"`
		} `json:"misses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Misses)
	assert.True(t, body.Misses[0].Corrected)
	assert.Equal(t, "get_time", body.Misses[0].CorrectedIntent)
}

func TestStats(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/v1/command", `{"text":"what time is it"}`, nil)

	w := do(t, s, http.MethodGet, "/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Stages    map[string]int64 `json:"stages"`
		RuleCount int              `json:"rule_count"`
		Learning  map[string]any   `json:"learning"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Stages["skill"])
	assert.Greater(t, body.RuleCount, 0)
	assert.NotNil(t, body.Learning)
}

func TestSkills(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/v1/skills", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Skills  int      `json:"skills"`
		Intents []string `json:"intents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Greater(t, body.Skills, 0)
	assert.Contains(t, body.Intents, "get_time")
}
