// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the assistant over a local HTTP interface. The API is
// a thin shell around the router pipeline: every request body runs through
// the same stages a spoken command does. It binds to localhost only; there
// is no remote authentication layer.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/assistant"
	"github.com/traylinx/majordomo/internal/permissions"
)

// roleHeader carries the caller's role. Absent or unknown values fall back
// to the standard role; the header can only select among configured roles,
// never invent privileges beyond them.
const roleHeader = "X-Majordomo-Role"

// CommandRequest represents a command submission.
type CommandRequest struct {
	Text string `json:"text" binding:"required"`
}

// Server hosts the local HTTP API.
type Server struct {
	assistant *assistant.Assistant
	engine    *gin.Engine
	srv       *http.Server
}

// NewServer creates the API server around a running assistant.
func NewServer(a *assistant.Assistant) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{assistant: a, engine: engine}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.health)

	v1 := s.engine.Group("/v1")
	v1.POST("/command", s.postCommand)
	v1.GET("/context", s.getContext)
	v1.DELETE("/context", s.clearContext)
	v1.POST("/corrections", s.postCorrection)
	v1.GET("/misses", s.getMisses)
	v1.GET("/stats", s.getStats)
	v1.GET("/skills", s.getSkills)
}

// Start runs the server until ctx is canceled.
func (s *Server) Start(ctx context.Context, host string, port int) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Infof("HTTP API listening on %s", s.srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler { return s.engine }

// health handles GET /healthz.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// postCommand handles POST /v1/command.
// It runs the command through the full pipeline and returns the turn result
// including everything that was spoken.
func (s *Server) postCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	result := s.assistant.Process(c.Request.Context(), roleFrom(c), req.Text)
	c.JSON(http.StatusOK, result)
}

// getContext handles GET /v1/context.
func (s *Server) getContext(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries := s.assistant.Tracker.Recent(n)
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// clearContext handles DELETE /v1/context.
func (s *Server) clearContext(c *gin.Context) {
	s.assistant.Tracker.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// postCorrection handles POST /v1/corrections.
// It binds the most recent uncorrected miss to the given intent.
func (s *Server) postCorrection(c *gin.Context) {
	if s.assistant.Learning == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "learning is disabled",
		})
		return
	}

	var req struct {
		Text   string `json:"text"`
		Intent string `json:"intent" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	applied, err := s.assistant.Learning.ApplyCorrection(c.Request.Context(), req.Text, req.Intent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !applied {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no uncorrected miss to bind",
		})
		return
	}

	generated, err := s.assistant.Learning.AutoGenerateAliases(c.Request.Context(), 0)
	if err != nil {
		log.Warnf("Alias generation after correction failed: %v", err)
	}
	c.JSON(http.StatusCreated, gin.H{
		"applied":           true,
		"aliases_generated": generated,
	})
}

// getMisses handles GET /v1/misses.
func (s *Server) getMisses(c *gin.Context) {
	if s.assistant.Learning == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "learning is disabled",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	misses, err := s.assistant.Learning.RecentMisses(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"misses": misses,
		"count":  len(misses),
	})
}

// getStats handles GET /v1/stats.
// It aggregates router stage counters, skill usage, and learning stats.
func (s *Server) getStats(c *gin.Context) {
	stats := gin.H{
		"stages":      s.assistant.Router.Stats(),
		"skill_usage": s.assistant.Registry.UsageStats(),
		"rule_count":  s.assistant.Engine.RuleCount(),
	}
	if s.assistant.Learning != nil {
		learned, err := s.assistant.Learning.Stats(c.Request.Context())
		if err != nil {
			log.Warnf("Failed to read learning stats: %v", err)
		} else {
			stats["learning"] = learned
		}
	}
	c.JSON(http.StatusOK, stats)
}

// getSkills handles GET /v1/skills.
func (s *Server) getSkills(c *gin.Context) {
	conflicts := s.assistant.Registry.Conflicts()
	c.JSON(http.StatusOK, gin.H{
		"skills":    s.assistant.Registry.SkillCount(),
		"intents":   s.assistant.Registry.IntentNames(),
		"conflicts": conflicts,
	})
}

func roleFrom(c *gin.Context) permissions.Role {
	name := c.GetHeader(roleHeader)
	if name == "" {
		return permissions.RoleStandard
	}
	role, err := permissions.ParseRole(name)
	if err != nil {
		log.Debugf("Unknown role %q in %s header, using standard", name, roleHeader)
		return permissions.RoleStandard
	}
	return role
}
