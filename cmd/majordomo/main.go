// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the majordomo assistant.
// The assistant reads commands from stdin (or the local HTTP API), parses
// them into intents, and dispatches them to registered skills. All
// processing happens on the local machine.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/majordomo/internal/api"
	"github.com/traylinx/majordomo/internal/assistant"
	"github.com/traylinx/majordomo/internal/buildinfo"
	"github.com/traylinx/majordomo/internal/config"
	"github.com/traylinx/majordomo/internal/logging"
	"github.com/traylinx/majordomo/internal/permissions"
	"github.com/traylinx/majordomo/internal/speech"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	var (
		configPath  string
		roleName    string
		oneShot     string
		noAPI       bool
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	flag.StringVar(&roleName, "role", "owner", "role for console commands (standard, admin, owner, admin_owner)")
	flag.StringVar(&oneShot, "command", "", "process a single command and exit")
	flag.BoolVar(&noAPI, "no-api", false, "disable the local HTTP API")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("majordomo %s (%s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.SetDebug(cfg.Debug)
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogsDir); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	role, err := permissions.ParseRole(roleName)
	if err != nil {
		log.Fatalf("Invalid role %q: %v", roleName, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := assistant.New(ctx, cfg, speech.NewConsoleSpeaker(os.Stdout))
	if err != nil {
		log.Fatalf("Failed to start assistant: %v", err)
	}
	defer a.Close()
	log.Infof("majordomo %s ready (%d skills, %d rules)",
		buildinfo.Version, a.Registry.SkillCount(), a.Engine.RuleCount())

	if oneShot != "" {
		a.Process(ctx, role, oneShot)
		return
	}

	go func() {
		if err := config.Watch(ctx, configPath, a.Reconfigure); err != nil && ctx.Err() == nil {
			log.Warnf("Config watcher stopped: %v", err)
		}
	}()

	if !noAPI && cfg.Port > 0 {
		server := api.NewServer(a)
		go func() {
			if err := server.Start(ctx, cfg.Host, cfg.Port); err != nil && ctx.Err() == nil {
				log.Errorf("HTTP API failed: %v", err)
			}
		}()
	}

	runConsole(ctx, a, role)
}

// runConsole reads commands line by line until EOF or shutdown.
func runConsole(ctx context.Context, a *assistant.Assistant, role permissions.Role) {
	fmt.Println("majordomo is listening. Type a command, or ctrl-d to quit.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down")
			return
		case line, ok := <-lines:
			if !ok {
				log.Info("Console closed")
				return
			}
			if strings.TrimSpace(line) == "exit" {
				return
			}
			a.Process(ctx, role, line)
		}
	}
}
