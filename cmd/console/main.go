// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/compass_nav/internal/app"
	"github.com/relabs-tech/compass_nav/internal/config"
)

func main() {
	configPath := flag.String("config", "./compass_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting compass-nav (mock console)")

	// The demo needs no broker; a missing config file falls back to defaults.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("using defaults: %v", err)
		cfg = config.Defaults()
	}

	if err := app.RunMockConsole(cfg.Target(), cfg.FilterWindow); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
