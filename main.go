// Copyright 2025 Dave Lage (rockerBOO)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rockerboo/lsp-docker-bridge/bridge"
	"rockerboo/lsp-docker-bridge/catalog"
	"rockerboo/lsp-docker-bridge/config"
	"rockerboo/lsp-docker-bridge/docker"
	"rockerboo/lsp-docker-bridge/logger"
	"rockerboo/lsp-docker-bridge/mcpserver"
	"rockerboo/lsp-docker-bridge/registry"

	"github.com/mark3labs/mcp-go/server"
)

// tryLoadConfig attempts to load configuration from multiple locations.
func tryLoadConfig(primaryPath, configDir string, allowedDirs []string) (*config.Config, error) {
	if cfg, err := config.Load(primaryPath, allowedDirs); err == nil {
		return cfg, nil
	}

	fallbackPaths := []string{
		"bridge_config.json",
		filepath.Join(configDir, "config.json"),
		"bridge_config.example.json",
	}

	for _, fallbackPath := range fallbackPaths {
		if fallbackPath == primaryPath {
			continue
		}

		if cfg, err := config.Load(fallbackPath, allowedDirs); err == nil {
			fmt.Fprintf(os.Stderr, "INFO: Loaded configuration from fallback location: %s\n", fallbackPath)
			return cfg, nil
		}
	}

	return nil, errors.New("no valid configuration found")
}

func main() {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("Failed to get config directory: %v", err)
	}

	configDir := filepath.Join(userConfigDir, "lsp-docker-bridge")
	defaultConfigPath := filepath.Join(configDir, "bridge_config.json")
	defaultLogPath := filepath.Join(configDir, "lsp-docker-bridge.log")

	var confPath string

	var logPath string

	var logLevel string

	flag.StringVar(&confPath, "config", defaultConfigPath, "Path to bridge configuration file")
	flag.StringVar(&confPath, "c", defaultConfigPath, "Path to bridge configuration file (short)")
	flag.StringVar(&logPath, "log-path", "", "Path to log file (overrides config and default)")
	flag.StringVar(&logPath, "l", "", "Path to log file (short)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get current working directory: %v", err)
	}

	allowedDirs := []string{configDir, cwd}

	cfg, err := tryLoadConfig(confPath, configDir, allowedDirs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to load config from '%s': %v\n", confPath, err)
		os.Exit(1)
	}

	// Allow runtime tuning from outside (e.g. editor-managed env vars)
	// without editing the config file.
	config.ApplyEnvOverrides(cfg)

	logConfig := logger.LoggerConfig{
		LogPath:     cfg.Global.LogPath,
		LogLevel:    cfg.Global.LogLevel,
		MaxLogFiles: cfg.Global.MaxLogFiles,
	}

	if logPath != "" {
		logConfig.LogPath = logPath
	}

	if logLevel != "" {
		logConfig.LogLevel = logLevel
	}

	if logConfig.LogPath == "" {
		logConfig.LogPath = defaultLogPath
	}

	if err := logger.InitLogger(logConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Close()

	logger.Info("Starting LSP Docker Bridge...")

	reg := registry.NewRegistry()
	launcher := docker.NewLauncher(cfg.Docker.Executable)

	initOpts := catalog.InitOptions{
		Mappings:       cfg.Mappings(),
		DefaultMapping: cfg.DefaultMapping(),
		Priority:       cfg.Priority,
		Entries:        cfg.Entries(),
	}

	if err := catalog.InitClients(reg, launcher, initOpts); err != nil {
		logger.Warn("Some language clients failed to register: " + err.Error())
	}

	if len(reg.IDs()) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: No language clients registered")
		os.Exit(1)
	}

	bridgeInstance := bridge.New(reg)
	defer bridgeInstance.Shutdown(context.Background())

	mcpServer := mcpserver.SetupMCPServer(bridgeInstance)
	bridgeInstance.SetServer(mcpServer)

	logger.Info("Starting MCP server...")

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error("MCP server error: " + err.Error())
	}
}
