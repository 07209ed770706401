// Package config loads the bridge configuration file. Paths are validated
// against an allow-list before reading, so a crafted flag value cannot pull
// in files from outside the expected directories.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rockerboo/lsp-docker-bridge/catalog"
	"rockerboo/lsp-docker-bridge/pathmap"
)

// PathMapping is one host/container pair as written in the config file.
type PathMapping struct {
	Host      string `json:"host"`
	Container string `json:"container"`
}

// ServerEntry configures one language server, overriding or extending the
// built-in catalog.
type ServerEntry struct {
	ServerID       string   `json:"server_id"`
	DockerServerID string   `json:"docker_server_id"`
	ServerCommand  string   `json:"server_command"`
	LanguageIDs    []string `json:"language_ids"`
	Image          string   `json:"image"`
	ContainerName  string   `json:"container_name"`
	Probe          string   `json:"probe"`
}

// Config is the on-disk configuration.
type Config struct {
	Docker struct {
		Executable    string `json:"executable"`
		ContainerName string `json:"container_name"`
	} `json:"docker"`

	PathMappings       []PathMapping `json:"path_mappings"`
	DefaultPathMapping *PathMapping  `json:"default_path_mapping"`
	Priority           int           `json:"priority"`
	Servers            []ServerEntry `json:"servers"`

	Global struct {
		LogPath     string `json:"log_file_path"`
		LogLevel    string `json:"log_level"`
		MaxLogFiles int    `json:"max_log_files"`
	} `json:"global"`
}

// Load reads and parses a configuration file after validating its path.
func Load(path string, allowedDirs []string) (*Config, error) {
	validated, err := ValidatePath(path, allowedDirs)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(validated)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.PathMappings) == 0 && cfg.DefaultPathMapping == nil {
		return nil, fmt.Errorf("config declares no path mappings")
	}

	return &cfg, nil
}

// ApplyEnvOverrides lets the environment adjust settings without editing the
// config file, e.g. when the bridge runs under an editor-managed process.
func ApplyEnvOverrides(cfg *Config) {
	if exe := os.Getenv("LSP_DOCKER_EXECUTABLE"); exe != "" {
		cfg.Docker.Executable = exe
	}

	if level := os.Getenv("LSP_DOCKER_LOG_LEVEL"); level != "" {
		cfg.Global.LogLevel = level
	}
}

// Mappings converts the configured pairs to literal locators.
func (c *Config) Mappings() []pathmap.Mapping {
	mappings := make([]pathmap.Mapping, 0, len(c.PathMappings))
	for _, pm := range c.PathMappings {
		mappings = append(mappings, pathmap.Mapping{
			Host:      pathmap.Lit(pm.Host),
			Container: pathmap.Lit(pm.Container),
		})
	}

	return mappings
}

// DefaultMapping converts the configured default pair, if any.
func (c *Config) DefaultMapping() *pathmap.Mapping {
	if c.DefaultPathMapping == nil {
		return nil
	}

	return &pathmap.Mapping{
		Host:      pathmap.Lit(c.DefaultPathMapping.Host),
		Container: pathmap.Lit(c.DefaultPathMapping.Container),
	}
}

// Entries returns the configured server entries, falling back to the built-in
// catalog when the config names none.
func (c *Config) Entries() []catalog.Entry {
	if len(c.Servers) == 0 {
		return catalog.Default()
	}

	entries := make([]catalog.Entry, 0, len(c.Servers))
	for _, s := range c.Servers {
		dockerID := s.DockerServerID
		if dockerID == "" {
			dockerID = s.ServerID + "-docker"
		}

		containerName := s.ContainerName
		if containerName == "" {
			containerName = c.Docker.ContainerName
		}

		entries = append(entries, catalog.Entry{
			ServerID:       s.ServerID,
			DockerServerID: dockerID,
			ServerCommand:  s.ServerCommand,
			LanguageIDs:    s.LanguageIDs,
			Image:          s.Image,
			ContainerName:  containerName,
			Probe:          s.Probe,
		})
	}

	return entries
}

// ValidatePath resolves path and checks it lies within one of the allowed
// directories.
func ValidatePath(path string, allowedDirs []string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	abs = filepath.Clean(abs)

	for _, dir := range allowedDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}

		absDir = filepath.Clean(absDir)
		if abs == absDir || strings.HasPrefix(abs, absDir+string(filepath.Separator)) {
			return abs, nil
		}
	}

	return "", fmt.Errorf("path %s is outside allowed directories", path)
}
