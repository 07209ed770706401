// Package catalog holds the static list of known language servers and the
// batch entry point that registers their containerized clients.
package catalog

import (
	"errors"
	"fmt"
	"os/exec"

	"rockerboo/lsp-docker-bridge/docker"
	"rockerboo/lsp-docker-bridge/logger"
	"rockerboo/lsp-docker-bridge/pathmap"
	"rockerboo/lsp-docker-bridge/registry"
)

// DefaultPriority is applied to catalog registrations unless overridden.
const DefaultPriority = 10

// Entry is one known language server configuration.
type Entry struct {
	ServerID       string
	DockerServerID string
	ServerCommand  string
	LanguageIDs    []string
	Image          string
	ContainerName  string

	// Probe names a host binary whose absence marks the server family as not
	// installed; such entries are skipped silently during batch init. An
	// empty probe always passes.
	Probe string
}

// Default returns the built-in server catalog.
func Default() []Entry {
	return []Entry{
		{
			ServerID:       "gopls",
			DockerServerID: "gopls-docker",
			ServerCommand:  "gopls serve",
			LanguageIDs:    []string{"go"},
			Image:          "golang:latest",
			Probe:          "go",
		},
		{
			ServerID:       "pyright",
			DockerServerID: "pyright-docker",
			ServerCommand:  "pyright-langserver --stdio",
			LanguageIDs:    []string{"python"},
			Image:          "pyright-langserver:latest",
			Probe:          "python3",
		},
		{
			ServerID:       "typescript-language-server",
			DockerServerID: "typescript-language-server-docker",
			ServerCommand:  "typescript-language-server --stdio",
			LanguageIDs:    []string{"typescript", "javascript"},
			Image:          "typescript-language-server:latest",
			Probe:          "node",
		},
		{
			ServerID:       "rust-analyzer",
			DockerServerID: "rust-analyzer-docker",
			ServerCommand:  "rust-analyzer",
			LanguageIDs:    []string{"rust"},
			Image:          "rust:latest",
			Probe:          "cargo",
		},
		{
			ServerID:       "clangd",
			DockerServerID: "clangd-docker",
			ServerCommand:  "clangd",
			LanguageIDs:    []string{"c", "cpp"},
			Image:          "clangd:latest",
		},
		{
			ServerID:       "bash-language-server",
			DockerServerID: "bash-language-server-docker",
			ServerCommand:  "bash-language-server start",
			LanguageIDs:    []string{"shellscript"},
			Image:          "bash-language-server:latest",
			Probe:          "bash",
		},
	}
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// InitOptions parameterizes batch registration.
type InitOptions struct {
	Mappings       []pathmap.Mapping
	DefaultMapping *pathmap.Mapping

	// Priority applied to every registration; 0 means DefaultPriority.
	Priority int

	// Entries to register; nil means Default().
	Entries []Entry
}

// InitClients registers a containerized client for every catalog entry whose
// probe passes. Probe failures are skipped silently: a server family that is
// not installed on the host is simply absent from the active set.
// Registration errors do not stop the loop; they are joined and returned.
func InitClients(reg *registry.Registry, launcher *docker.Launcher, opts InitOptions) error {
	priority := opts.Priority
	if priority == 0 {
		priority = DefaultPriority
	}

	entries := opts.Entries
	if entries == nil {
		entries = Default()
	}

	var errs []error

	for _, entry := range entries {
		if entry.Probe != "" {
			if _, err := lookPath(entry.Probe); err != nil {
				logger.Debug(fmt.Sprintf("skipping %s: %s not installed", entry.ServerID, entry.Probe))
				continue
			}
		}

		// The template must exist before Register can derive from it; it is
		// removed again below if the derivation fails, so a broken entry
		// never leaves a dangling template behind.
		reg.Add(&registry.ClientDescriptor{
			ServerID:      entry.ServerID,
			Priority:      priority,
			LanguageIDs:   entry.LanguageIDs,
			ServerCommand: entry.ServerCommand,
		})

		_, err := registry.Register(reg, launcher, registry.RegisterOptions{
			ServerID:           entry.ServerID,
			DockerServerID:     entry.DockerServerID,
			PathMappings:       opts.Mappings,
			DefaultPathMapping: opts.DefaultMapping,
			Image:              pathmap.Lit(entry.Image),
			ContainerName:      entry.ContainerName,
			Priority:           &priority,
		})
		if err != nil {
			reg.Remove(entry.ServerID)
			errs = append(errs, fmt.Errorf("register %s: %w", entry.ServerID, err))
		}
	}

	return errors.Join(errs...)
}
