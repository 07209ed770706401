package catalog

import (
	"errors"
	"testing"

	"rockerboo/lsp-docker-bridge/docker"
	"rockerboo/lsp-docker-bridge/pathmap"
	"rockerboo/lsp-docker-bridge/registry"
)

func testMappings() []pathmap.Mapping {
	return []pathmap.Mapping{
		{Host: pathmap.Lit("/home/u/proj"), Container: pathmap.Lit("/workspace")},
	}
}

func withLookPath(t *testing.T, fn func(string) (string, error)) {
	t.Helper()

	orig := lookPath
	lookPath = fn
	t.Cleanup(func() { lookPath = orig })
}

func TestInitClients(t *testing.T) {
	withLookPath(t, func(string) (string, error) { return "/usr/bin/x", nil })

	reg := registry.NewRegistry()

	err := InitClients(reg, docker.NewLauncher(""), InitOptions{
		Mappings: testMappings(),
		Entries: []Entry{
			{
				ServerID:       "gopls",
				DockerServerID: "gopls-docker",
				ServerCommand:  "gopls serve",
				LanguageIDs:    []string{"go"},
				Image:          "golang:latest",
				Probe:          "go",
			},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	desc, ok := reg.Lookup("gopls-docker")
	if !ok {
		t.Fatal("Expected gopls-docker to be registered")
	}

	if desc.Priority != DefaultPriority {
		t.Errorf("Expected default priority %d, got %d", DefaultPriority, desc.Priority)
	}

	if desc.Owns == nil || !desc.Owns("/home/u/proj/main.go") {
		t.Error("Expected ownership of mapped tree")
	}
}

func TestInitClientsProbeSkip(t *testing.T) {
	withLookPath(t, func(name string) (string, error) {
		if name == "go" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	})

	reg := registry.NewRegistry()

	err := InitClients(reg, docker.NewLauncher(""), InitOptions{
		Mappings: testMappings(),
		Entries: []Entry{
			{
				ServerID:       "gopls",
				DockerServerID: "gopls-docker",
				ServerCommand:  "gopls serve",
				Image:          "golang:latest",
				Probe:          "go",
			},
			{
				ServerID:       "clangd",
				DockerServerID: "clangd-docker",
				ServerCommand:  "clangd",
				Image:          "clangd:latest",
				Probe:          "clang",
			},
		},
	})
	if err != nil {
		t.Fatalf("Probe failures must be silent, got: %v", err)
	}

	if _, ok := reg.Lookup("gopls-docker"); ok {
		t.Error("Expected gopls entry to be skipped")
	}

	if _, ok := reg.Lookup("clangd-docker"); !ok {
		t.Error("Expected clangd entry to be registered")
	}
}

func TestInitClientsNoMappings(t *testing.T) {
	withLookPath(t, func(string) (string, error) { return "/usr/bin/x", nil })

	reg := registry.NewRegistry()

	err := InitClients(reg, docker.NewLauncher(""), InitOptions{
		Entries: []Entry{
			{
				ServerID:       "gopls",
				DockerServerID: "gopls-docker",
				ServerCommand:  "gopls serve",
				Image:          "golang:latest",
			},
		},
	})
	if !errors.Is(err, registry.ErrNoPathMappings) {
		t.Fatalf("Expected ErrNoPathMappings, got: %v", err)
	}

	// A failed registration must not leave its template behind; otherwise the
	// registry can look populated while holding nothing usable.
	if ids := reg.IDs(); len(ids) != 0 {
		t.Errorf("Expected empty registry after failed registration, got %v", ids)
	}
}

func TestInitClientsPriorityOverride(t *testing.T) {
	withLookPath(t, func(string) (string, error) { return "/usr/bin/x", nil })

	reg := registry.NewRegistry()

	err := InitClients(reg, docker.NewLauncher(""), InitOptions{
		Mappings: testMappings(),
		Priority: 42,
		Entries: []Entry{
			{
				ServerID:       "gopls",
				DockerServerID: "gopls-docker",
				ServerCommand:  "gopls serve",
				Image:          "golang:latest",
			},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	desc, _ := reg.Lookup("gopls-docker")
	if desc.Priority != 42 {
		t.Errorf("Expected priority 42, got %d", desc.Priority)
	}
}

func TestDefaultEntriesWellFormed(t *testing.T) {
	seen := make(map[string]bool)

	for _, entry := range Default() {
		if entry.ServerID == "" || entry.DockerServerID == "" {
			t.Errorf("Entry missing identifiers: %+v", entry)
		}

		if entry.ServerCommand == "" {
			t.Errorf("Entry %s missing server command", entry.ServerID)
		}

		if entry.Image == "" {
			t.Errorf("Entry %s missing image", entry.ServerID)
		}

		if seen[entry.DockerServerID] {
			t.Errorf("Duplicate docker server ID: %s", entry.DockerServerID)
		}

		seen[entry.DockerServerID] = true
	}
}
