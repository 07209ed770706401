package pathmap

import (
	"testing"
)

func TestRoundTrip(t *testing.T) {
	table := NewTable(nil, []Mapping{
		{Host: Lit("/home/u/proj"), Container: Lit("/workspace")},
	})

	uri := table.ToContainerURI("/home/u/proj/src/a.go")
	if uri != "file:///workspace/src/a.go" {
		t.Fatalf("Expected file:///workspace/src/a.go, got %s", uri)
	}

	back := table.ToHostPath("cc", uri)
	if back != "/home/u/proj/src/a.go" {
		t.Errorf("Expected /home/u/proj/src/a.go, got %s", back)
	}
}

func TestToHostPath(t *testing.T) {
	table := NewTable(nil, []Mapping{
		{Host: Lit("/home/u/proj"), Container: Lit("/workspace")},
	})

	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "mapped file",
			uri:      "file:///workspace/lib/x.go",
			expected: "/home/u/proj/lib/x.go",
		},
		{
			name:     "mapped root",
			uri:      "file:///workspace",
			expected: "/home/u/proj",
		},
		{
			name:     "unmapped container file",
			uri:      "file:///usr/share/x.go",
			expected: "/docker:cc:/usr/share/x.go",
		},
		{
			name:     "segment boundary not crossed",
			uri:      "file:///workspace2/x.go",
			expected: "/docker:cc:/workspace2/x.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := table.ToHostPath("cc", tt.uri)
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestToContainerURI(t *testing.T) {
	table := NewTable(nil, []Mapping{
		{Host: Lit("/home/u/proj"), Container: Lit("/workspace")},
		{Host: Lit("/var/data"), Container: Lit("/data")},
	})

	tests := []struct {
		name     string
		hostPath string
		expected string
	}{
		{
			name:     "first entry",
			hostPath: "/home/u/proj/src/a.go",
			expected: "file:///workspace/src/a.go",
		},
		{
			name:     "second entry",
			hostPath: "/var/data/set.csv",
			expected: "file:///data/set.csv",
		},
		{
			name:     "root of entry",
			hostPath: "/home/u/proj",
			expected: "file:///workspace",
		},
		{
			name:     "trailing slash normalized",
			hostPath: "/home/u/proj/",
			expected: "file:///workspace",
		},
		{
			name:     "backslashes normalized",
			hostPath: "/home/u/proj\\src\\a.go",
			expected: "file:///workspace/src/a.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := table.ToContainerURI(tt.hostPath)
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestDeclarationOrderPrecedence(t *testing.T) {
	// Both container roots are contained in the path under test; the entry
	// declared first must win even though the second is the longer match.
	table := NewTable(nil, []Mapping{
		{Host: Lit("/home/a"), Container: Lit("/ws")},
		{Host: Lit("/home/b"), Container: Lit("/ws/sub")},
	})

	result := table.ToHostPath("cc", "file:///ws/sub/f.go")
	if result != "/home/a/sub/f.go" {
		t.Errorf("Expected first-declared entry to win, got %s", result)
	}
}

func TestToContainerURIFallback(t *testing.T) {
	// Nothing matches: the first entry's pair is resolved and substituted
	// regardless of containment.
	table := NewTable(nil, []Mapping{
		{Host: Lit("/home/u/proj"), Container: Lit("/workspace")},
	})

	result := table.ToContainerURI("/elsewhere/f.go")
	if result != "file:///elsewhere/f.go" {
		t.Errorf("Expected unchanged path in fallback, got %s", result)
	}
}

func TestToContainerURIEmptyTable(t *testing.T) {
	table := NewTable(nil, nil)

	result := table.ToContainerURI("/home/u/proj/f.go")
	if result != "file:///home/u/proj/f.go" {
		t.Errorf("Expected identity translation on empty table, got %s", result)
	}
}

func TestComputedLocators(t *testing.T) {
	calls := 0
	tmp := Func(func() string {
		calls++
		return "/tmp/session-42"
	})

	table := NewTable(nil, []Mapping{
		{Host: tmp, Container: Lit("/scratch")},
		{Host: Lit("/home/u/proj"), Container: Lit("/workspace")},
	})

	// Computed host locators are skipped during host->container matching.
	uri := table.ToContainerURI("/home/u/proj/a.go")
	if uri != "file:///workspace/a.go" {
		t.Errorf("Expected file:///workspace/a.go, got %s", uri)
	}
	if calls != 0 {
		t.Errorf("Computed host locator resolved %d times during matching", calls)
	}

	// Container->host translation resolves the producer.
	host := table.ToHostPath("cc", "file:///scratch/out.log")
	if host != "/tmp/session-42/out.log" {
		t.Errorf("Expected /tmp/session-42/out.log, got %s", host)
	}
	if calls == 0 {
		t.Error("Expected producer to be resolved for container->host translation")
	}
}

func TestDefaultMappingPrepended(t *testing.T) {
	def := Mapping{Host: Lit("/srv/fallback"), Container: Lit("/fallback")}
	table := NewTable(&def, []Mapping{
		{Host: Lit("/home/u/proj"), Container: Lit("/workspace")},
	})

	if table.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", table.Len())
	}

	entries := table.Entries()
	if entries[0].Container.Resolve() != "/fallback" {
		t.Errorf("Expected default mapping first, got %s", entries[0].Container.Resolve())
	}
}

func TestOwns(t *testing.T) {
	table := NewTable(nil, []Mapping{
		{Host: Lit("/home/u/project"), Container: Lit("/workspace")},
	})

	tests := []struct {
		name     string
		hostPath string
		expected bool
	}{
		{
			name:     "file inside tree",
			hostPath: "/home/u/project/src/a.go",
			expected: true,
		},
		{
			name:     "tree root itself",
			hostPath: "/home/u/project",
			expected: true,
		},
		{
			name:     "textual substring but not a subdirectory",
			hostPath: "/home/u/project2/src/a.go",
			expected: false,
		},
		{
			name:     "outside tree",
			hostPath: "/etc/passwd",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Owns(tt.hostPath); got != tt.expected {
				t.Errorf("Owns(%s) = %v, expected %v", tt.hostPath, got, tt.expected)
			}
		})
	}
}

func TestURIToPath(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "unix uri",
			uri:      "file:///workspace/a.go",
			expected: "/workspace/a.go",
		},
		{
			name:     "windows uri",
			uri:      "file:///C:/Projects/a.go",
			expected: "C:/Projects/a.go",
		},
		{
			name:     "bare path",
			uri:      "/workspace/a.go",
			expected: "/workspace/a.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URIToPath(tt.uri); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFileURI(t *testing.T) {
	if got := FileURI("/workspace/a.go"); got != "file:///workspace/a.go" {
		t.Errorf("Expected file:///workspace/a.go, got %s", got)
	}

	if got := FileURI("C:/Projects/a.go"); got != "file:///C:/Projects/a.go" {
		t.Errorf("Expected file:///C:/Projects/a.go, got %s", got)
	}
}
