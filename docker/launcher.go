package docker

import (
	"fmt"
	"strings"
	"sync/atomic"

	"rockerboo/lsp-docker-bridge/pathmap"
)

// DefaultExecutable is the container CLI used when none is configured.
const DefaultExecutable = "docker"

// LaunchFunc builds the argument vector that starts or attaches to the
// container hosting a language server. The returned tokens are handed to the
// process spawner as-is.
type LaunchFunc func(image pathmap.Locator, containerName string, table *pathmap.Table, serverCommand string) []string

// Launcher constructs container command lines. The embedded suffix counter
// makes every launched container name unique within the process, even when
// sessions launch concurrently.
type Launcher struct {
	exe    string
	suffix atomic.Int64
}

// NewLauncher returns a launcher using the given container executable, or
// DefaultExecutable when exe is empty.
func NewLauncher(exe string) *Launcher {
	if exe == "" {
		exe = DefaultExecutable
	}

	return &Launcher{exe: exe}
}

// Executable returns the configured container CLI name.
func (l *Launcher) Executable() string {
	return l.exe
}

// LaunchNew builds the command line for a fresh container: one volume bind
// per mapping entry, a --name derived from containerName plus the next suffix,
// and the inner server command appended after the image. The server command is
// split on whitespace; arguments that would need quoting must not be passed
// through it.
func (l *Launcher) LaunchNew(image pathmap.Locator, containerName string, table *pathmap.Table, serverCommand string) []string {
	name := fmt.Sprintf("%s-%d", containerName, l.suffix.Add(1))

	argv := []string{l.exe, "run", "--name", name, "--rm", "-i"}

	for _, entry := range table.Entries() {
		argv = append(argv, "-v", entry.Host.Resolve()+":"+entry.Container.Resolve())
	}

	argv = append(argv, image.Resolve())
	argv = append(argv, strings.Fields(serverCommand)...)

	return argv
}

// ExecExisting builds the command line that attaches to an already-running
// container. The image and mapping table are unused; the container is assumed
// to have been started with the right binds.
func (l *Launcher) ExecExisting(image pathmap.Locator, containerName string, table *pathmap.Table, serverCommand string) []string {
	argv := []string{l.exe, "exec", "-i", containerName}
	argv = append(argv, strings.Fields(serverCommand)...)

	return argv
}
