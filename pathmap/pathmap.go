package pathmap

import (
	"strings"

	"rockerboo/lsp-docker-bridge/logger"
)

// RemoteMarkerPrefix starts every synthetic path returned for container files
// that have no host counterpart. Such paths are opaque: they identify the
// container and the in-container location but cannot be dereferenced on the
// host.
const RemoteMarkerPrefix = "/docker:"

// Locator identifies a filesystem path in one namespace. It is either a
// literal string or a zero-argument producer resolved on demand, which
// supports environment-dependent paths such as a temp directory decided at
// runtime.
type Locator struct {
	literal string
	fn      func() string
}

// Lit returns a literal locator. The path is normalized once, up front.
func Lit(path string) Locator {
	return Locator{literal: normalize(path)}
}

// Func returns a computed locator. The producer runs on every resolution.
func Func(fn func() string) Locator {
	return Locator{fn: fn}
}

// IsComputed reports whether the locator is backed by a producer function.
func (l Locator) IsComputed() bool {
	return l.fn != nil
}

// Resolve yields the locator's current path value.
func (l Locator) Resolve() string {
	if l.fn != nil {
		return normalize(l.fn())
	}

	return l.literal
}

// Mapping declares a correspondence between a host-side and a container-side
// locator.
type Mapping struct {
	Host      Locator
	Container Locator
}

// Table is an ordered sequence of mappings. Entries are tried in declaration
// order and the first match wins; ordering, not match length, disambiguates
// overlapping entries. A table is immutable after construction and safe for
// concurrent readers.
type Table struct {
	entries []Mapping
}

// NewTable builds a table from an optional default mapping and the explicit
// mappings. The default mapping, when present, is prepended ahead of the
// explicit entries.
func NewTable(defaultMapping *Mapping, mappings []Mapping) *Table {
	entries := make([]Mapping, 0, len(mappings)+1)
	if defaultMapping != nil {
		entries = append(entries, *defaultMapping)
	}

	entries = append(entries, mappings...)

	return &Table{entries: entries}
}

// Len returns the number of entries, the default mapping included.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the mapping sequence in declaration order.
func (t *Table) Entries() []Mapping {
	out := make([]Mapping, len(t.entries))
	copy(out, t.entries)

	return out
}

// ToHostPath converts a file URI received from the container into a host
// filesystem path. The first entry whose container locator contains the
// decoded path wins. When no entry matches, the file exists only inside the
// container (library sources, generated code) and an opaque remote marker
// encoding containerName and the raw path is returned instead.
func (t *Table) ToHostPath(containerName, uri string) string {
	raw := URIToPath(uri)

	for _, entry := range t.entries {
		containerRoot := entry.Container.Resolve()
		if matchPrefix(raw, containerRoot) {
			return entry.Host.Resolve() + raw[len(containerRoot):]
		}
	}

	return RemoteMarkerPrefix + containerName + ":" + raw
}

// ToContainerURI converts a host filesystem path into a file URI valid inside
// the container. Entries whose host locator is computed are skipped: resolving
// a producer just to test containment is ambiguous when both sides are
// dynamic. When no entry matches, the first entry's pair is resolved and
// substituted unconditionally as a last-resort default mapping.
func (t *Table) ToContainerURI(hostPath string) string {
	path := normalize(hostPath)

	for _, entry := range t.entries {
		if entry.Host.IsComputed() {
			continue
		}

		hostRoot := entry.Host.Resolve()
		if matchPrefix(path, hostRoot) {
			return FileURI(entry.Container.Resolve() + path[len(hostRoot):])
		}
	}

	if len(t.entries) == 0 {
		return FileURI(path)
	}

	first := t.entries[0]
	logger.Warn("no mapping matched host path " + hostPath + ", falling back to first table entry")

	return FileURI(strings.Replace(path, first.Host.Resolve(), first.Container.Resolve(), 1))
}

// Owns reports whether hostPath lies within some entry's host locator
// directory tree. This is the ownership predicate used for client routing; it
// requires directory containment on segment boundaries, stricter than the
// substitution performed during translation, so partial path collisions never
// claim ownership.
func (t *Table) Owns(hostPath string) bool {
	path := normalize(hostPath)

	for _, entry := range t.entries {
		if matchPrefix(path, entry.Host.Resolve()) {
			return true
		}
	}

	return false
}

// matchPrefix reports whether path starts with root on a path-segment
// boundary. "/home/u/project2" does not match root "/home/u/project".
func matchPrefix(path, root string) bool {
	if root == "" || !strings.HasPrefix(path, root) {
		return false
	}

	return len(path) == len(root) || path[len(root)] == '/' || root[len(root)-1] == '/'
}

// normalize converts separators to forward slashes and trims a trailing
// slash. Don't use filepath.Abs here: host paths may be cross-platform
// (Windows path handled on Linux).
func normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return path
}

// URIToPath strips the file:// scheme from a URI, handling the Windows
// variant (file:///C:/path) the same way regardless of the host platform.
func URIToPath(uri string) string {
	path, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return normalize(uri)
	}

	if strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:] // Windows drive letter
	}

	return normalize(path)
}

// FileURI encodes a path as a file:// URI with Unix separators.
func FileURI(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path // Windows drive letter
	}

	return "file://" + path
}
