package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"rockerboo/lsp-docker-bridge/docker"
	"rockerboo/lsp-docker-bridge/pathmap"
)

var (
	// ErrNoPathMappings is returned when a registration supplies neither
	// explicit path mappings nor a default mapping.
	ErrNoPathMappings = errors.New("no path mappings configured")

	// ErrUnknownClient is returned when the template client for a server ID
	// is not present in the registry.
	ErrUnknownClient = errors.New("unknown language client")
)

// ConnectFunc establishes the byte stream to a language server.
type ConnectFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// ClientDescriptor describes one protocol client. Template descriptors carry
// only identity, command and priority; containerized descriptors derived from
// them additionally carry translation functions, the ownership predicate and
// a connection factory. Descriptors are immutable once registered and shared
// read-only by all sessions.
type ClientDescriptor struct {
	ServerID      string
	Priority      int
	LanguageIDs   []string
	ServerCommand string

	// ToHostPath translates a container-side file URI to a host path, or to
	// an opaque remote marker when the file has no host counterpart.
	ToHostPath func(uri string) string

	// ToContainerURI translates a host path to a file URI valid inside the
	// container.
	ToContainerURI func(hostPath string) string

	// Owns reports whether a host file belongs to this client's mapping set.
	Owns func(hostPath string) bool

	// Connect starts or attaches to the container and returns the server's
	// duplex stream. Invoked lazily, once per session.
	Connect ConnectFunc

	// RootURI is the container-side URI of the primary workspace root.
	RootURI string
}

// clone returns a copy of the descriptor for copy-and-override derivation.
func (d *ClientDescriptor) clone() *ClientDescriptor {
	copied := *d
	copied.LanguageIDs = append([]string(nil), d.LanguageIDs...)

	return &copied
}

// Registry is the process-wide mapping from client identifier to descriptor.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*ClientDescriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*ClientDescriptor)}
}

// Add inserts a descriptor, replacing any prior entry with the same ID.
func (r *Registry) Add(desc *ClientDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[desc.ServerID] = desc
}

// Lookup retrieves a descriptor by server ID.
func (r *Registry) Lookup(serverID string) (*ClientDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.clients[serverID]

	return desc, ok
}

// Remove deletes a descriptor by server ID.
func (r *Registry) Remove(serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, serverID)
}

// IDs returns all registered server IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// RegisterOptions parameterizes the derivation of a containerized client from
// a registered template.
type RegisterOptions struct {
	ServerID           string
	DockerServerID     string
	PathMappings       []pathmap.Mapping
	DefaultPathMapping *pathmap.Mapping
	Image              pathmap.Locator
	ContainerName      string

	// Priority overrides the template's priority when non-nil.
	Priority *int

	// ServerCommand overrides the template's command when non-empty.
	ServerCommand string

	// Launch builds the container argv. Defaults to launcher.LaunchNew.
	Launch docker.LaunchFunc
}

// Register derives a containerized client descriptor from the template
// registered under opts.ServerID and inserts it into the registry under
// opts.DockerServerID, replacing any prior entry. The registry is left
// untouched on error.
func Register(reg *Registry, launcher *docker.Launcher, opts RegisterOptions) (*ClientDescriptor, error) {
	if len(opts.PathMappings) == 0 && opts.DefaultPathMapping == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoPathMappings, opts.ServerID)
	}

	template, ok := reg.Lookup(opts.ServerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClient, opts.ServerID)
	}

	table := pathmap.NewTable(opts.DefaultPathMapping, opts.PathMappings)

	desc := template.clone()
	desc.ServerID = opts.DockerServerID

	if opts.Priority != nil {
		desc.Priority = *opts.Priority
	}

	if opts.ServerCommand != "" {
		desc.ServerCommand = opts.ServerCommand
	}

	containerName := opts.ContainerName
	if containerName == "" {
		containerName = opts.DockerServerID
	}

	desc.ToHostPath = func(uri string) string {
		return table.ToHostPath(containerName, uri)
	}
	desc.ToContainerURI = table.ToContainerURI
	desc.Owns = table.Owns
	desc.RootURI = pathmap.FileURI(table.Entries()[0].Container.Resolve())

	launch := opts.Launch
	if launch == nil {
		launch = launcher.LaunchNew
	}

	image := opts.Image
	serverCommand := desc.ServerCommand

	desc.Connect = func(ctx context.Context) (io.ReadWriteCloser, error) {
		return launcher.Start(ctx, launch(image, containerName, table, serverCommand))
	}

	reg.Add(desc)

	return desc, nil
}
