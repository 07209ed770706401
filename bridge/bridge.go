// Package bridge composes the client registry with live LSP sessions and the
// MCP server surface.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"rockerboo/lsp-docker-bridge/logger"
	"rockerboo/lsp-docker-bridge/lsp"
	"rockerboo/lsp-docker-bridge/registry"

	"github.com/mark3labs/mcp-go/server"
)

// Bridge routes host files to containerized language servers. Descriptors are
// read-only; the live client map is the only mutable state.
type Bridge struct {
	server   *server.MCPServer
	registry *registry.Registry

	mu      sync.Mutex
	clients map[string]*lsp.Client
}

// New creates a bridge over the given client registry.
func New(reg *registry.Registry) *Bridge {
	return &Bridge{
		registry: reg,
		clients:  make(map[string]*lsp.Client),
	}
}

// SetServer stores the MCP server reference.
func (b *Bridge) SetServer(s *server.MCPServer) {
	b.server = s
}

// Server returns the MCP server reference.
func (b *Bridge) Server() *server.MCPServer {
	return b.server
}

// Registry returns the client registry.
func (b *Bridge) Registry() *registry.Registry {
	return b.registry
}

// DescriptorForPath selects the registered client owning the given host file.
// Template descriptors carry no ownership predicate and are never selected.
// Among owners, the highest priority wins.
func (b *Bridge) DescriptorForPath(hostPath string) (*registry.ClientDescriptor, error) {
	var best *registry.ClientDescriptor

	for _, id := range b.registry.IDs() {
		desc, ok := b.registry.Lookup(id)
		if !ok || desc.Owns == nil || !desc.Owns(hostPath) {
			continue
		}

		if best == nil || desc.Priority > best.Priority {
			best = desc
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no registered client owns %s", hostPath)
	}

	return best, nil
}

// ClientFor returns the live session for a descriptor, connecting and
// initializing it on first use. The connection factory runs at most once per
// descriptor; concurrent callers share the session.
func (b *Bridge) ClientFor(ctx context.Context, desc *registry.ClientDescriptor) (*lsp.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if client, ok := b.clients[desc.ServerID]; ok {
		return client, nil
	}

	logger.Info("connecting language server " + desc.ServerID)

	stream, err := desc.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", desc.ServerID, err)
	}

	client := lsp.NewClient(context.Background(), stream)

	if _, err := client.Initialize(ctx, desc.RootURI); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize %s: %w", desc.ServerID, err)
	}

	b.clients[desc.ServerID] = client

	return client, nil
}

// Shutdown closes all live sessions.
func (b *Bridge) Shutdown(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, client := range b.clients {
		if err := client.Shutdown(ctx); err != nil {
			logger.Warn(fmt.Sprintf("shutdown of %s failed: %v", id, err))
		}

		client.Close()
		delete(b.clients, id)
	}
}
