// Package lsp implements the language server client that speaks LSP over the
// duplex stream of a containerized server process.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"rockerboo/lsp-docker-bridge/logger"

	"github.com/myleshyson/lsprotocol-go/protocol"
	"github.com/sourcegraph/jsonrpc2"
)

// Client is one LSP session. URIs crossing this client are already in the
// container namespace; translation happens at the bridge layer.
type Client struct {
	conn *jsonrpc2.Conn

	mu           sync.RWMutex
	capabilities protocol.ServerCapabilities
	initialized  bool
	openDocs     map[string]bool
}

// NewClient wraps an established server stream in a JSON-RPC connection with
// LSP base-protocol framing.
func NewClient(ctx context.Context, stream io.ReadWriteCloser) *Client {
	client := &Client{openDocs: make(map[string]bool)}

	handler := jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(client.handle))
	client.conn = jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}), handler)

	return client
}

// Initialize performs the LSP handshake against the given container-side
// workspace root URI.
func (c *Client) Initialize(ctx context.Context, rootURI string) (*protocol.InitializeResult, error) {
	pid := os.Getpid()
	if pid < 0 || pid > math.MaxInt32 {
		return nil, fmt.Errorf("process ID out of range: %d", pid)
	}

	processID := int32(pid)

	workspaceFolders := []protocol.WorkspaceFolder{
		{
			Uri:  protocol.URI(rootURI),
			Name: "workspace",
		},
	}

	params := protocol.InitializeParams{
		ProcessId: &processID,
		ClientInfo: &protocol.ClientInfo{
			Name:    "lsp-docker-bridge",
			Version: "1.0.0",
		},
		WorkspaceFolders: &workspaceFolders,
	}

	var result protocol.InitializeResult
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return nil, fmt.Errorf("initialize request failed: %w", err)
	}

	c.mu.Lock()
	c.capabilities = result.Capabilities
	c.initialized = true
	c.mu.Unlock()

	if err := c.conn.Notify(ctx, "initialized", map[string]any{}); err != nil {
		return nil, fmt.Errorf("initialized notification failed: %w", err)
	}

	return &result, nil
}

// ServerCapabilities returns the capabilities reported during initialize.
func (c *Client) ServerCapabilities() protocol.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.capabilities
}

// IsInitialized reports whether the handshake completed.
func (c *Client) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.initialized
}

// EnsureOpen sends textDocument/didOpen once per URI. Many servers require an
// open document before answering position requests.
func (c *Client) EnsureOpen(ctx context.Context, uri, languageID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openDocs[uri] {
		return nil
	}

	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": languageID,
			"version":    1,
			"text":       text,
		},
	}

	// Mark open only after the notification went out; a failed send must be
	// retried on the next call or the document stays invisible to the server.
	if err := c.conn.Notify(ctx, "textDocument/didOpen", params); err != nil {
		return err
	}

	c.openDocs[uri] = true

	return nil
}

// Hover requests hover information at a position.
func (c *Client) Hover(ctx context.Context, uri string, line, character uint32) (*protocol.Hover, error) {
	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/hover", positionParams(uri, line, character), &raw); err != nil {
		return nil, err
	}

	if isNull(raw) {
		return nil, nil
	}

	var hover protocol.Hover
	if err := json.Unmarshal(raw, &hover); err != nil {
		return nil, fmt.Errorf("failed to parse hover result: %w", err)
	}

	return &hover, nil
}

// Definition requests the definition locations for a position. Servers answer
// with a single location, a location array or location links; all three forms
// are flattened to locations.
func (c *Client) Definition(ctx context.Context, uri string, line, character uint32) ([]protocol.Location, error) {
	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/definition", positionParams(uri, line, character), &raw); err != nil {
		return nil, err
	}

	return parseLocations(raw)
}

// References requests all references to the symbol at a position.
func (c *Client) References(ctx context.Context, uri string, line, character uint32, includeDeclaration bool) ([]protocol.Location, error) {
	params := positionParams(uri, line, character)
	params["context"] = map[string]any{"includeDeclaration": includeDeclaration}

	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/references", params, &raw); err != nil {
		return nil, err
	}

	return parseLocations(raw)
}

// DocumentSymbols requests the symbol outline of a document.
func (c *Client) DocumentSymbols(ctx context.Context, uri string) ([]protocol.DocumentSymbol, error) {
	params := map[string]any{
		"textDocument": map[string]any{"uri": uri},
	}

	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, err
	}

	if isNull(raw) {
		return nil, nil
	}

	var symbols []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, fmt.Errorf("failed to parse document symbols: %w", err)
	}

	return symbols, nil
}

// WorkspaceSymbols queries symbols across the whole workspace by name.
func (c *Client) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	params := map[string]any{"query": query}

	var raw json.RawMessage
	if err := c.conn.Call(ctx, "workspace/symbol", params, &raw); err != nil {
		return nil, err
	}

	if isNull(raw) {
		return nil, nil
	}

	// Servers may answer with WorkspaceSymbol[] instead; its extra fields are
	// ignored and the location decodes the same way.
	var symbols []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, fmt.Errorf("failed to parse workspace symbols: %w", err)
	}

	return symbols, nil
}

// Shutdown performs the shutdown/exit sequence.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.conn.Call(ctx, "shutdown", nil, nil); err != nil {
		return err
	}

	return c.conn.Notify(ctx, "exit", nil)
}

// Close tears the connection down, killing the server process via the
// underlying stream.
func (c *Client) Close() error {
	return c.conn.Close()
}

// handle serves requests and notifications sent by the language server.
func (c *Client) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "workspace/configuration":
		// One null per requested item.
		var params struct {
			Items []json.RawMessage `json:"items"`
		}
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, err
			}
		}

		return make([]any, len(params.Items)), nil

	case "window/workDoneProgress/create", "client/registerCapability", "client/unregisterCapability":
		return nil, nil

	case "window/logMessage", "window/showMessage":
		var msg struct {
			Message string `json:"message"`
		}
		if req.Params != nil {
			json.Unmarshal(*req.Params, &msg)
		}

		logger.Debug("server: " + msg.Message)

		return nil, nil

	case "textDocument/publishDiagnostics", "$/progress":
		return nil, nil

	default:
		if req.Notif {
			logger.Debug("unhandled server notification: " + req.Method)
			return nil, nil
		}

		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "method not supported: " + req.Method,
		}
	}
}

func positionParams(uri string, line, character uint32) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": line, "character": character},
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// parseLocations flattens the Location | Location[] | LocationLink[] union.
func parseLocations(raw json.RawMessage) ([]protocol.Location, error) {
	if isNull(raw) {
		return nil, nil
	}

	// A LocationLink array also decodes into []Location with empty URIs, so
	// a successful decode is only trusted when the URIs are populated.
	var locations []protocol.Location
	if err := json.Unmarshal(raw, &locations); err == nil {
		if len(locations) == 0 || locations[0].Uri != "" {
			return locations, nil
		}
	}

	var single protocol.Location
	if err := json.Unmarshal(raw, &single); err == nil && single.Uri != "" {
		return []protocol.Location{single}, nil
	}

	var links []protocol.LocationLink
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, fmt.Errorf("failed to parse location result: %w", err)
	}

	locations = make([]protocol.Location, 0, len(links))
	for _, link := range links {
		locations = append(locations, protocol.Location{
			Uri:   link.TargetUri,
			Range: link.TargetSelectionRange,
		})
	}

	return locations, nil
}
