// Package mcpserver defines the MCP tools exposed to the editor-side client.
// Every tool takes host paths; translation to and from the container
// namespace happens at this boundary.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"rockerboo/lsp-docker-bridge/bridge"
	"rockerboo/lsp-docker-bridge/lsp"
	"rockerboo/lsp-docker-bridge/registry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/myleshyson/lsprotocol-go/protocol"
)

// SetupMCPServer builds the MCP server and registers the bridge tools.
func SetupMCPServer(b *bridge.Bridge) *server.MCPServer {
	s := server.NewMCPServer(
		"LSP Docker Bridge",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	hoverTool := mcp.NewTool("lsp_hover",
		mcp.WithDescription("Get hover documentation for a symbol in a file. The file is served by a language server running in a container; paths are host paths."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Host path of the file"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("Zero-based line number"),
		),
		mcp.WithNumber("character",
			mcp.Required(),
			mcp.Description("Zero-based character offset"),
		),
	)
	s.AddTool(hoverTool, hoverHandler(b))

	definitionTool := mcp.NewTool("lsp_definition",
		mcp.WithDescription("Find the definition of the symbol at a position. Results are host paths, or container-only markers for files without a host counterpart."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Host path of the file"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("Zero-based line number"),
		),
		mcp.WithNumber("character",
			mcp.Required(),
			mcp.Description("Zero-based character offset"),
		),
	)
	s.AddTool(definitionTool, definitionHandler(b))

	referencesTool := mcp.NewTool("lsp_references",
		mcp.WithDescription("Find all references to the symbol at a position."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Host path of the file"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("Zero-based line number"),
		),
		mcp.WithNumber("character",
			mcp.Required(),
			mcp.Description("Zero-based character offset"),
		),
	)
	s.AddTool(referencesTool, referencesHandler(b))

	symbolsTool := mcp.NewTool("lsp_document_symbols",
		mcp.WithDescription("List the symbols declared in a file."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Host path of the file"),
		),
	)
	s.AddTool(symbolsTool, symbolsHandler(b))

	workspaceSymbolsTool := mcp.NewTool("lsp_workspace_symbols",
		mcp.WithDescription("Search symbols across the workspace by name."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Symbol name query; the server decides the match semantics"),
		),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Host path of any file in the workspace to query"),
		),
	)
	s.AddTool(workspaceSymbolsTool, workspaceSymbolsHandler(b))

	clientsTool := mcp.NewTool("lsp_clients",
		mcp.WithDescription("List the registered language clients."),
	)
	s.AddTool(clientsTool, clientsHandler(b))

	return s
}

// sessionForFile resolves the owning descriptor, connects its session and
// opens the document, returning the container-side URI to query.
func sessionForFile(ctx context.Context, b *bridge.Bridge, hostPath string) (*registry.ClientDescriptor, *lsp.Client, string, error) {
	desc, err := b.DescriptorForPath(hostPath)
	if err != nil {
		return nil, nil, "", err
	}

	client, err := b.ClientFor(ctx, desc)
	if err != nil {
		return nil, nil, "", err
	}

	uri := desc.ToContainerURI(hostPath)

	content, err := os.ReadFile(hostPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to read %s: %w", hostPath, err)
	}

	languageID := ""
	if len(desc.LanguageIDs) > 0 {
		languageID = desc.LanguageIDs[0]
	}

	if err := client.EnsureOpen(ctx, uri, languageID, string(content)); err != nil {
		return nil, nil, "", fmt.Errorf("failed to open %s: %w", hostPath, err)
	}

	return desc, client, uri, nil
}

func positionArgs(request mcp.CallToolRequest) (string, uint32, uint32, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return "", 0, 0, err
	}

	line, err := request.RequireFloat("line")
	if err != nil {
		return "", 0, 0, err
	}

	character, err := request.RequireFloat("character")
	if err != nil {
		return "", 0, 0, err
	}

	if line < 0 || character < 0 {
		return "", 0, 0, fmt.Errorf("line and character must be non-negative")
	}

	return file, uint32(line), uint32(character), nil
}

func hoverHandler(b *bridge.Bridge) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, line, character, err := positionArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		_, client, uri, err := sessionForFile(ctx, b, file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		hover, err := client.Hover(ctx, uri, line, character)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("hover failed: %v", err)), nil
		}

		content := extractHoverContent(hover)
		if content == "" {
			return mcp.NewToolResultText("No hover information available."), nil
		}

		return mcp.NewToolResultText(content), nil
	}
}

func definitionHandler(b *bridge.Bridge) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, line, character, err := positionArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		desc, client, uri, err := sessionForFile(ctx, b, file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		locations, err := client.Definition(ctx, uri, line, character)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("definition failed: %v", err)), nil
		}

		if len(locations) == 0 {
			return mcp.NewToolResultText("No definition found."), nil
		}

		return mcp.NewToolResultText(formatLocations(desc, locations)), nil
	}
}

func referencesHandler(b *bridge.Bridge) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, line, character, err := positionArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		desc, client, uri, err := sessionForFile(ctx, b, file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		locations, err := client.References(ctx, uri, line, character, true)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("references failed: %v", err)), nil
		}

		if len(locations) == 0 {
			return mcp.NewToolResultText("No references found."), nil
		}

		return mcp.NewToolResultText(formatLocations(desc, locations)), nil
	}
}

func symbolsHandler(b *bridge.Bridge) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := request.RequireString("file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		_, client, uri, err := sessionForFile(ctx, b, file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		symbols, err := client.DocumentSymbols(ctx, uri)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("documentSymbol failed: %v", err)), nil
		}

		if len(symbols) == 0 {
			return mcp.NewToolResultText("No symbols found."), nil
		}

		var sb strings.Builder
		for _, symbol := range symbols {
			writeSymbol(&sb, symbol, 0)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func workspaceSymbolsHandler(b *bridge.Bridge) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		file, err := request.RequireString("file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		// The query spans the workspace, so the file only routes to a client;
		// no document has to be opened.
		desc, err := b.DescriptorForPath(file)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := b.ClientFor(ctx, desc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		symbols, err := client.WorkspaceSymbols(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workspace symbol failed: %v", err)), nil
		}

		if len(symbols) == 0 {
			return mcp.NewToolResultText("No symbols found."), nil
		}

		return mcp.NewToolResultText(formatSymbolInformation(desc, symbols)), nil
	}
}

func clientsHandler(b *bridge.Bridge) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := b.Registry().IDs()
		if len(ids) == 0 {
			return mcp.NewToolResultText("No language clients registered."), nil
		}

		var sb strings.Builder
		for _, id := range ids {
			desc, ok := b.Registry().Lookup(id)
			if !ok {
				continue
			}

			kind := "template"
			if desc.Owns != nil {
				kind = "docker"
			}

			fmt.Fprintf(&sb, "%s (%s, priority %d): %s\n", id, kind, desc.Priority, desc.ServerCommand)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

// formatLocations renders locations as host-side path:line:character entries,
// translating each URI back out of the container namespace.
func formatLocations(desc *registry.ClientDescriptor, locations []protocol.Location) string {
	var sb strings.Builder

	for _, loc := range locations {
		hostPath := desc.ToHostPath(string(loc.Uri))
		fmt.Fprintf(&sb, "%s:%d:%d\n", hostPath, loc.Range.Start.Line+1, loc.Range.Start.Character+1)
	}

	return sb.String()
}

// formatSymbolInformation renders workspace symbols as name plus host-side
// location, one per line.
func formatSymbolInformation(desc *registry.ClientDescriptor, symbols []protocol.SymbolInformation) string {
	var sb strings.Builder

	for _, sym := range symbols {
		hostPath := desc.ToHostPath(string(sym.Location.Uri))
		fmt.Fprintf(&sb, "%s: %s:%d:%d\n", sym.Name, hostPath, sym.Location.Range.Start.Line+1, sym.Location.Range.Start.Character+1)
	}

	return sb.String()
}

func writeSymbol(sb *strings.Builder, symbol protocol.DocumentSymbol, depth int) {
	fmt.Fprintf(sb, "%s%s (line %d)\n", strings.Repeat("  ", depth), symbol.Name, symbol.Range.Start.Line+1)

	for _, child := range symbol.Children {
		writeSymbol(sb, child, depth+1)
	}
}

// extractHoverContent flattens the hover Contents union
// (MarkupContent | MarkedString | []MarkedString) to plain text.
func extractHoverContent(hover *protocol.Hover) string {
	if hover == nil {
		return ""
	}

	switch v := hover.Contents.Value.(type) {
	case protocol.MarkupContent:
		return v.Value

	case protocol.MarkedString:
		return markedStringText(v)

	case []protocol.MarkedString:
		parts := make([]string, 0, len(v))
		for _, ms := range v {
			if text := markedStringText(ms); text != "" {
				parts = append(parts, text)
			}
		}

		return strings.Join(parts, "\n\n")

	default:
		return ""
	}
}

func markedStringText(ms protocol.MarkedString) string {
	switch v := ms.Value.(type) {
	case string:
		return v
	case protocol.MarkedStringWithLanguage:
		return fmt.Sprintf("```%s\n%s\n```", v.Language, v.Value)
	default:
		return ""
	}
}
