// Package mcp exposes the translator and the document store as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/render"
	"github.com/rendis/mermaidsync/internal/session"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/internal/validation"
)

// ServerDeps holds the dependencies for creating a Server. Tools whose
// collaborator is missing answer with a tool error.
type ServerDeps struct {
	Sessions  *session.Manager
	Store     store.Store
	Renderer  render.Renderer
	Layouter  layout.Layouter
	Validator validation.Validator
	Logger    *slog.Logger
	// Version is reported to clients during initialisation.
	Version string
}

// Server wraps an MCP server with the mermaidsync tool handlers.
type Server struct {
	sessions  *session.Manager
	store     store.Store
	renderer  render.Renderer
	layouter  layout.Layouter
	validator validation.Validator
	logger    *slog.Logger
	watchers  *WatchRegistry
	mcpServer *server.MCPServer
}

// NewServer creates a new Server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		sessions:  deps.Sessions,
		store:     deps.Store,
		renderer:  deps.Renderer,
		layouter:  deps.Layouter,
		validator: deps.Validator,
		logger:    logger,
		watchers:  NewWatchRegistry(),
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, cs server.ClientSession) {
		s.watchers.Remove(cs.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"mermaidsync",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("mermaidsync translates between a structured diagram model and Mermaid text. Use mermaid.detect, mermaid.parse and mermaid.generate for stateless conversion, mermaid.render for a preview, and the document.* tools to save, load, list, query and delete stored diagrams."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Watchers returns the registry of clients following documents.
func (s *Server) Watchers() *WatchRegistry {
	return s.watchers
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: detectTool(), Handler: s.handleDetect},
		{Tool: parseTool(), Handler: s.handleParse},
		{Tool: generateTool(), Handler: s.handleGenerate},
		{Tool: renderTool(), Handler: s.handleRender},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: loadTool(), Handler: s.handleLoad},
		{Tool: listTool(), Handler: s.handleList},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: deleteTool(), Handler: s.handleDelete},
		{Tool: historyTool(), Handler: s.handleHistory},
	}
}

// --- Tool definitions ---

func detectTool() mcp.Tool {
	return mcp.NewTool("mermaid.detect",
		mcp.WithDescription("Detect the diagram type of Mermaid text"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Mermaid source")),
	)
}

func parseTool() mcp.Tool {
	return mcp.NewTool("mermaid.parse",
		mcp.WithDescription("Parse Mermaid text into the diagram model"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Mermaid source")),
		mcp.WithString("type",
			mcp.Enum("flowchart", "sequenceDiagram", "classDiagram", "erDiagram", "gantt", "journey"),
			mcp.Description("Force a grammar instead of detecting it from the header"),
		),
		mcp.WithBoolean("layout", mcp.Description("Assign geometry to every element (default: false)")),
		mcp.WithBoolean("validate", mcp.Description("Include validation issues (default: true)")),
	)
}

func generateTool() mcp.Tool {
	return mcp.NewTool("mermaid.generate",
		mcp.WithDescription("Generate Mermaid text from a diagram model"),
		mcp.WithObject("document", mcp.Required(), mcp.Description("Diagram model (type, nodes, edges, actors, messages, ...)")),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool("mermaid.render",
		mcp.WithDescription("Render Mermaid text to a preview. Returns SVG or text inline and PNG as an image"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Mermaid source")),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("document.save",
		mcp.WithDescription("Save a diagram from Mermaid text or a model. Creates a document unless id is given"),
		mcp.WithString("id", mcp.Description("Existing document ID to update")),
		mcp.WithString("name", mcp.Description("Document name")),
		mcp.WithString("source", mcp.Description("Mermaid source to store")),
		mcp.WithObject("document", mcp.Description("Diagram model to store (used when source is empty)")),
		mcp.WithString("type",
			mcp.Enum("flowchart", "sequenceDiagram", "classDiagram", "erDiagram", "gantt", "journey"),
			mcp.Description("Diagram type of a new empty document"),
		),
	)
}

func loadTool() mcp.Tool {
	return mcp.NewTool("document.load",
		mcp.WithDescription("Load a stored document with its generated Mermaid source"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithBoolean("watch", mcp.Description("Receive notifications when the document's preview changes")),
	)
}

func listTool() mcp.Tool {
	return mcp.NewTool("document.list",
		mcp.WithDescription("List stored documents, most recently updated first"),
		mcp.WithObject("filter", mcp.Description("Filter criteria (type, name, since, limit, offset)")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("document.query",
		mcp.WithDescription("Select elements of a document with a CEL or expr predicate, or run a jq program over it"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("Predicate over el and kind, or a jq program")),
		mcp.WithString("engine",
			mcp.Enum("cel", "expr", "jq"),
			mcp.Description("Expression engine (default: cel)"),
		),
	)
}

func deleteTool() mcp.Tool {
	return mcp.NewTool("document.delete",
		mcp.WithDescription("Delete a stored document and its revision history"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
	)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("document.history",
		mcp.WithDescription("List the saved source revisions of a document, oldest first"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
	)
}
