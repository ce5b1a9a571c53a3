package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the story graph.
const GraphURI = "storyline://graph"

// DefaultPlayer is used when a tool call names no player.
const DefaultPlayer = "mcp"

// ToolResponse is the structured result of every tool.
type ToolResponse struct {
	Player  string                `json:"player" jsonschema_description:"The player the call applied to"`
	Frame   *domain.Frame         `json:"frame,omitempty" jsonschema_description:"What should be displayed now"`
	History []domain.HistoryEntry `json:"history,omitempty" jsonschema_description:"The transcript so far"`
	Save    *domain.SaveRecord    `json:"save,omitempty" jsonschema_description:"The record written by save_slot"`
	Jumps   []string              `json:"jumps,omitempty" jsonschema_description:"Recent jump targets, most recent first"`
}

// Server exposes a session.Manager as an MCP server.
type Server struct {
	manager   *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for save timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(m *session.Manager, version string, opts ...Option) *Server {
	s := &Server{
		manager:   m,
		mcpServer: server.NewMCPServer("storyline-mcp", version),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx
// is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func playerOption() mcp.ToolOption {
	return mcp.WithString("player", mcp.Description("Player id (defaults to \""+DefaultPlayer+"\")"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a story from its first node, replacing the player's current session."),
		playerOption(),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("view",
		mcp.WithDescription("Show the current frame: the dialog line, or the question and its choices."),
		playerOption(),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleView))

	s.mcpServer.AddTool(mcp.NewTool("next_line",
		mcp.WithDescription("Advance to the next dialog line. Only valid while a dialog line is shown."),
		playerOption(),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleNextLine))

	s.mcpServer.AddTool(mcp.NewTool("select_choice",
		mcp.WithDescription("Pick a choice by its 0-based index. Only valid while a choice is shown."),
		playerOption(),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("0-based choice index")),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleSelectChoice))

	s.mcpServer.AddTool(mcp.NewTool("rewind",
		mcp.WithDescription("Go back to the most recent choice made."),
		playerOption(),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleRewind))

	s.mcpServer.AddTool(mcp.NewTool("jump",
		mcp.WithDescription("Move to any node by id, for debugging a story. Rewind history is kept."),
		playerOption(),
		mcp.WithString("node", mcp.Required(), mcp.Description("Target node id")),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleJump))

	s.mcpServer.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Return the transcript of lines shown and choices made."),
		playerOption(),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleHistory))

	s.mcpServer.AddTool(mcp.NewTool("save_slot",
		mcp.WithDescription("Save the player's session into a numbered slot."),
		playerOption(),
		mcp.WithNumber("slot", mcp.Required(), mcp.Description("0-based slot number")),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleSaveSlot))

	s.mcpServer.AddTool(mcp.NewTool("load_slot",
		mcp.WithDescription("Restore the player's session from a numbered slot."),
		playerOption(),
		mcp.WithNumber("slot", mcp.Required(), mcp.Description("0-based slot number")),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleLoadSlot))
}

func playerArg(args map[string]interface{}) string {
	if p, ok := args["player"].(string); ok && p != "" {
		return p
	}
	return DefaultPlayer
}

// intArg reads a whole-number argument. JSON numbers arrive as float64.
func intArg(args map[string]interface{}, name string) (int, error) {
	switch v := args[name].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be a whole number, got %v", name, v)
		}
		return int(v), nil
	case int:
		return v, nil
	case nil:
		return 0, fmt.Errorf("%s is required", name)
	}
	return 0, fmt.Errorf("%s must be a number", name)
}

func (s *Server) frame(player string, f domain.Frame) ToolResponse {
	return ToolResponse{Player: player, Frame: &f}
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	player := playerArg(args)
	f, err := s.manager.Start(ctx, player)
	if err != nil {
		return ToolResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return s.frame(player, f), nil
}

func (s *Server) handleView(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	player := playerArg(args)
	f, err := s.manager.View(ctx, player)
	if err != nil {
		return ToolResponse{}, fmt.Errorf("view failed: %w", err)
	}
	return s.frame(player, f), nil
}

// result converts a transition outcome. An engine error is returned as the
// tool error.
func (s *Server) result(player, name string, f domain.Frame, err error) (ToolResponse, error) {
	if err != nil {
		s.logger.Warn("MCP: transition rejected", "tool", name, "player", player, "error", err)
		return ToolResponse{}, fmt.Errorf("%s failed: %w", name, err)
	}
	return s.frame(player, f), nil
}

func (s *Server) handleNextLine(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	player := playerArg(args)
	f, err := s.manager.Next(ctx, player)
	return s.result(player, "next_line", f, err)
}

func (s *Server) handleSelectChoice(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	index, err := intArg(args, "index")
	if err != nil {
		return ToolResponse{}, err
	}
	player := playerArg(args)
	f, err := s.manager.Choose(ctx, player, index)
	return s.result(player, "select_choice", f, err)
}

func (s *Server) handleRewind(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	player := playerArg(args)
	f, err := s.manager.Rewind(ctx, player)
	return s.result(player, "rewind", f, err)
}

func (s *Server) handleJump(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	node, _ := args["node"].(string)
	if node == "" {
		return ToolResponse{}, fmt.Errorf("node is required")
	}
	player := playerArg(args)
	f, err := s.manager.Jump(ctx, player, node)
	resp, err := s.result(player, "jump", f, err)
	if err != nil {
		return resp, err
	}
	resp.Jumps, err = s.manager.Jumps(ctx, player)
	return resp, err
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	player := playerArg(args)
	history, err := s.manager.History(ctx, player)
	if err != nil {
		return ToolResponse{}, fmt.Errorf("history failed: %w", err)
	}
	return ToolResponse{Player: player, History: history}, nil
}

func (s *Server) handleSaveSlot(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	slot, err := intArg(args, "slot")
	if err != nil {
		return ToolResponse{}, err
	}
	player := playerArg(args)
	rec, err := s.manager.SaveSlot(ctx, player, slot, s.now())
	if err != nil {
		return ToolResponse{}, fmt.Errorf("save_slot failed: %w", err)
	}
	return ToolResponse{Player: player, Save: &rec}, nil
}

func (s *Server) handleLoadSlot(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
	slot, err := intArg(args, "slot")
	if err != nil {
		return ToolResponse{}, err
	}
	player := playerArg(args)
	f, err := s.manager.LoadSlot(ctx, player, slot)
	if err != nil {
		return ToolResponse{}, fmt.Errorf("load_slot failed: %w", err)
	}
	return s.frame(player, f), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Story Graph",
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.manager.Graph().Nodes())
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
