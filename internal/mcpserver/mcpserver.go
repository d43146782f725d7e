// Package mcpserver exposes the command engine as MCP tools so agent hosts
// can submit commands, answer clarifications and confirm destructive
// actions over the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/campushq/steward/internal/command"
	"github.com/campushq/steward/internal/engine"
	"github.com/campushq/steward/internal/repository"
)

const (
	serverName    = "steward"
	serverVersion = "0.1.0"
)

// Engine is the orchestration surface the MCP tools drive.
type Engine interface {
	SubmitCommand(ctx context.Context, req engine.Request) (command.Response, error)
	ResumeClarification(ctx context.Context, req engine.Request) (command.Response, error)
	Confirm(ctx context.Context, sessionID, token string) (command.Response, error)
	Cancel(ctx context.Context, sessionID, token string) (command.Response, error)
}

// Server hosts the MCP tool surface over a transport.
type Server struct {
	mcp    *mcp.Server
	engine Engine
	log    *slog.Logger
}

// New builds the server and registers the three tools.
func New(eng Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		mcp:    mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		engine: eng,
		log:    log,
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "submit_command",
		Description: "Submits a natural language school administration command",
	}, s.submitCommand)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "resume_clarification",
		Description: "Answers a pending clarification question in a session",
	}, s.resumeClarification)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "confirm_action",
		Description: "Confirms or cancels a pending destructive action by token",
	}, s.confirmAction)

	return s
}

// Run serves MCP over stdio until the context ends.
func (s *Server) Run(ctx context.Context) error {
	return s.serve(ctx, &mcp.StdioTransport{})
}

func (s *Server) serve(ctx context.Context, t mcp.Transport) error {
	s.log.InfoContext(ctx, "mcp server starting", "name", serverName)
	if err := s.mcp.Run(ctx, t); err != nil {
		return fmt.Errorf("mcpserver: serve: %w", err)
	}
	return nil
}

// SubmitInput is the submit_command tool input.
type SubmitInput struct {
	SessionID string   `json:"session_id,omitempty" jsonschema:"conversation identifier, minted by the engine when empty"`
	Text      string   `json:"text" jsonschema:"the natural language command"`
	Agent     string   `json:"agent,omitempty" jsonschema:"optional agent hint: fee, inventory, hr, attendance or broadcast"`
	Overwrite bool     `json:"overwrite,omitempty" jsonschema:"re-submit allowing the executor to overwrite existing data"`
	Role      string   `json:"role,omitempty" jsonschema:"caller role, carried for auditing"`
	SchoolIDs []string `json:"school_ids,omitempty" jsonschema:"school IDs the caller may see; empty means unrestricted"`
}

func (in SubmitInput) toEngine() engine.Request {
	return engine.Request{
		SessionID: in.SessionID,
		Text:      in.Text,
		AgentHint: command.Agent(in.Agent),
		Overwrite: in.Overwrite,
		Scope: repository.Scope{
			Role:         in.Role,
			Unrestricted: len(in.SchoolIDs) == 0,
			SchoolIDs:    in.SchoolIDs,
		},
	}
}

func (s *Server) submitCommand(ctx context.Context, _ *mcp.CallToolRequest, in SubmitInput) (*mcp.CallToolResult, command.Response, error) {
	if in.Agent != "" && !command.Agent(in.Agent).IsValid() {
		return nil, command.Response{}, fmt.Errorf("unknown agent %q", in.Agent)
	}

	resp, err := s.engine.SubmitCommand(ctx, in.toEngine())
	if err != nil {
		return nil, command.Response{}, fmt.Errorf("submit command: %w", err)
	}
	return nil, resp, nil
}

// ResumeInput is the resume_clarification tool input.
type ResumeInput struct {
	SessionID string `json:"session_id" jsonschema:"session holding the pending clarification"`
	Reply     string `json:"reply" jsonschema:"the answer: an option number or free text"`
}

func (s *Server) resumeClarification(ctx context.Context, _ *mcp.CallToolRequest, in ResumeInput) (*mcp.CallToolResult, command.Response, error) {
	if in.SessionID == "" {
		return nil, command.Response{}, fmt.Errorf("session_id is required")
	}

	resp, err := s.engine.ResumeClarification(ctx, engine.Request{
		SessionID: in.SessionID,
		Text:      in.Reply,
		Scope:     repository.Scope{Unrestricted: true},
	})
	if err != nil {
		return nil, command.Response{}, fmt.Errorf("resume clarification: %w", err)
	}
	return nil, resp, nil
}

// ConfirmInput is the confirm_action tool input.
type ConfirmInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session the confirmation belongs to"`
	Token     string `json:"token" jsonschema:"the one-time confirmation token"`
	Cancel    bool   `json:"cancel,omitempty" jsonschema:"cancel the pending action instead of confirming it"`
}

func (s *Server) confirmAction(ctx context.Context, _ *mcp.CallToolRequest, in ConfirmInput) (*mcp.CallToolResult, command.Response, error) {
	call := s.engine.Confirm
	if in.Cancel {
		call = s.engine.Cancel
	}

	resp, err := call(ctx, in.SessionID, in.Token)
	if err != nil {
		return nil, command.Response{}, fmt.Errorf("confirm action: %w", err)
	}
	return nil, resp, nil
}
