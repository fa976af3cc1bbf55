// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes hagal tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hagal/internal/apperr"
	"github.com/starford/hagal/internal/doctor"
	"github.com/starford/hagal/internal/noteservice"
	"github.com/starford/hagal/internal/workspace"
)

const noteFormatURI = "hagal://note-format"

// Server wraps the MCP server with hagal tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all hagal tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"hagal",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_vaults",
		mcp.WithDescription("List the vaults of the workspace in declaration order."),
	), s.listVaults)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List indexed notes, optionally restricted to one vault."),
		mcp.WithString("vault", mcp.Description("Optional vault name (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note address as vault/fname or dendron://vault/fname")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note address as vault/fname")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("find_broken_links",
		mcp.WithDescription("List every wiki link whose target note does not exist."),
	), s.findBrokenLinks)

	s.mcp.AddTool(mcp.NewTool("run_doctor",
		mcp.WithDescription("Check the workspace for consistency problems and optionally repair them. "+
			"Without confirm only the plan is returned and nothing is written."),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum(doctor.ActionNames...),
			mcp.Description("Doctor action to run")),
		mcp.WithString("scope", mcp.Enum("workspace", "file"), mcp.Description("Scope (default workspace)")),
		mcp.WithString("note", mcp.Description("Designated note for file scope, as vault/fname")),
		mcp.WithArray("installed", mcp.WithStringItems(),
			mcp.Description("Installed editor extension ids, for find-incompatible-extensions")),
		mcp.WithBoolean("confirm", mcp.Description("Apply the plan instead of previewing it")),
	), s.runDoctor)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note format contract: header fields, identifiers and wiki-link syntax."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Header and wiki-link conventions every note follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listVaults(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Vaults(ctx))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListNotes(ctx, req.GetString("vault", ""), 500, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	addr, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, ok := workspace.ParseRef(addr)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("bad note address: %s", addr)), nil
	}
	note, err := s.svc.GetNote(ctx, ref)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", addr)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	addr, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, ok := workspace.ParseRef(addr)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("bad note address: %s", addr)), nil
	}
	bl, err := s.svc.Backlinks(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, len(bl))
	for i, r := range bl {
		lines[i] = r.Vault + "/" + r.Fname
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) findBrokenLinks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	broken, err := s.svc.BrokenLinks(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(broken) == 0 {
		return mcp.NewToolResultText("no broken links"), nil
	}
	lines := make([]string, len(broken))
	for i, b := range broken {
		lines[i] = b.From.Vault + "/" + b.From.Fname + " -> " + b.To.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) runDoctor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.svc.RunDoctor(ctx, noteservice.DoctorRequest{
		Action:    action,
		Scope:     req.GetString("scope", ""),
		Note:      req.GetString("note", ""),
		Installed: req.GetStringSlice("installed", nil),
		Confirm:   req.GetBool("confirm", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
