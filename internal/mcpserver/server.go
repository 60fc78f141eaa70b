// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/origincreativegroup/folio/internal/projectservice"
	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/studio"
)

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp *server.MCPServer
	svc *projectservice.Service
	dir *studio.Dir
}

// New creates a new MCP server with all Folio tools registered.
func New(svc *projectservice.Service, dir *studio.Dir) *Server {
	s := &Server{svc: svc, dir: dir}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List cataloged portfolio projects with optional filtering."),
		mcp.WithString("query", mcp.Description("Match against title, summary, organization or folder")),
		mcp.WithString("status", mcp.Description("Filter by sync status (clean or fs_updated)")),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Get the full catalog record of one project, including assets and deliverables."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Project folder name under the studio root")),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("read_narrative",
		mcp.WithDescription("Read the Markdown narrative (case study) of a project."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Project folder name")),
	), s.readNarrative)

	s.mcp.AddTool(mcp.NewTool("sync_project",
		mcp.WithDescription("Rescan one project folder on disk and reconcile the catalog with it."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Project folder name")),
	), s.syncProject)

	s.mcp.AddTool(mcp.NewTool("sync_all",
		mcp.WithDescription("Sweep every project folder in the studio and reconcile the catalog."),
	), s.syncAll)

	s.mcp.AddTool(mcp.NewTool("add_asset",
		mcp.WithDescription("Download a file from a URL (or decode a base64 data URI) and place it "+
			"in a project's asset directory, then resync the project. The layout contract "+
			"(get_layout_contract tool or the folio://project-layout resource) explains where "+
			"assets live inside a project folder."),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Project folder name")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the file")),
		mcp.WithString("filename", mcp.Description("Optional target filename (derived from the URL when omitted)")),
	), s.addAsset)

	s.mcp.AddTool(mcp.NewTool("get_layout_contract",
		mcp.WithDescription("Returns the canonical Folio project layout contract. "+
			"Call this before creating project folders or placing files in them."),
	), s.getLayoutContract)

	// Resource: project layout contract.
	s.mcp.AddResource(
		mcp.NewResource("folio://project-layout", "Project Layout Contract",
			mcp.WithResourceDescription("Canonical on-disk layout that all project folders follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
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

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := store.ListOptions{}
	if q, err := req.RequireString("query"); err == nil {
		opts.Query = q
	}
	if status, err := req.RequireString("status"); err == nil {
		opts.Status = status
	}

	items, total, err := s.svc.List(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"projects": items,
		"total":    total,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, folder)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", folder)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNarrative(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, folder)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", folder)), nil
	}
	if detail.NarrativePath == "" {
		return mcp.NewToolResultError(fmt.Sprintf("project has no narrative: %s", folder)), nil
	}
	return mcp.NewToolResultText(detail.Narrative), nil
}

func (s *Server) syncProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := req.RequireString("folder")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Sync(ctx, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.svc.SyncAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLayoutContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayoutContract), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "folio://project-layout",
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}
