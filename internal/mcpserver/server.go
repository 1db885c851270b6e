// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Smark post tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/postservice"
)

// PostFormatURI is the resource holding PostFormatContract.
const PostFormatURI = "smark://post-format"

// Server wraps the MCP server with Smark tools.
type Server struct {
	mcp *server.MCPServer
	svc *postservice.Service
}

// New creates a new MCP server with all Smark tools registered.
func New(svc *postservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Smark",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post titles, descriptions and bodies. "+
			"Supports field:value clauses, quoted phrases and +/- operators."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 10)")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Read a post by its uuid, including the Markdown body."),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("Post uuid")),
	), s.getPost)

	s.mcp.AddTool(mcp.NewTool("get_post_by_slug",
		mcp.WithDescription("Read a post by language and slug (the file name without .md)."),
		mcp.WithString("lang", mcp.Required(), mcp.Description("Language code"), mcp.Enum("ja", "en")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug")),
	), s.getPostBySlug)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts, optionally filtered by language, category and tag."),
		mcp.WithString("lang", mcp.Description("Language code"), mcp.Enum("ja", "en")),
		mcp.WithString("category", mcp.Description("Exact category")),
		mcp.WithString("tag", mcp.Description("Exact tag")),
		mcp.WithString("order_by", mcp.Description("Date field to sort by, newest first"),
			mcp.Enum("created_at", "updated_at")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithNumber("limit", mcp.Description("Page size (0 for all)")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("list_facets",
		mcp.WithDescription("List the distinct tags and categories used by posts."),
	), s.listFacets)

	s.mcp.AddTool(mcp.NewTool("get_post_format",
		mcp.WithDescription("Returns the Smark post file format: front matter keys, "+
			"date notations and file layout."),
	), s.getPostFormat)

	s.mcp.AddResource(
		mcp.NewResource(PostFormatURI, "Post Format Contract",
			mcp.WithResourceDescription("Markdown post file format understood by the indexer."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
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

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", postservice.DefaultSearchLimit)
	results, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(results)
}

func (s *Server) getPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, err := req.RequireString("uuid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetPost(ctx, uuid)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(p)
}

func (s *Server) getPostBySlug(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("lang")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetPostBySlug(ctx, code, slug)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(p)
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.ListPosts(ctx, postservice.ListParams{
		Lang:     req.GetString("lang", ""),
		Category: req.GetString("category", ""),
		Tag:      req.GetString("tag", ""),
		OrderBy:  req.GetString("order_by", ""),
		Offset:   req.GetInt("offset", 0),
		Limit:    req.GetInt("limit", 0),
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(res)
}

func (s *Server) listFacets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := s.svc.Facets(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(f)
}

func (s *Server) getPostFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PostFormatURI,
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}

// toolError reports caller mistakes as tool errors and everything else as a
// protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidInput) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}
