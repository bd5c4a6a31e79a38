// Package mcp exposes the report pipeline as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/KaramelBytes/insightloom/internal/config"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

// Processor runs one natural-language query.
type Processor interface {
	ProcessQuery(ctx context.Context, query string, user pipeline.UserContext) *pipeline.Result
}

// Directory resolves the optional user_email argument.
type Directory interface {
	UserByEmail(email string) (config.User, bool)
}

// NewMCPServer configures the server without starting it.
func NewMCPServer(proc Processor, users Directory, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"InsightLoom Report Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{proc: proc, users: users}

	s.AddTool(mcp.NewTool("process_query",
		mcp.WithDescription("Turn a natural-language business question into a report: parsed request, approval workflow, aggregates, anomalies, insights, forecasts and narrative."),
		mcp.WithString("query", mcp.Description("The business question, e.g. 'Show me Q3 sales performance'."), mcp.Required()),
		mcp.WithString("user_email", mcp.Description("Email of the requesting user; enriches the prompts with role and department.")),
	), h.handleProcessQuery)

	s.AddTool(mcp.NewTool("list_data_sources",
		mcp.WithDescription("List the data source keys a query can draw from and the table each one maps to."),
	), h.handleListSources)

	return s
}

// StartMCPServer serves on stdin/stdout until the client disconnects.
func StartMCPServer(_ context.Context, proc Processor, users Directory, version string) error {
	return server.ServeStdio(NewMCPServer(proc, users, version))
}
