package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

type toolHandler struct {
	proc  Processor
	users Directory
}

func (h *toolHandler) handleProcessQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(request.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	var user pipeline.UserContext
	if email := strings.TrimSpace(request.GetString("user_email", "")); email != "" {
		user.Email = email
		if h.users != nil {
			if u, ok := h.users.UserByEmail(email); ok {
				user = pipeline.UserContext{FullName: u.FullName, Department: u.Department, Role: u.Role, Email: u.Email}
			}
		}
	}

	res := h.proc.ProcessQuery(ctx, query, user)
	jsonData, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result failed: %v", err)), nil
	}
	if res.Status == pipeline.StatusError {
		r := mcp.NewToolResultText(string(jsonData))
		r.IsError = true
		return r, nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListSources(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type source struct {
		Key   string `json:"source"`
		Table string `json:"table"`
	}
	var out []source
	for _, key := range gateway.SourceKeys() {
		k, _ := gateway.KindForSource(key)
		out = append(out, source{Key: key, Table: k.String()})
	}
	jsonData, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
