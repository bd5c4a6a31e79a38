package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/config"
	mcp_internal "github.com/KaramelBytes/insightloom/internal/mcp"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

type recordingProcessor struct {
	query  string
	user   pipeline.UserContext
	result *pipeline.Result
}

func (r *recordingProcessor) ProcessQuery(_ context.Context, query string, user pipeline.UserContext) *pipeline.Result {
	r.query, r.user = query, user
	return r.result
}

func call(t *testing.T, proc mcp_internal.Processor, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	users := &config.Global{Server: config.Server{Users: []config.User{
		{FullName: "Dana Analyst", Department: "Sales", Role: "Manager", Email: "dana@example.com"},
	}}}
	s := mcp_internal.NewMCPServer(proc, users, "test")
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "tool failures are reported in the result, not as errors")
	return res
}

func TestProcessQueryResolvesUser(t *testing.T) {
	proc := &recordingProcessor{result: &pipeline.Result{Status: pipeline.StatusCompleted, Query: "Q3 sales", Report: "done"}}
	res := call(t, proc, "process_query", map[string]any{"query": "Q3 sales", "user_email": "DANA@example.com"})

	assert.False(t, res.IsError)
	assert.Equal(t, "Q3 sales", proc.query)
	assert.Equal(t, pipeline.UserContext{FullName: "Dana Analyst", Department: "Sales", Role: "Manager", Email: "dana@example.com"}, proc.user)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &body))
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "done", body["report"])
}

func TestProcessQueryUnknownEmail(t *testing.T) {
	proc := &recordingProcessor{result: &pipeline.Result{Status: pipeline.StatusCompleted}}
	call(t, proc, "process_query", map[string]any{"query": "x", "user_email": "who@example.com"})
	assert.Equal(t, pipeline.UserContext{Email: "who@example.com"}, proc.user)
}

func TestProcessQueryValidation(t *testing.T) {
	proc := &recordingProcessor{}
	res := call(t, proc, "process_query", map[string]any{"query": "   "})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "query is required")
	assert.Empty(t, proc.query)
}

func TestProcessQueryErrorStatus(t *testing.T) {
	proc := &recordingProcessor{result: &pipeline.Result{Status: pipeline.StatusError, Error: "fetch failed"}}
	res := call(t, proc, "process_query", map[string]any{"query": "x"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "fetch failed")
}

func TestListDataSources(t *testing.T) {
	res := call(t, &recordingProcessor{}, "list_data_sources", nil)
	var out []map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &out))
	require.Len(t, out, 6)
	assert.Equal(t, map[string]string{"source": "erp_sales", "table": "sales_transactions"}, out[0])
}
