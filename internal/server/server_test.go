package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

// runSession feeds newline-delimited requests through a server and returns
// the decoded responses in order.
func runSession(t *testing.T, requests ...string) []mcp.Response {
	t.Helper()

	var out bytes.Buffer
	srv := New(strings.NewReader(strings.Join(requests, "\n")+"\n"), &out, log.New(io.Discard))
	require.NoError(t, srv.Run(context.Background()))

	var responses []mcp.Response
	sc := bufio.NewScanner(&out)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for sc.Scan() {
		var resp mcp.Response
		require.NoError(t, json.Unmarshal(sc.Bytes(), &resp))
		responses = append(responses, resp)
	}
	require.NoError(t, sc.Err())
	return responses
}

func TestInitializeHandshake(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
	)
	require.Len(t, responses, 1, "notifications must not produce responses")

	var result mcp.InitializeResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Equal(t, "2024-11-05", result.ProtocolVersion)
	require.Equal(t, "mcp-atlas", result.ServerInfo.Name)
	require.NotNil(t, result.Capabilities.Tools)
	require.Contains(t, result.Instructions, "search_tools")
	require.Contains(t, result.Instructions, "confluence")
	require.Contains(t, result.Instructions, "jira")
}

func TestListToolsReturnsCatalog(t *testing.T) {
	responses := runSession(t, `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result mcp.ListToolsResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.NotEmpty(t, result.Tools)

	names := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		require.NotEmpty(t, tool.Description, "tool %s has no description", tool.Name)
		require.NotEmpty(t, tool.InputSchema, "tool %s has no schema", tool.Name)
		names[tool.Name] = true
	}
	for _, want := range []string{
		"search_tools",
		"confluence_search_content",
		"jira_download_and_ingest_issue_attachments",
		"ingest_history",
	} {
		require.True(t, names[want], "tools/list missing %s", want)
	}
}

func TestCallToolDispatches(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search_tools","arguments":{"query":"download"}}}`,
	)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result mcp.CallToolResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)
	require.Contains(t, result.Content[0].Text, "download")
}

func TestCallToolUnknownName(t *testing.T) {
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`,
	)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	require.Equal(t, mcp.InvalidParams, responses[0].Error.Code)
	require.Contains(t, responses[0].Error.Message, "no_such_tool")
}

func TestCallToolBadArgumentsIsErrorResult(t *testing.T) {
	// Schema violations come back as tool error results, not protocol
	// errors.
	responses := runSession(t,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"describe_tool","arguments":{}}}`,
	)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result mcp.CallToolResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.True(t, result.IsError)
}

func TestUnknownMethod(t *testing.T) {
	responses := runSession(t, `{"jsonrpc":"2.0","id":5,"method":"resources/list"}`)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	require.Equal(t, mcp.MethodNotFound, responses[0].Error.Code)
}

func TestPing(t *testing.T) {
	responses := runSession(t, `{"jsonrpc":"2.0","id":6,"method":"ping"}`)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
	require.JSONEq(t, `{}`, string(responses[0].Result))
}

func TestMalformedLineIsSkipped(t *testing.T) {
	responses := runSession(t,
		`this is not json`,
		`{"jsonrpc":"2.0","id":8,"method":"ping"}`,
	)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
}
