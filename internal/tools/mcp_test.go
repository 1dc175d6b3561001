package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcResponse struct {
	Result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, s *Server, request string) rpcResponse {
	t.Helper()
	msg := s.mcp.HandleMessage(context.Background(), json.RawMessage(request))
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp
}

func serverFor(t *testing.T, path string) *Server {
	t.Helper()
	s, err := NewServer(registryFor(t, path), "amplenote-test", "0.0.0", nil)
	require.NoError(t, err)
	call(t, s, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)
	return s
}

func TestServer_ListTools(t *testing.T) {
	s := serverFor(t, fixture(t).Path)

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	require.Nil(t, resp.Error)
	var names []string
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, toolNames, names)
}

func TestServer_CallTool(t *testing.T) {
	s := serverFor(t, fixture(t).Path)

	resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list_notes","arguments":{"limit":1}}}`)
	require.Nil(t, resp.Error)
	require.False(t, resp.Result.IsError)
	require.Len(t, resp.Result.Content, 1)
	require.JSONEq(t, `[{"remote_uuid":"r-a","local_uuid":"A","name":"Alpha"}]`, resp.Result.Content[0].Text)

	resp = call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_note_by_uuid","arguments":{"uuid":"missing"}}}`)
	require.Nil(t, resp.Error)
	require.Equal(t, "null", resp.Result.Content[0].Text)
}

func TestServer_ErrorChannels(t *testing.T) {
	s := serverFor(t, fixture(t).Path)

	resp := call(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"list_tasks","arguments":{"limit":0}}}`)
	require.Nil(t, resp.Error)
	require.True(t, resp.Result.IsError)
	require.Contains(t, resp.Result.Content[0].Text, "invalid query")

	missing := serverFor(t, filepath.Join(t.TempDir(), "missing.db"))
	resp = call(t, missing, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"list_notes","arguments":{}}}`)
	require.NotNil(t, resp.Error, "an unavailable cache fails the request")
}
