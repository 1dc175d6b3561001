package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type echoTool struct{ name string }

func (e echoTool) Name() string { return e.name }
func (e echoTool) Spec() Spec   { return Spec{Name: e.name, InputSchema: object(map[string]any{})} }
func (e echoTool) Execute(_ context.Context, input json.RawMessage) (any, error) {
	return string(input), nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool{name: "b"}))
	require.NoError(t, r.Register(echoTool{name: "a"}))

	require.ErrorContains(t, r.Register(nil), "nil")
	require.ErrorContains(t, r.Register(echoTool{name: "  "}), "name is required")
	require.ErrorContains(t, r.Register(echoTool{name: "a"}), "already registered")

	var nilRegistry *Registry
	require.Error(t, nilRegistry.Register(echoTool{name: "x"}))
	require.Empty(t, nilRegistry.Specs())
}

func TestRegistry_SpecsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(echoTool{name: name}))
	}

	var names []string
	for _, spec := range r.Specs() {
		names = append(names, spec.Name)
	}
	require.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool{name: "echo"}))

	out, err := r.Execute(context.Background(), " echo ", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, out)

	_, err = r.Execute(context.Background(), "missing", nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Contains(t, toolErr.Message, "missing")
}

func TestToolError_Error(t *testing.T) {
	var nilErr *ToolError
	require.Equal(t, "unknown tool error", nilErr.Error())
	require.Equal(t, "bad limit", NewToolError("bad limit", "").Error())
}
