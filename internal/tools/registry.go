// Package tools exposes the cache operations as named tools with JSON-schema
// inputs, and bridges them onto an MCP server.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Spec describes a tool to a host.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// Tool is one invocable operation. Execute returns a value to be encoded as
// JSON. A *ToolError reports a problem with the call itself; any other error
// means the host should treat the call as failed at the protocol level.
type Tool interface {
	Name() string
	Spec() Spec
	Execute(ctx context.Context, input json.RawMessage) (any, error)
}

// ToolError is a tool-level failure the caller can correct.
type ToolError struct {
	Message string `json:"error"`
	Suggest string `json:"suggest,omitempty"`
}

func (e *ToolError) Error() string {
	if e == nil || e.Message == "" {
		return "unknown tool error"
	}
	return e.Message
}

// NewToolError creates a ToolError.
func NewToolError(message, suggest string) *ToolError {
	return &ToolError{Message: message, Suggest: suggest}
}

// Registry holds tools by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Tool{}}
}

// Register adds tool. Nil tools, empty names and duplicates are rejected.
func (r *Registry) Register(tool Tool) error {
	if r == nil {
		return errors.New("registry is nil")
	}
	if tool == nil {
		return errors.New("tool is nil")
	}
	name := strings.TrimSpace(tool.Name())
	if name == "" {
		return errors.New("tool name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.byName[name] = tool
	return nil
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[name]
	return tool, ok
}

// Specs returns every tool's spec sorted by name.
func (r *Registry) Specs() []Spec {
	if r == nil {
		return []Spec{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Spec, 0, len(names))
	for _, name := range names {
		out = append(out, r.byName[name].Spec())
	}
	return out
}

// Execute runs the named tool. An unknown name is a ToolError.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, NewToolError(fmt.Sprintf("unknown tool %q", name), "list the available tools and retry with one of their names")
	}
	return tool.Execute(ctx, input)
}
