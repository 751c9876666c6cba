// Package bridge turns tool calls into remote calls against the FreeCAD
// control surface and renders the results as MCP tool responses. All
// failures are reported in-band as text content; the executors never leak
// transport errors to the MCP layer.
package bridge

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/naicud/freecad-mcp/internal/freecad"
)

// ConnectionSource yields the shared control connection.
type ConnectionSource interface {
	Acquire(ctx context.Context) (freecad.ControlSurface, error)
}

// Dispatcher carries the per-process dispatch state: the connection source
// and the feedback mode. It is passed to every tool handler explicitly
// rather than living in package globals.
type Dispatcher struct {
	Conns ConnectionSource

	// TextOnly disables image feedback entirely; callers that opted in
	// get no substitute notice either.
	TextOnly bool
}

// New creates a Dispatcher.
func New(conns ConnectionSource, textOnly bool) *Dispatcher {
	return &Dispatcher{Conns: conns, TextOnly: textOnly}
}

// Command describes one state-mutating tool call. The executors interpret
// Commands uniformly; tools only declare data.
type Command struct {
	// Action names the operation for messages and logs, e.g. "create document".
	Action string

	// Call performs the remote operation.
	Call func(ctx context.Context, fc freecad.ControlSurface) (*freecad.Result, error)

	// OnSuccess and OnFailure render the user-facing message. Either may
	// be nil; a nil or panicking formatter falls back to the generic
	// templates. Formatting is best-effort, never load-bearing.
	OnSuccess func(*freecad.Result) string
	OnFailure func(*freecad.Result) string

	// Screenshot requests visual feedback reflecting post-operation state.
	Screenshot bool

	// View selects the rendered view; empty means the default view.
	View string
}

// Query describes one read-only tool call. There is no success/failure
// branch: whatever the remote returns is formatted uniformly.
type Query struct {
	Action string

	// Call performs the remote read.
	Call func(ctx context.Context, fc freecad.ControlSurface) (interface{}, error)

	// Format serializes the result. A nil Format falls back to JSON. A
	// Format error (or panic) fails the whole query call; reads have no
	// success notion to fall back on.
	Format func(interface{}) (string, error)

	Screenshot bool
	View       string
}

// textContent builds a single MCP text item.
func textContent(text string) mcp.TextContent {
	return mcp.TextContent{Type: "text", Text: text}
}

// failure builds the uniform in-band failure response.
func failure(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{textContent(text)},
		IsError: true,
	}
}
