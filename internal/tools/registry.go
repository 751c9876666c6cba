// Package tools defines the MCP tools exposed for the FreeCAD control
// surface and the registry used for health and documentation introspection.
package tools

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Entry pairs a tool definition with its handler and introspection
// metadata.
type Entry struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc

	// Tags classify the tool for documentation (e.g. "document", "view").
	Tags []string

	// OutputSchema optionally describes the tool's result payload.
	OutputSchema map[string]interface{}
}

// Summary is the read-only description of a registered tool.
type Summary struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Tags        []string               `json:"tags,omitempty"`
	Parameters  mcp.ToolInputSchema    `json:"parameters"`
	Output      map[string]interface{} `json:"output,omitempty"`
}

// Registry holds the registered tools.
type Registry struct {
	entries []Entry
}

// Add appends an entry to the registry.
func (r *Registry) Add(e Entry) {
	r.entries = append(r.entries, e)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Register adds every tool to the MCP server.
func (r *Registry) Register(s *server.MCPServer) {
	for _, e := range r.entries {
		s.AddTool(e.Tool, e.Handler)
	}
}

// Summaries derives the introspection view, sorted by name for
// determinism. It is recomputed on every call; the registry is small and
// callers must never observe a half-updated cache.
func (r *Registry) Summaries() []Summary {
	summaries := make([]Summary, 0, len(r.entries))
	for _, e := range r.entries {
		summaries = append(summaries, Summary{
			Name:        e.Tool.Name,
			Description: e.Tool.Description,
			Tags:        append([]string(nil), e.Tags...),
			Parameters:  e.Tool.InputSchema,
			Output:      e.OutputSchema,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}
