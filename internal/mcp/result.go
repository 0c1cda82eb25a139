package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// AnalysisResult is the structured output returned by read-only tools.
type AnalysisResult struct {
	Description string `json:"description"`
	Data        any    `json:"data"`
}

// FlattenResult is the structured output returned by flatten_package.
type FlattenResult struct {
	Package string   `json:"package"`
	Target  string   `json:"target"`
	Files   []string `json:"files"`
	Success bool     `json:"success"`
}

// textResult marshals v to JSON and wraps it in a CallToolResult with a
// single text block.
func textResult(v any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(fmt.Errorf("encode result: %w", err))
	}
	return mcp.NewToolResultText(string(b))
}

// errResult returns a CallToolResult that signals an error.
func errResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
