package mcp

import "github.com/mark3labs/mcp-go/server"

// RegisterAllTools wires every merak tool into the MCP server.
func RegisterAllTools(s *server.MCPServer, state *MCPServer) {
	registerPackageTools(s, state)
	registerFlattenTools(s, state)
	registerDependencyTools(s, state)
}
