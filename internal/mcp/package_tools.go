package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/merak/pkg/types"
)

// ModuleInfo describes one indexed module.
type ModuleInfo struct {
	Module  string `json:"module"`
	File    string `json:"file"`
	Package bool   `json:"package"`
}

// PackageIndex is the data returned by index_package.
type PackageIndex struct {
	Package   string       `json:"package"`
	Root      string       `json:"root"`
	Modules   []ModuleInfo `json:"modules"`
	Resources []string     `json:"resources"`
}

func registerPackageTools(s *server.MCPServer, state *MCPServer) {
	s.AddTool(mcp.NewTool("index_package",
		mcp.WithDescription("List the modules and resource files of a Python package"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the package directory"),
		),
		mcp.WithBoolean("reload",
			mcp.Description("Discard the cached session and re-read the package from disk"),
		),
	), state.handleIndexPackage)

	s.AddTool(mcp.NewTool("read_module",
		mcp.WithDescription("Show the source of a module as it will be written after flattening"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the package directory"),
		),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Dotted module name as it appears in the original package (e.g. 'pkg.sub.mod')"),
		),
	), state.handleReadModule)
}

func (s *MCPServer) handleIndexPackage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	sess, err := s.Session(path, req.GetBool("reload", false))
	if err != nil {
		return errResult(err), nil
	}
	idx, err := sess.Restructurer.Index()
	if err != nil {
		return errResult(err), nil
	}

	data := PackageIndex{Package: idx.Package(), Root: idx.Root(), Modules: []ModuleInfo{}, Resources: []string{}}
	for _, m := range idx.Modules() {
		file, err := idx.Get(m)
		if err != nil {
			return errResult(err), nil
		}
		data.Modules = append(data.Modules, ModuleInfo{Module: m.String(), File: file, Package: idx.IsPackage(m)})
	}
	for _, res := range idx.Resources() {
		data.Resources = append(data.Resources, res.Rel)
	}

	return textResult(AnalysisResult{
		Description: fmt.Sprintf("Package %s: %d modules, %d resources", data.Package, len(data.Modules), len(data.Resources)),
		Data:        data,
	}), nil
}

func (s *MCPServer) handleReadModule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	module, err := req.RequireString("module")
	if err != nil {
		return errResult(err), nil
	}
	if !types.IsDottedName(module) {
		return errResult(fmt.Errorf("invalid module name %q", module)), nil
	}
	sess, err := s.Session(path, false)
	if err != nil {
		return errResult(err), nil
	}
	text, err := sess.Restructurer.Read(types.ParseModulePath(module))
	if err != nil {
		return errResult(err), nil
	}
	return mcp.NewToolResultText(text), nil
}
