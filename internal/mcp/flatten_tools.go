package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/merak/pkg/refactor"
	"github.com/mamaar/merak/pkg/types"
)

// FlattenPlan is the data returned by plan_flatten.
type FlattenPlan struct {
	*refactor.Manifest
	Conflicts map[string][]string `json:"conflicts,omitempty"`
}

func registerFlattenTools(s *server.MCPServer, state *MCPServer) {
	s.AddTool(mcp.NewTool("plan_flatten",
		mcp.WithDescription("Show where every module of a package would be written when flattened, and any destination conflicts"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the package directory"),
		),
		mcp.WithBoolean("reload",
			mcp.Description("Discard the cached session and re-read the package from disk"),
		),
	), state.handlePlanFlatten)

	s.AddTool(mcp.NewTool("flatten_package",
		mcp.WithDescription("Write the flattened package, with its module finder and resources, to an output directory"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the package directory"),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Directory that will contain the flattened package"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Overwrite existing files in the output directory"),
		),
	), state.handleFlattenPackage)
}

func (s *MCPServer) handlePlanFlatten(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	sess, err := s.Session(path, req.GetBool("reload", false))
	if err != nil {
		return errResult(err), nil
	}
	m, err := sess.Restructurer.Manifest()
	if err != nil {
		return errResult(err), nil
	}
	dests, err := sess.Restructurer.Destinations()
	if err != nil {
		return errResult(err), nil
	}

	plan := FlattenPlan{Manifest: m}
	desc := fmt.Sprintf("Flatten %s: %d modules", m.Package, len(m.Modules))
	var ce *types.ConflictError
	if errors.As(refactor.CheckConflicts(dests), &ce) {
		plan.Conflicts = ce.Destinations
		desc += fmt.Sprintf(", %d conflicting destinations", len(ce.Destinations))
	}
	return textResult(AnalysisResult{Description: desc, Data: plan}), nil
}

func (s *MCPServer) handleFlattenPackage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	output, err := req.RequireString("output")
	if err != nil {
		return errResult(err), nil
	}
	b, err := s.builder(path, req.GetBool("force", false))
	if err != nil {
		return errResult(err), nil
	}

	// Restructure opens its own session, so the result reflects the files
	// on disk now; the cached session is refreshed to match.
	s.Invalidate(path)
	r, err := b.Restructure(output)
	if err != nil {
		return errResult(err), nil
	}
	dests, err := r.Destinations()
	if err != nil {
		return errResult(err), nil
	}
	res := &FlattenResult{Package: r.Package(), Target: output, Success: true}
	for _, d := range dests {
		res.Files = append(res.Files, d.Rel)
	}
	s.logger.Info("package flattened", "package", r.Package(), "output", output, "files", len(res.Files))
	return textResult(res), nil
}
