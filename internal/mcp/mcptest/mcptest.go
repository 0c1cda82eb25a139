// Package mcptest provides test helpers for invoking merak MCP tools
// with swappable transports: in-process (fast) or subprocess (full binary).
package mcptest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mamaar/merak/pkg/build"

	internalmcp "github.com/mamaar/merak/internal/mcp"
)

// Session wraps an initialized MCP client with cleanup logic.
type Session struct {
	*client.Client
}

// Close tears down the session.
func (s *Session) Close() {
	_ = s.Client.Close()
}

// Call invokes tool with args and returns the text of the first content
// block. Tool-level errors are reported through isError.
func (s *Session) Call(ctx context.Context, t testing.TB, tool string, args map[string]any) (text string, isError bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := s.CallTool(ctx, req)
	if err != nil {
		t.Fatalf("mcptest: %s: %v", tool, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("mcptest: %s returned no content", tool)
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, res.IsError
	case *mcp.TextContent:
		return c.Text, res.IsError
	}
	t.Fatalf("mcptest: %s returned %T, want text", tool, res.Content[0])
	return "", false
}

// CallJSON invokes tool and decodes its text result into out. A tool-level
// error fails the test.
func (s *Session) CallJSON(ctx context.Context, t testing.TB, tool string, args map[string]any, out any) {
	t.Helper()
	text, isError := s.Call(ctx, t, tool, args)
	if isError {
		t.Fatalf("mcptest: %s returned error: %s", tool, text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("mcptest: %s: decode %q: %v", tool, text, err)
	}
}

// Transport selects how the MCP server is reached.
type Transport interface {
	connect(ctx context.Context, t testing.TB) (*client.Client, error)
}

// Dial connects to an MCP server using the given transport and performs
// the initialize handshake.
func Dial(ctx context.Context, t testing.TB, transport Transport) *Session {
	t.Helper()
	c, err := transport.connect(ctx, t)
	if err != nil {
		t.Fatalf("mcptest.Dial: connect: %v", err)
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "test-client", Version: "1.0"}
	if _, err := c.Initialize(ctx, req); err != nil {
		_ = c.Close()
		t.Fatalf("mcptest.Dial: initialize: %v", err)
	}
	return &Session{Client: c}
}

// inProcess runs the server in the test process.
type inProcess struct{}

// InProcess returns a transport that runs the MCP server in-process.
func InProcess() Transport { return inProcess{} }

func (inProcess) connect(ctx context.Context, t testing.TB) (*client.Client, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	state, err := internalmcp.NewMCPServer(build.Options{}, 0, logger)
	if err != nil {
		return nil, err
	}
	c, err := client.NewInProcessClient(internalmcp.NewServer(state, "test"))
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// subprocess speaks stdio to a built merak-mcp binary.
type subprocess struct {
	binPath string
}

// Subprocess returns a transport that shells out to the given binary.
func Subprocess(bin string) Transport { return subprocess{binPath: bin} }

func (sp subprocess) connect(ctx context.Context, t testing.TB) (*client.Client, error) {
	return client.NewStdioMCPClient(sp.binPath, nil)
}
