package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewGraphMCPServer creates an MCP server with the module graph tools registered.
func NewGraphMCPServer(svc *GraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "modgraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_entrypoints",
		Description: "List the scripts the page loaded directly (script tags and inline scripts) with the number of modules reachable from each.",
	}, svc.ListEntrypoints)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_initiator_paths",
		Description: "Explain why a script was loaded: every import chain from an entrypoint to the given URL.",
	}, svc.FindInitiatorPaths)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_tree",
		Description: "Render the dependency tree of one entrypoint. Repeated ancestors are marked circular and not expanded.",
	}, svc.GetTree)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_mermaid",
		Description: "Draw one entrypoint graph, or every module when no entrypoint is given, as a Mermaid graph TD diagram.",
	}, svc.GetMermaid)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the module index downstream (what a script loads) or upstream (what loads it). Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	return server
}

// RunMCPServer serves the module graph tools over streamable HTTP on addr
// until ctx is cancelled.
func RunMCPServer(ctx context.Context, svc *GraphService, addr string) error {
	server := NewGraphMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the module graph tools on stdio, blocking until
// stdin is closed or ctx is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *GraphService) error {
	return NewGraphMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
