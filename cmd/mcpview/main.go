// Command mcpview exposes a running View's materialized rows as a single
// MCP tool, so an MCP client can poll the current state of a dataflow
// pipeline. Adapted from the teacher's server/mcp (mcpserver.NewMCPServer
// + mcp.NewTool) generalized from the SQL query/describe tool set to one
// read-only "view_rows" tool over a single in-process View.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/view"
)

// Deps holds the view a tool call reads from.
type Deps struct {
	View *view.View
}

func (d *Deps) HandleViewRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodes := d.View.Rows()
	out := make([]map[string]interface{}, len(nodes))
	for i, n := range nodes {
		out[i] = flatten(n)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func flatten(n row.Node) map[string]interface{} {
	m := make(map[string]interface{}, len(n.Row)+1)
	for k, v := range n.Row {
		m[k] = v
	}
	for relName, seq := range n.Relationships {
		var children []map[string]interface{}
		for {
			cn, ok := seq.Next()
			if !ok {
				break
			}
			children = append(children, flatten(cn))
		}
		m[relName] = children
	}
	return m
}

func main() {
	addr := flag.String("addr", ":8787", "HTTP address to serve the MCP endpoint on")
	flag.Parse()

	// A real deployment wires an actual pipeline's View here; this demo
	// binary serves an empty one so the tool is reachable for inspection.
	deps := &Deps{View: view.New(emptyInput{}, nil)}

	srv := mcpserver.NewMCPServer(
		"ivmsync",
		"0.1.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	viewRowsTool := mcp.NewTool("view_rows",
		mcp.WithDescription("Return the current materialized rows of the ivmsync view, including nested relationships"),
	)
	srv.AddTool(viewRowsTool, deps.HandleViewRows)

	httpServer := mcpserver.NewStreamableHTTPServer(srv, mcpserver.WithEndpointPath("/mcp"))
	log.Printf("serving ivmsync view over MCP at %s", *addr)
	if err := httpServer.Start(*addr); err != nil {
		log.Fatalf("mcp server failed: %v", err)
	}
}
