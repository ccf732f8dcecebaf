// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes travel-log tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/finalquest/itinera/internal/findingservice"
	"github.com/finalquest/itinera/internal/itinerary"
	"github.com/finalquest/itinera/internal/kml"
	"github.com/finalquest/itinera/internal/kmlsource"
)

// Server wraps the MCP server with itinerary and finding tools.
type Server struct {
	mcp      *server.MCPServer
	findings *findingservice.Service
	kmls     kmlsource.Source
}

// New creates a new MCP server with all tools registered.
func New(findings *findingservice.Service, kmls kmlsource.Source) *Server {
	s := &Server{findings: findings, kmls: kmls}

	s.mcp = server.NewMCPServer(
		"Itinera",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_findings",
		mcp.WithDescription("Full-text search through recorded findings (titles, descriptions, locations, barcodes)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchFindings)

	s.mcp.AddTool(mcp.NewTool("list_findings",
		mcp.WithDescription("List all recorded findings, most recent first."),
	), s.listFindings)

	s.mcp.AddTool(mcp.NewTool("list_itineraries",
		mcp.WithDescription("List the available KML itineraries."),
	), s.listItineraries)

	s.mcp.AddTool(mcp.NewTool("read_itinerary",
		mcp.WithDescription("Read an itinerary as a numbered list of points with names, addresses, and coordinates."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Itinerary file name (e.g. tokio-dia-1.kml)")),
	), s.readItinerary)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchFindings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.findings.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFindings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	findings, err := s.findings.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(findings, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listItineraries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.kmls.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var names []string
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) readItinerary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.kmls.Fetch(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	doc, err := kml.Parse(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	points := kml.ExtractPoints(doc)
	list := itinerary.Build(points)

	var b strings.Builder
	b.WriteString(list.Header + "\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%d. %s", p.Index, p.Name)
		if p.Address != "" {
			fmt.Fprintf(&b, " (%s)", p.Address)
		}
		fmt.Fprintf(&b, " [%.6f, %.6f]\n", p.Lat, p.Lng)
	}
	return mcp.NewToolResultText(b.String()), nil
}
