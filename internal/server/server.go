// Package server runs the MCP stdio loop: newline-delimited JSON-RPC in,
// responses out, tool dispatch in between.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/golovatskygroup/mcp-atlas/internal/tools"
	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "mcp-atlas"
	serverVersion   = "1.0.0"
)

// Server owns the transport and the tool handler.
type Server struct {
	transport *mcp.Transport
	handler   *tools.Handler
	logger    *log.Logger
}

// New builds a server reading requests from r and writing responses to w.
// The CLI passes stdin/stdout; tests pass buffers.
func New(r io.Reader, w io.Writer, logger *log.Logger) *Server {
	return &Server{
		transport: mcp.NewTransport(r, w),
		handler:   tools.NewHandler(logger),
		logger:    logger,
	}
}

// Run processes requests until the peer closes the stream or ctx is
// canceled. Malformed lines are logged and skipped; the loop only stops on
// EOF or cancellation.
func (s *Server) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := s.transport.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Error("failed to read message", "err", err)
			continue
		}

		resp := s.handleRequest(ctx, req)
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			s.logger.Error("failed to write response", "err", err)
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req *mcp.Request) *mcp.Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleListTools(req)
	case "tools/call":
		return s.handleCallTool(ctx, req)
	case "ping":
		resp, _ := mcp.NewResponse(req.ID, map[string]any{})
		return resp
	default:
		return mcp.NewErrorResponse(req.ID, mcp.MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *mcp.Request) *mcp.Response {
	result := mcp.InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools: &mcp.ToolsCapability{},
		},
		ServerInfo: mcp.ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
		Instructions: s.buildInstructions(),
	}

	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handleListTools(req *mcp.Request) *mcp.Response {
	result := mcp.ListToolsResult{Tools: s.handler.Tools()}

	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) handleCallTool(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params: "+err.Error())
	}

	s.logger.Debug("tool call", "tool", params.Name)
	result, err := s.handler.Handle(ctx, params.Name, params.Arguments)
	if err != nil {
		// Only an unknown tool name reaches here; everything else comes
		// back as an error result.
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, err.Error())
	}

	resp, err := mcp.NewResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (s *Server) buildInstructions() string {
	reg := s.handler.Registry()

	var sb strings.Builder
	sb.WriteString("Atlassian MCP server: Confluence and Jira browsing, attachment download, and PDF ingestion into the document processing service.\n\n")
	sb.WriteString("Use search_tools to find tools by keyword and describe_tool for a tool's full input schema.\n\nCategories:\n")
	for _, cat := range reg.Categories() {
		sb.WriteString(fmt.Sprintf("- %s (%d tools)\n", cat, len(reg.List(cat))))
	}
	sb.WriteString(fmt.Sprintf("\nTotal tools: %d\n", len(reg.List(""))))
	return sb.String()
}
