// Package mcpserver exposes the enabled weather tools over the Model Context
// Protocol.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/i474232898/weather-gateway/internal/tools"
	"github.com/i474232898/weather-gateway/internal/weather"
)

const serverName = "weather-gateway"

// Dispatcher runs tools. *tools.Registry satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]any) (json.RawMessage, error)
	Tools() []tools.Descriptor
}

// Server registers every enabled tool on an MCP server.
type Server struct {
	server *mcp.Server
	tools  Dispatcher
	logger *zap.Logger
}

// New builds the MCP server. Only tools enabled for the registry's tier are
// listed.
func New(d Dispatcher, version string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: version,
		}, &mcp.ServerOptions{
			HasTools: true,
		}),
		tools:  d,
		logger: logger.Named("mcp"),
	}

	for _, desc := range d.Tools() {
		schema, err := InputSchema(desc)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", desc.Name, err)
		}
		s.server.AddTool(&mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: schema,
		}, s.handler(desc.Name))
	}
	s.logger.Debug("tools registered", zap.Int("count", len(d.Tools())))
	return s, nil
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, err := decodeArguments(req.Params.Arguments)
		if err != nil {
			return errorResult(err), nil
		}
		payload, err := s.tools.Dispatch(ctx, name, params)
		if err != nil {
			return errorResult(err), nil
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(payload)}},
			StructuredContent: payload,
		}, nil
	}
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	params := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return params, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, weather.E(weather.KindInvalidParameter, "arguments", "tool arguments must be a JSON object: %v", err)
	}
	return params, nil
}

// errorResult reports a tool failure to the model rather than as a protocol
// error, so the client can read the kind and correct its call.
func errorResult(err error) *mcp.CallToolResult {
	kind := weather.KindOf(err)
	if kind == "" {
		kind = weather.KindUpstreamError
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		StructuredContent: map[string]any{
			"error":   string(kind),
			"message": err.Error(),
		},
	}
}

// InputSchema builds the JSON schema advertised for a tool's arguments.
func InputSchema(d tools.Descriptor) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{
		Type:                 "object",
		Properties:           map[string]*jsonschema.Schema{},
		Required:             append([]string{}, d.Required...),
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
	for _, p := range d.Params() {
		prop := &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
			Format:      p.Format,
		}
		if def, ok := d.Optional[p.Name]; ok {
			raw, err := json.Marshal(def)
			if err != nil {
				return nil, err
			}
			prop.Default = raw
		}
		schema.Properties[p.Name] = prop
	}
	return schema, nil
}
