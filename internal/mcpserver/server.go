package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nao1215/metanull/internal/database"
	"github.com/nao1215/metanull/internal/engine"
	"github.com/nao1215/metanull/internal/model"
	"github.com/nao1215/metanull/internal/report"
)

// Tool names.
const (
	ToolInspect  = "inspect_image"
	ToolSanitize = "sanitize_image"
)

// Server registers metanull tools on an MCP server.
type Server struct {
	engine   *engine.Engine
	defaults model.SanitizationConfig
	history  *database.HistoryDB
	logger   *slog.Logger
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithDefaults sets the settings used for arguments a call leaves out.
func WithDefaults(cfg model.SanitizationConfig) Option {
	return func(s *Server) {
		s.defaults = cfg
	}
}

// WithHistory records every sanitize call in hdb.
func WithHistory(hdb *database.HistoryDB) Option {
	return func(s *Server) {
		s.history = hdb
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version announced to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a Server backed by e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:   e,
		defaults: model.DefaultSanitizationConfig(),
		logger:   slog.Default(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCPServer builds an MCP server with every tool registered.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "metanull", Version: s.version}, nil)
	s.Register(srv)
	return srv
}

// Serve runs the server over stdio until ctx is done or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

// Register adds the metanull tools to srv.
func (s *Server) Register(srv *mcp.Server) {
	s.registerInspectTool(srv)
	s.registerSanitizeTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- inspect ---

type inspectReq struct {
	Path string `json:"path"`
}

func (s *Server) registerInspectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolInspect,
		Description: "List the metadata an image carries (device, exif, gps, embedded) with a privacy severity per tag.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Image file path"},
		}, []string{"path"}),
	}

	srv.AddTool(tool, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r inspectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if r.Path == "" {
			return toolError(errors.New("invalid arguments: path is required")), nil
		}

		rep, err := s.engine.Inspect(r.Path)
		if err != nil {
			return toolError(err), nil
		}
		s.logger.Debug("inspected", "entries", rep.EntryCount(), "clean", rep.IsClean())
		return toolJSON(report.NewJSONReport(rep, s.version))
	})
}

// --- sanitize ---

type sanitizeReq struct {
	Input              string `json:"input"`
	Output             string `json:"output,omitempty"`
	Format             string `json:"format,omitempty"`
	Quality            int    `json:"quality,omitempty"`
	PerturbPixels      *bool  `json:"perturb_pixels,omitempty"`
	RandomizeTimestamp *bool  `json:"randomize_timestamp,omitempty"`
	Verify             *bool  `json:"verify,omitempty"`
	Convert            string `json:"convert,omitempty"`
}

// config merges the request over the server defaults.
func (s *Server) config(r sanitizeReq) (model.SanitizationConfig, error) {
	cfg := s.defaults
	if r.Format != "" {
		f, err := model.ParseFormat(r.Format)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
		}
		cfg.Format = f
	}
	if r.Quality != 0 {
		cfg.Quality = r.Quality
	}
	if r.PerturbPixels != nil {
		cfg.PerturbPixels = *r.PerturbPixels
	}
	if r.RandomizeTimestamp != nil {
		cfg.RandomizeTimestamp = *r.RandomizeTimestamp
	}
	if r.Verify != nil {
		cfg.Verify = *r.Verify
	}
	if r.Convert != "" {
		m, err := model.ParseColorMode(r.Convert)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
		}
		cfg.ConvertMode = m
	}
	return cfg, nil
}

func (s *Server) registerSanitizeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: ToolSanitize,
		Description: "Write a metadata-free copy of an image. The pixels are rebuilt from scratch so no " +
			"EXIF, GPS, thumbnail, ICC or XMP data survives. Defaults to <name>_sanitized.<ext> next to the input.",
		InputSchema: inputSchema(map[string]any{
			"input":               map[string]any{"type": "string", "description": "Image file path"},
			"output":              map[string]any{"type": "string", "description": "Output path (optional)"},
			"format":              map[string]any{"type": "string", "enum": []string{"jpeg", "webp", "png"}},
			"quality":             map[string]any{"type": "integer", "minimum": model.MinQuality, "maximum": model.MaxQuality},
			"perturb_pixels":      map[string]any{"type": "boolean"},
			"randomize_timestamp": map[string]any{"type": "boolean"},
			"verify":              map[string]any{"type": "boolean"},
			"convert":             map[string]any{"type": "string", "enum": []string{"l", "rgb", "rgba"}},
		}, []string{"input"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r sanitizeReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if r.Input == "" {
			return toolError(errors.New("invalid arguments: input is required")), nil
		}

		cfg, err := s.config(r)
		if err != nil {
			return toolError(err), nil
		}

		result := s.engine.Sanitize(ctx, r.Input, r.Output, cfg)
		s.record(ctx, result)
		if !result.Success {
			return toolError(result.Err), nil
		}
		return toolJSON(result)
	})
}

// record stores result in the history database, if one is configured.
// A history failure never fails the sanitize call.
func (s *Server) record(ctx context.Context, result *model.SanitizationResult) {
	if s.history == nil {
		return
	}
	if _, err := s.history.RecordResult(ctx, result); err != nil {
		s.logger.Warn("failed to record run", "error", err)
	}
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("marshal: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}
