// Package mcpserver exposes the optimisation client as MCP tools so agents
// can ask the local peer to shrink files.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lydakis/clop"
)

// Service is the part of *clop.Client the tools need.
type Service interface {
	Optimise(ctx context.Context, inputs []string, opts clop.Options) ([]clop.OptimisationResponse, error)
	StopCurrentRequests(ctx context.Context, remove bool) error
	WaitUntilReady(ctx context.Context, timeout time.Duration) bool
	IsReachable() bool
	Namespace() string
}

var _ Service = (*clop.Client)(nil)

// Tool names.
const (
	ToolOptimise   = "optimise"
	ToolStop       = "stop_optimisations"
	ToolPeerStatus = "peer_status"
)

// New returns an MCP server with the optimisation tools registered.
func New(svc Service, version string) *server.MCPServer {
	s := server.NewMCPServer("clop", version, server.WithToolCapabilities(false))
	h := handlers{svc: svc}

	s.AddTool(mcp.Tool{
		Name:        ToolOptimise,
		Description: "Optimise images, videos or PDFs in place through the local Clop app and report the size change for each file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"paths":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Absolute file paths"},
				"aggressive":       map[string]any{"type": "boolean"},
				"downscale_factor": map[string]any{"type": "number", "description": "Scale factor between 0 and 1"},
				"crop_width":       map[string]any{"type": "number"},
				"crop_height":      map[string]any{"type": "number"},
				"playback_speed":   map[string]any{"type": "number", "description": "Video speed multiplier"},
				"remove_audio":     map[string]any{"type": "boolean"},
				"output":           map[string]any{"type": "string", "description": "Output path or template"},
				"background":       map[string]any{"type": "boolean", "description": "Queue without waiting for results"},
				"wait_seconds":     map[string]any{"type": "number", "description": "Start Clop and wait this long for it first"},
			},
			Required: []string{"paths"},
		},
		OutputSchema: mcp.ToolOutputSchema{
			Type: "object",
			Properties: map[string]any{
				"queued":  map[string]any{"type": "boolean"},
				"results": map[string]any{"type": "array"},
			},
			Required: []string{"queued"},
		},
	}, h.optimise)

	s.AddTool(mcp.Tool{
		Name:        ToolStop,
		Description: "Stop the optimisations started by the last optimise call",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"remove": map[string]any{"type": "boolean", "description": "Also discard partial results"},
			},
		},
	}, h.stop)

	s.AddTool(mcp.Tool{
		Name:        ToolPeerStatus,
		Description: "Report whether the Clop app is running and accepting requests",
		InputSchema: mcp.ToolInputSchema{Type: "object"},
		OutputSchema: mcp.ToolOutputSchema{
			Type: "object",
			Properties: map[string]any{
				"reachable": map[string]any{"type": "boolean"},
				"namespace": map[string]any{"type": "string"},
			},
			Required: []string{"reachable", "namespace"},
		},
	}, h.status)

	return s
}

// ServeStdio serves the tools over stdin/stdout until the input closes or
// the process is signalled.
func ServeStdio(svc Service, version string) error {
	return server.ServeStdio(New(svc, version))
}

type handlers struct {
	svc Service
}

type fileResult struct {
	Input      string `json:"input"`
	Path       string `json:"path"`
	OldBytes   int    `json:"old_bytes"`
	NewBytes   int    `json:"new_bytes"`
	SavedBytes int    `json:"saved_bytes"`
	Converted  string `json:"converted_from,omitempty"`
}

type optimiseResult struct {
	Queued  bool         `json:"queued"`
	Results []fileResult `json:"results"`
}

func (h handlers) optimise(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths := request.GetStringSlice("paths", nil)
	if len(paths) == 0 {
		return mcp.NewToolResultError("paths must list at least one file"), nil
	}

	opts := clop.Options{
		Aggressive:          request.GetBool("aggressive", false),
		DownscaleFactor:     request.GetFloat("downscale_factor", 0),
		PlaybackSpeedFactor: request.GetFloat("playback_speed", 0),
		RemoveAudio:         request.GetBool("remove_audio", false),
		Output:              request.GetString("output", ""),
		Background:          request.GetBool("background", false),
		HideGUI:             true,
	}
	if w, hgt := request.GetFloat("crop_width", 0), request.GetFloat("crop_height", 0); w > 0 || hgt > 0 {
		crop := clop.NewCropSizeFloat(w, hgt)
		opts.CropSize = &crop
	}

	if wait := request.GetFloat("wait_seconds", 0); wait > 0 {
		timeout := time.Duration(wait * float64(time.Second))
		if !h.svc.WaitUntilReady(ctx, timeout) {
			return mcp.NewToolResultError(fmt.Sprintf("Clop did not become ready within %s", timeout)), nil
		}
	}

	responses, err := h.svc.Optimise(ctx, paths, opts)
	if err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}

	out := optimiseResult{Queued: opts.Background, Results: []fileResult{}}
	for i, r := range responses {
		fr := fileResult{
			Input:      paths[i],
			Path:       r.Path,
			OldBytes:   r.OldBytes,
			NewBytes:   r.NewBytes,
			SavedBytes: r.SavedBytes(),
		}
		if r.ConvertedFrom != nil {
			fr.Converted = *r.ConvertedFrom
		}
		out.Results = append(out.Results, fr)
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (h handlers) stop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.svc.StopCurrentRequests(ctx, request.GetBool("remove", false)); err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	return mcp.NewToolResultText("stop requested"), nil
}

func (h handlers) status(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultStructuredOnly(map[string]any{
		"reachable": h.svc.IsReachable(),
		"namespace": h.svc.Namespace(),
	}), nil
}

// describe turns client errors into messages an agent can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, clop.ErrChannelUnreachable):
		return "Clop is not running; call optimise with wait_seconds to start it"
	case errors.Is(err, clop.ErrReplyTimeout):
		return "Clop did not answer in time; the optimisation may still finish"
	default:
		return err.Error()
	}
}
