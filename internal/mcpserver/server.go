// Package mcpserver exposes the recording library to MCP clients over stdio.
// Every tool is a bridge call, so the host daemon stays the only writer.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DeamonDev888/screen-recorder/internal/bridge"
	"github.com/DeamonDev888/screen-recorder/internal/convert"
	"github.com/DeamonDev888/screen-recorder/internal/library"
)

// Host is the bridge surface the tools use. *bridge.Client implements it.
type Host interface {
	LoadLibrary(ctx context.Context) ([]library.Recording, error)
	Rename(ctx context.Context, path, newName string) (string, error)
	Duplicate(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
	Convert(ctx context.Context, path, format string) (string, error)
	Status(ctx context.Context) (bridge.Status, error)
}

type tools struct {
	host Host
	log  hclog.Logger
}

// New builds the MCP server with the library tools registered.
func New(host Host, version string, log hclog.Logger) *server.MCPServer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	t := &tools{host: host, log: log.Named("mcp")}
	s := server.NewMCPServer("screenrec", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_recordings",
		mcp.WithDescription("List recordings in the library, newest first. Thumbnails are omitted."),
	), t.list)

	s.AddTool(mcp.NewTool("library_status",
		mcp.WithDescription("Show the library directory, free disk space and supported conversion formats."),
	), t.status)

	s.AddTool(mcp.NewTool("rename_recording",
		mcp.WithDescription("Rename a recording. The new name must keep a video extension and not exist yet."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the recording")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New file name, e.g. demo.webm")),
	), t.rename)

	s.AddTool(mcp.NewTool("duplicate_recording",
		mcp.WithDescription("Copy a recording next to the original as '<name> - Copy', numbering further copies."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the recording")),
	), t.duplicate)

	s.AddTool(mcp.NewTool("delete_recording",
		mcp.WithDescription("Move a recording and its thumbnail to the trash."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the recording")),
	), t.delete)

	s.AddTool(mcp.NewTool("convert_recording",
		mcp.WithDescription("Convert a recording to another container format. Blocks until ffmpeg finishes."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the recording")),
		mcp.WithString("format", mcp.Required(), mcp.Description("Target format"), mcp.Enum(convert.Formats()...)),
	), t.convert)

	return s
}

// ServeStdio runs s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (t *tools) list(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := t.host.LoadLibrary(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for i := range recs {
		recs[i].Thumbnail = ""
	}
	return jsonResult(recs)
}

func (t *tools) status(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.host.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (t *tools) rename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := t.host.Rename(ctx, path, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t.log.Info("renamed", "from", path, "to", newPath)
	return mcp.NewToolResultText(newPath), nil
}

func (t *tools) duplicate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := t.host.Duplicate(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(newPath), nil
}

func (t *tools) delete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.host.Delete(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t.log.Info("deleted", "path", path)
	return mcp.NewToolResultText(fmt.Sprintf("moved %s to the trash", path)), nil
}

func (t *tools) convert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := t.host.Convert(ctx, path, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(newPath), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
