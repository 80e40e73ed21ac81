// Package transcriptserver exposes the transcript service as MCP tools.
package transcriptserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/sources"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
	"github.com/anatolykoptev/go_transcript/internal/toolutil"
)

// Transcriber is the service surface the tools need.
type Transcriber interface {
	Transcript(ctx context.Context, req sources.TranscriptRequest) (engine.CachedTranscript, bool, error)
	Methods(ctx context.Context) []engine.MethodInfo
}

// RegisterTools registers youtube_transcript and transcript_methods.
// actions lists the background broker's operations for transcript_methods.
func RegisterTools(server *mcp.Server, svc Transcriber, actions []string) {
	registerTranscript(server, svc)
	registerMethods(server, svc, actions)
}

func registerTranscript(server *mcp.Server, svc Transcriber) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the transcript of a YouTube video. Tries several acquisition methods in order (caption endpoint, transcript panel, captured player requests, Invidious mirrors, privileged proxy, song lyrics, speech-to-text) and returns the first non-empty result as timed segments or as text/SRT/VTT.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
		return handleTranscript(ctx, svc, input)
	})
}

func handleTranscript(ctx context.Context, svc Transcriber, input engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
	if input.Video == "" {
		return nil, engine.TranscriptOutput{}, errors.New("video is required")
	}
	id := sources.ExtractVideoID(input.Video)
	if id == "" {
		return nil, engine.TranscriptOutput{}, fmt.Errorf("not a YouTube video ID or URL: %q", input.Video)
	}
	format, err := toolutil.NormFormat(input.Format)
	if err != nil {
		return nil, engine.TranscriptOutput{}, err
	}

	t, cached, err := svc.Transcript(ctx, sources.TranscriptRequest{
		VideoID: id,
		Lang:    toolutil.NormLang(input.Language),
		Method:  transcript.ParseMethod(input.Method),
		Timeout: toolutil.Timeout(input.TimeoutMs),
	})
	if err != nil {
		if transcript.IsNoCaptions(err) {
			return nil, engine.TranscriptOutput{}, fmt.Errorf("no captions available for %s: %w", id, err)
		}
		return nil, engine.TranscriptOutput{}, err
	}

	segs, text := toolutil.Render(t.Segments, format, input.MaxChars)
	slog.Info("youtube_transcript: done",
		slog.String("id", id),
		slog.String("method", t.Method),
		slog.Bool("cached", cached),
		slog.Int("segments", len(t.Segments)))
	return nil, engine.TranscriptOutput{
		VideoID:  id,
		Language: t.Language,
		Method:   t.Method,
		Cached:   cached,
		Segments: segs,
		Text:     text,
	}, nil
}

func registerMethods(server *mcp.Server, svc Transcriber, actions []string) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_methods",
		Description: "List the enabled transcript acquisition methods in the order they are tried, with the configured preferred method marked.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ engine.MethodsInput) (*mcp.CallToolResult, engine.MethodsOutput, error) {
		return nil, engine.MethodsOutput{Methods: svc.Methods(ctx), Actions: actions}, nil
	})
}
