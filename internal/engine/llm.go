package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// ErrLLMDisabled is returned when no LLM client is configured.
var ErrLLMDisabled = errors.New("llm: client not configured")

// StripFences removes markdown code fences from LLM output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ClassifyMusicVideo asks the LLM whether a video is a music recording.
func ClassifyMusicVideo(ctx context.Context, title, channel string) (bool, error) {
	if cfg.LLMClient == nil {
		return false, ErrLLMDisabled
	}
	prompt := fmt.Sprintf(classifyMusicPrompt, title, channel)
	metrics.LLMCalls.Add(1)
	raw, err := cfg.LLMClient.Complete(ctx, "", prompt,
		llm.WithChatTemperature(0),
		llm.WithChatMaxTokens(5),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return false, fmt.Errorf("classify music: %w", err)
	}
	return ParseYesNo(StripFences(raw))
}

// ParseYesNo interprets a one-word yes/no answer.
func ParseYesNo(raw string) (bool, error) {
	ans := strings.ToLower(strings.Trim(strings.TrimSpace(raw), ".!\"'`"))
	switch {
	case strings.HasPrefix(ans, "yes"):
		return true, nil
	case strings.HasPrefix(ans, "no"):
		return false, nil
	}
	return false, fmt.Errorf("llm: unexpected answer %q", TruncateRunes(raw, 40, "..."))
}
