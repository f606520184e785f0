package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/omnimind/internal/core"
)

const titleSystemPrompt = `You generate conversation titles. Reply with the title only: at most 6 words, no quotes, no trailing punctuation.`

// generateTitle asks the fast model for a short conversation title
// based on the opening message.
func generateTitle(ctx context.Context, provider core.AIProvider, message string) (string, error) {
	resp, err := provider.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: titleSystemPrompt},
		{Role: core.RoleUser, Content: fmt.Sprintf("Generate a short title for a conversation that starts with this message: %s", message)},
	}, core.ChatOptions{DisableReasoning: true})
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(resp.Content)
	title = strings.Trim(title, `"'`)
	if title == "" {
		return "", fmt.Errorf("model returned empty title")
	}
	return title, nil
}
