package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mediaswipe/recommender/lib/validation"
	"github.com/mediaswipe/recommender/models"
	openai "github.com/sashabaranov/go-openai"
)

// maxTitlesPerPrompt bounds the prompt size for users with huge liked
// histories; the most recent likes carry the signal anyway.
const maxTitlesPerPrompt = 50

// OpenAITagger asks a chat model for interest tags instead of the
// keyword heuristic. The response must match the tag JSON schema.
type OpenAITagger struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAITagger(apiKey, model string, logger *slog.Logger) *OpenAITagger {
	return &OpenAITagger{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (t *OpenAITagger) Tags(ctx context.Context, liked []models.Content) ([]string, error) {
	if len(liked) == 0 {
		return nil, nil
	}

	var content strings.Builder
	for i, c := range liked {
		if i >= maxTitlesPerPrompt {
			break
		}
		content.WriteString(fmt.Sprintf("- %s (%s)\n", c.Title, c.Category))
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: `You summarize a media taste profile. Given a list of liked titles, respond with JSON of the form {"tags": ["tag", ...]}: at most 10 short lowercase theme tags such as "war", "romance", "detective", "sci-fi". Respond with JSON only.`,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: content.String(),
			},
		},
		Temperature: 0.2,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get tag completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty tag completion response")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	parsed, err := validation.ValidateAndParseTagResponse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse tag response: %w", err)
	}

	seen := make(map[string]struct{}, len(parsed.Tags))
	tags := make([]string, 0, len(parsed.Tags))
	for _, tag := range parsed.Tags {
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, key)
	}
	sort.Strings(tags)

	t.logger.Debug("Generated interest tags", slog.Int("count", len(tags)))
	return tags, nil
}
