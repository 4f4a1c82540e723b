package openai

import (
	"context"
	"fmt"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commentator asks a chat model to explain an allocation in plain language.
type Commentator struct {
	cli   oa.Client
	model string
}

func NewCommentator(apiKey string, opts ...option.RequestOption) *Commentator {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: "gpt-4o-mini"}
}

func (c *Commentator) Explain(ctx context.Context, summary string) (string, error) {
	systemPrompt := `You are a portfolio analyst. You receive the output of a minimum-variance optimizer: per-instrument average yearly returns, variances and recommended positions, plus the portfolio variance and a short backtest.

Explain the result in at most 150 words:
- Why the largest positions were chosen (low variance, diversification, return close to the target)
- Which instruments were excluded or kept tiny
- One concrete risk of relying on historical variance

Do not recommend other tickers. Do not invent numbers that are not in the input.`

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: c.model,
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(summary),
		},
		MaxTokens: oa.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
