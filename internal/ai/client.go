package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"angebot/internal/config"
)

// Completer is the collaborator boundary the pipeline depends on: text in,
// raw text (expected to be JSON when ForceJSON is set) out.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is one completion request.
type Request struct {
	System    string
	User      string
	ForceJSON bool
}

// Error carries the collaborator's failure mode to the pipeline. A 403
// status is a content-policy block and is handled more leniently than
// other failures.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ai: status %d: %s", e.StatusCode, e.Message)
	}
	return "ai: " + e.Message
}

// IsPolicyBlock reports whether err is a content-policy rejection.
func IsPolicyBlock(err error) bool {
	var aiErr *Error
	return errors.As(err, &aiErr) && aiErr.StatusCode == 403
}

const jsonOnlyInstruction = "Respond with raw JSON only. Do not add explanations, introductory text, or markdown fences."

type client struct {
	sdk       sdk.Client
	model     string
	maxTokens int64
	limiter   *RateLimiter
}

// NewClient builds the Anthropic-backed completer, or nil when no API key
// is configured so that callers fall through to their deterministic paths.
func NewClient(cfg config.Config) Completer {
	if !cfg.AIConfigured() {
		return nil
	}
	return &client{
		sdk:       sdk.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:     cfg.AnthropicModel,
		maxTokens: int64(cfg.AIMaxTokens),
		limiter:   NewRateLimiter(cfg.AIRateLimitRPS),
	}
}

func (c *client) Complete(ctx context.Context, req Request) (string, error) {
	c.limiter.WaitTurn()

	system := req.System
	if req.ForceJSON {
		system = strings.TrimSpace(system + "\n" + jsonOnlyInstruction)
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: sdk.Float(0),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.User))},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	zap.L().Debug("ai completion",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	text := sb.String()
	if req.ForceJSON {
		text = CleanJSON(text)
	}
	return text, nil
}

// classify maps SDK failures onto the boundary's error type, keeping the
// HTTP status visible for the 403 content-policy case.
func classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return &Error{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return &Error{Message: eris.Wrap(err, "create message").Error()}
}

// CleanJSON strips markdown fences and surrounding chatter from a
// response that should contain a JSON object or array.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	objStart := strings.IndexAny(text, "{[")
	if objStart > 0 {
		text = text[objStart:]
	}
	if end := strings.LastIndexAny(text, "}]"); end >= 0 && end < len(text)-1 {
		text = text[:end+1]
	}

	return strings.TrimSpace(text)
}
