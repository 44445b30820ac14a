package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	yandexgpt "github.com/sheeiavellie/go-yandexgpt"
	"golang.org/x/time/rate"

	"github.com/noah-isme/dayoff-api/pkg/config"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("text generator returned no text")

// CompleteFunc sends one system/user prompt pair to a model.
type CompleteFunc func(ctx context.Context, kind Kind, system, user string) (string, error)

// Generator drafts letters and summaries through a rate limited completion backend.
type Generator struct {
	complete CompleteFunc
	limiter  *rate.Limiter
}

// NewGenerator wraps complete with a limiter of rps requests per second. rps <= 0 disables limiting.
func NewGenerator(complete CompleteFunc, rps float64) *Generator {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Generator{complete: complete, limiter: rate.NewLimiter(limit, 1)}
}

// NewYandexGPT builds a Generator backed by the YandexGPT Lite model.
func NewYandexGPT(cfg config.TextGenConfig) *Generator {
	client := yandexgpt.NewYandexGPTClientWithIAMToken(cfg.IAMToken)
	modelURI := yandexgpt.MakeModelURI(cfg.CatalogID, yandexgpt.YandexGPTModelLite)

	complete := func(ctx context.Context, kind Kind, system, user string) (string, error) {
		request := yandexgpt.YandexGPTRequest{
			ModelURI: modelURI,
			Messages: []yandexgpt.YandexGPTMessage{
				{Role: yandexgpt.YandexGPTMessageRoleSystem, Text: system},
				{Role: yandexgpt.YandexGPTMessageRoleUser, Text: user},
			},
		}
		switch kind {
		case KindSummary:
			request.CompletionOptions = yandexgpt.YandexGPTCompletionOptions{Stream: false, Temperature: 0.3, MaxTokens: 120}
		default:
			request.CompletionOptions = yandexgpt.YandexGPTCompletionOptions{Stream: false, Temperature: 0.7, MaxTokens: 1500}
		}

		response, err := client.CreateRequest(ctx, request)
		if err != nil {
			return "", fmt.Errorf("yandexgpt request: %w", err)
		}
		if len(response.Result.Alternatives) == 0 {
			return "", ErrEmptyCompletion
		}
		return response.Result.Alternatives[0].Message.Text, nil
	}
	return NewGenerator(complete, cfg.RequestsPerSecond)
}

// DraftLetter produces a formal leave letter.
func (g *Generator) DraftLetter(ctx context.Context, reason, leaveType string, days int) (string, error) {
	return g.run(ctx, KindLetter, LetterPrompt(leaveType, days, reason))
}

// Summarize produces a one-sentence summary of reason.
func (g *Generator) Summarize(ctx context.Context, reason, requestContext string) (string, error) {
	return g.run(ctx, KindSummary, SummaryPrompt(reason, requestContext))
}

func (g *Generator) run(ctx context.Context, kind Kind, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for text generator slot: %w", err)
	}
	text, err := g.complete(ctx, kind, systemPrompt(kind), prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
