package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dayoff-api/internal/models"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
)

// Fallback texts stored when generation fails or is disabled.
const (
	FallbackLetter  = "Error generating AI letter. Please draft manually."
	FallbackSummary = "Summary unavailable."
)

const defaultEnrichmentTimeout = 8 * time.Second

// TextGenerator drafts the letter and summary attached to a new application.
type TextGenerator interface {
	DraftLetter(ctx context.Context, reason, leaveType string, days int) (string, error)
	Summarize(ctx context.Context, reason, requestContext string) (string, error)
}

// Enrichment is the generated text for one application.
type Enrichment struct {
	Letter          string
	Summary         string
	LetterFallback  bool
	SummaryFallback bool
}

// Enricher runs both generation calls under one deadline and never fails.
type Enricher struct {
	generator TextGenerator
	timeout   time.Duration
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEnricher constructs an Enricher. A nil generator always yields the fallbacks.
func NewEnricher(generator TextGenerator, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *Enricher {
	if timeout <= 0 {
		timeout = defaultEnrichmentTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{generator: generator, timeout: timeout, metrics: metrics, logger: logger}
}

// Enrich drafts the letter and the summary concurrently.
func (e *Enricher) Enrich(ctx context.Context, reason string, leaveType models.LeaveType, days int, requestContext string) Enrichment {
	if e == nil || e.generator == nil {
		return Enrichment{Letter: FallbackLetter, Summary: FallbackSummary, LetterFallback: true, SummaryFallback: true}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		result Enrichment
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Letter, result.LetterFallback = e.call(ctx, "letter", FallbackLetter, func(ctx context.Context) (string, error) {
			return e.generator.DraftLetter(ctx, reason, string(leaveType), days)
		})
	}()
	go func() {
		defer wg.Done()
		result.Summary, result.SummaryFallback = e.call(ctx, "summary", FallbackSummary, func(ctx context.Context) (string, error) {
			return e.generator.Summarize(ctx, reason, requestContext)
		})
	}()
	wg.Wait()
	return result
}

type generation struct {
	text string
	err  error
}

// call returns fallback when fn fails, returns nothing, panics or outlives ctx.
func (e *Enricher) call(ctx context.Context, kind, fallback string, fn func(context.Context) (string, error)) (string, bool) {
	start := time.Now()
	done := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		text, err := fn(ctx)
		done <- generation{text: strings.TrimSpace(text), err: err}
	}()

	var result generation
	select {
	case result = <-done:
	case <-ctx.Done():
		result.err = ctx.Err()
	}
	if result.err == nil && result.text == "" {
		result.err = errors.New("empty response")
	}

	fellBack := result.err != nil
	e.metrics.ObserveEnrichment(kind, time.Since(start), fellBack)
	if fellBack {
		wrapped := appErrors.Wrap(result.err, appErrors.ErrExternalService.Code, appErrors.ErrExternalService.Status, "text generation failed")
		e.logger.Warn("text generation fell back", zap.String("kind", kind), zap.Error(wrapped))
		return fallback, true
	}
	return result.text, false
}
