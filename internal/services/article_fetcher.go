package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"histreader/internal/config"
	"histreader/internal/models"
	"histreader/internal/util"
)

// FetcherConfig is the immutable configuration of an ArticleFetcher.
type FetcherConfig struct {
	MaxRetries int                // retries after the first attempt; the last one uses Fallback
	Fallback   models.TopicResult // known-good topic for the final attempt
}

// FetcherConfigFrom derives a FetcherConfig from the application config.
func FetcherConfigFrom(cfg *config.Config) FetcherConfig {
	return FetcherConfig{
		MaxRetries: cfg.Fetcher.MaxRetries,
		Fallback: models.TopicResult{
			Title:    cfg.Fetcher.FallbackTopic,
			Category: cfg.Fetcher.FallbackCategory,
		},
	}
}

// RetryStrategyFrom builds the configured backoff strategy.
func RetryStrategyFrom(cfg *config.Config) RetryStrategy {
	delayMs := cfg.Fetcher.Backoff.Milliseconds()
	if cfg.Fetcher.BackoffStrategy == config.BackoffExponential {
		return &SimpleRetryStrategy{MaxAttempts: cfg.Fetcher.MaxRetries, BaseDelayMs: delayMs}
	}
	return &FixedRetryStrategy{DelayMs: delayMs}
}

// ArticleFetcher runs the bounded retry loop around topic selection and
// extract retrieval.
type ArticleFetcher struct {
	picker   TopicPicker
	extracts ExtractFetcher
	retry    RetryStrategy
	cfg      FetcherConfig
}

// NewArticleFetcher creates a fetcher. A nil strategy retries without waiting.
func NewArticleFetcher(picker TopicPicker, extracts ExtractFetcher, strategy RetryStrategy, cfg FetcherConfig) *ArticleFetcher {
	if strategy == nil {
		strategy = &FixedRetryStrategy{}
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &ArticleFetcher{picker: picker, extracts: extracts, retry: strategy, cfg: cfg}
}

// MaxRetries returns the configured retry budget.
func (f *ArticleFetcher) MaxRetries() int { return f.cfg.MaxRetries }

// Fetch performs one fetch operation: at most MaxRetries+1 cycles of
// [resolve topic, fetch extract], the last of which always uses the fallback
// topic. Intermediate failures are logged; only *models.ExhaustedRetriesError
// (or a context error) is returned.
func (f *ArticleFetcher) Fetch(ctx context.Context, obs StatusObserver) (*models.Article, error) {
	if obs == nil {
		obs = noopObserver{}
	}
	state := models.RetryState{Attempt: 0, MaxAttempts: f.cfg.MaxRetries}
	emit := func(status models.FetchStatus, topic models.TopicResult, msg string) {
		obs.OnStatus(models.StatusEvent{
			Status:      status,
			Attempt:     state.Attempt,
			MaxAttempts: state.MaxAttempts,
			Topic:       topic.Title,
			Category:    topic.Category,
			Message:     msg,
			At:          time.Now(),
		})
	}

	emit(models.StatusFetching, models.TopicResult{}, "searching")

	var lastErr error
	for !state.Exhausted() {
		topic, err := f.resolveTopic(ctx, state)
		if err == nil {
			emit(models.StatusFetching, topic, fetchingMessage(state, topic))
			var article *models.Article
			article, err = f.fetchArticle(ctx, topic, state)
			if err == nil {
				emit(models.StatusComplete, topic, fmt.Sprintf("%d chars", article.CharCount))
				return article, nil
			}
		}

		lastErr = err
		log.WithFields(log.Fields{
			"attempt":  state.Attempt + 1,
			"topic":    topic.Title,
			"category": topic.Category,
		}).Warnf("fetch attempt failed: %v", err)

		state.Attempt++
		if state.Exhausted() {
			break
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		delay := f.retry.NextBackoff(state.Attempt - 1)
		if delay < 0 {
			delay = 0
		}
		if err := sleepContext(ctx, time.Duration(delay)*time.Millisecond); err != nil {
			lastErr = err
			break
		}
	}

	finalErr := &models.ExhaustedRetriesError{Attempts: state.Attempt, Err: lastErr}
	emit(models.StatusError, models.TopicResult{}, models.UserMessage(finalErr))
	return nil, finalErr
}

// resolveTopic returns the fallback topic on the final attempt and asks the
// picker otherwise.
func (f *ArticleFetcher) resolveTopic(ctx context.Context, state models.RetryState) (models.TopicResult, error) {
	if state.Final() {
		return f.cfg.Fallback, nil
	}
	return f.picker.SelectTopic(ctx)
}

func (f *ArticleFetcher) fetchArticle(ctx context.Context, topic models.TopicResult, state models.RetryState) (*models.Article, error) {
	raw, err := f.extracts.Extract(ctx, topic.Title)
	if err != nil {
		return nil, err
	}
	body := util.NormalizeExtract(raw)
	if util.IsBlank(body) {
		return nil, fmt.Errorf("%w: page %q has no extract", models.ErrEmptyContent, topic.Title)
	}

	content := FormatContent(topic, body)
	return &models.Article{
		HeaderTopic:    topic.Title,
		HeaderCategory: topic.Category,
		BodyText:       body,
		Content:        content,
		CharCount:      utf8.RuneCountInString(content),
		Attempts:       state.Attempt + 1,
		UsedFallback:   state.Final(),
	}, nil
}

// FormatContent assembles the header block, a blank line and the body.
func FormatContent(topic models.TopicResult, body string) string {
	return fmt.Sprintf("【主題: %s】\n(カテゴリ: %s)\n\n%s", topic.Title, topic.Category, body)
}

func fetchingMessage(state models.RetryState, topic models.TopicResult) string {
	msg := fmt.Sprintf("fetching %q from category %q", topic.Title, topic.Category)
	if state.Attempt > 0 {
		msg = fmt.Sprintf("retrying (%d/%d): %s", state.Attempt, state.MaxAttempts, msg)
	}
	return msg
}
