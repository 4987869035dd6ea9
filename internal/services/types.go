package services

import (
	"context"
	"time"

	"histreader/internal/models"
	"histreader/internal/wiki"
)

// CategoryLister lists category members; *wiki.Client implements it.
type CategoryLister interface {
	CategoryMembers(ctx context.Context, q wiki.CategoryMembersQuery) ([]wiki.CategoryMember, error)
}

// ExtractFetcher fetches the plain-text extract of a page; *wiki.Client implements it.
type ExtractFetcher interface {
	Extract(ctx context.Context, title string) (string, error)
}

// TopicPicker produces a random topic.
type TopicPicker interface {
	SelectTopic(ctx context.Context) (models.TopicResult, error)
}

// RandomSource is the uniform discrete draw used for every "pick one of N".
// *math/rand.Rand implements it.
type RandomSource interface {
	Intn(n int) int
}

// StatusObserver receives status transitions of a fetch operation.
type StatusObserver interface {
	OnStatus(evt models.StatusEvent)
}

// StatusObserverFunc adapts a function to StatusObserver.
type StatusObserverFunc func(evt models.StatusEvent)

func (f StatusObserverFunc) OnStatus(evt models.StatusEvent) { f(evt) }

type noopObserver struct{}

func (noopObserver) OnStatus(models.StatusEvent) {}

// RetryStrategy decides how long to wait before the next attempt.
type RetryStrategy interface {
	NextBackoff(attempt int) int64 // ms
}

// FixedRetryStrategy waits the same delay before every retry.
type FixedRetryStrategy struct {
	DelayMs int64
}

// NextBackoff returns the fixed delay regardless of attempt.
func (s *FixedRetryStrategy) NextBackoff(attempt int) int64 {
	if s.DelayMs < 0 {
		return 0
	}
	return s.DelayMs
}

// SimpleRetryStrategy provides basic exponential backoff.
type SimpleRetryStrategy struct {
	MaxAttempts int
	BaseDelayMs int64
}

// NextBackoff calculates the next backoff duration in milliseconds.
func (s *SimpleRetryStrategy) NextBackoff(attempt int) int64 {
	if s.MaxAttempts <= 0 {
		return -1
	}
	if attempt >= s.MaxAttempts {
		return -1
	}
	if attempt < 0 {
		attempt = 0
	}
	// Cap at 30 seconds; checked before shifting so large attempts cannot overflow.
	const maxDelay = int64(30000)
	if attempt >= 30 || s.BaseDelayMs > maxDelay>>uint(attempt) {
		return maxDelay
	}
	return s.BaseDelayMs << uint(attempt)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
