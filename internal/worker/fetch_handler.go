// Package worker holds the asynq task handlers run by the worker process.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"histreader/internal/models"
	"histreader/internal/services"
	"histreader/internal/tasks"
)

// FetchDeps holds what the fetch handler needs.
type FetchDeps struct {
	Reader services.ArticleSource
}

// RegisterHandlers wires every task type onto mux.
func RegisterHandlers(mux *asynq.ServeMux, deps FetchDeps) {
	log.Infof("Registering %s handler", tasks.TypeFetchArticle)
	mux.HandleFunc(tasks.TypeFetchArticle, HandleFetchArticle(deps))
}

// HandleFetchArticle runs one fetch operation per task. A collision with a
// running fetch and an exhausted retry budget both skip asynq retries, since
// the fetcher already retried internally.
func HandleFetchArticle(deps FetchDeps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		payload, err := tasks.DecodeFetchArticlePayload(t.Payload())
		if err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
		logger := log.WithFields(log.Fields{"type": t.Type(), "requested_by": payload.RequestedBy})

		article, err := deps.Reader.Fetch(ctx, services.StatusObserverFunc(func(evt models.StatusEvent) {
			logger.WithFields(log.Fields{"status": evt.Status, "attempt": evt.Attempt}).Debug(evt.Message)
		}))
		if err != nil {
			var exhausted *models.ExhaustedRetriesError
			if errors.Is(err, models.ErrFetchInProgress) || errors.As(err, &exhausted) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}

		logger.WithFields(log.Fields{
			"title":    article.HeaderTopic,
			"category": article.HeaderCategory,
			"chars":    article.CharCount,
		}).Info("scheduled fetch complete")
		return nil
	}
}
