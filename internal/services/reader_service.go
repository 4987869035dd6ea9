package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"histreader/internal/models"
	"histreader/internal/store"
)

// ArticleSource runs one complete fetch operation; *ArticleFetcher implements it.
type ArticleSource interface {
	Fetch(ctx context.Context, obs StatusObserver) (*models.Article, error)
}

// ReaderService allows at most one in-flight fetch, keeps the latest status
// and records every finished operation to history.
type ReaderService struct {
	source  ArticleSource
	history store.HistoryStore

	inflight sync.Mutex

	mu     sync.RWMutex
	latest models.StatusEvent
}

type ReaderServiceDeps struct {
	Source  ArticleSource
	History store.HistoryStore // optional
}

func NewReaderService(deps ReaderServiceDeps) *ReaderService {
	return &ReaderService{
		source:  deps.Source,
		history: deps.History,
		latest:  models.StatusEvent{Status: models.StatusIdle, At: time.Now()},
	}
}

// Fetch runs a fetch operation. A call made while another is running returns
// models.ErrFetchInProgress without touching the running one.
func (s *ReaderService) Fetch(ctx context.Context, obs StatusObserver) (*models.Article, error) {
	if !s.inflight.TryLock() {
		return nil, models.ErrFetchInProgress
	}
	defer s.inflight.Unlock()

	if obs == nil {
		obs = noopObserver{}
	}
	rec := &models.FetchRecord{ID: uuid.New(), StartedAt: time.Now()}
	logger := log.WithField("fetch_id", rec.ID)
	logger.Info("fetch started")

	article, err := s.source.Fetch(ctx, StatusObserverFunc(func(evt models.StatusEvent) {
		s.setLatest(evt)
		obs.OnStatus(evt)
	}))

	rec.CompletedAt = time.Now()
	if err != nil {
		rec.Status = models.StatusError
		rec.Error = err.Error()
		if exhausted, ok := asExhausted(err); ok {
			rec.Attempts = exhausted.Attempts
		}
		logger.WithField("elapsed", rec.CompletedAt.Sub(rec.StartedAt)).Errorf("fetch failed: %v", err)
	} else {
		rec.Status = models.StatusComplete
		rec.Title = article.HeaderTopic
		rec.Category = article.HeaderCategory
		rec.CharCount = article.CharCount
		rec.Attempts = article.Attempts
		rec.UsedFallback = article.UsedFallback
		logger.WithFields(log.Fields{
			"title":    article.HeaderTopic,
			"attempts": article.Attempts,
			"chars":    article.CharCount,
		}).Info("fetch complete")
	}
	s.record(rec)

	return article, err
}

// Latest returns the most recent status event.
func (s *ReaderService) Latest() models.StatusEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Busy reports whether a fetch is currently running.
func (s *ReaderService) Busy() bool {
	if s.inflight.TryLock() {
		s.inflight.Unlock()
		return false
	}
	return true
}

func (s *ReaderService) setLatest(evt models.StatusEvent) {
	s.mu.Lock()
	s.latest = evt
	s.mu.Unlock()
}

// record writes the history row on a context detached from the caller so a
// cancelled request still leaves a trace.
func (s *ReaderService) record(rec *models.FetchRecord) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.RecordFetch(ctx, rec); err != nil {
		log.WithField("fetch_id", rec.ID).Warnf("failed to record fetch history: %v", err)
	}
}

func asExhausted(err error) (*models.ExhaustedRetriesError, bool) {
	var e *models.ExhaustedRetriesError
	ok := errors.As(err, &e)
	return e, ok
}
