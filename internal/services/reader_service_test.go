package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"histreader/internal/models"
)

type sourceFunc func(ctx context.Context, obs StatusObserver) (*models.Article, error)

func (f sourceFunc) Fetch(ctx context.Context, obs StatusObserver) (*models.Article, error) {
	return f(ctx, obs)
}

func completeSource(a *models.Article) sourceFunc {
	return func(_ context.Context, obs StatusObserver) (*models.Article, error) {
		obs.OnStatus(models.StatusEvent{Status: models.StatusFetching, MaxAttempts: 3})
		obs.OnStatus(models.StatusEvent{Status: models.StatusComplete, Topic: a.HeaderTopic, MaxAttempts: 3})
		return a, nil
	}
}

func TestReaderService_RecordsCompletedFetch(t *testing.T) {
	history := new(mockHistory)
	article := &models.Article{HeaderTopic: "元寇", HeaderCategory: "鎌倉時代", CharCount: 42, Attempts: 2}
	history.On("RecordFetch", mock.Anything, mock.MatchedBy(func(r *models.FetchRecord) bool {
		return r.Status == models.StatusComplete &&
			r.Title == "元寇" &&
			r.Category == "鎌倉時代" &&
			r.CharCount == 42 &&
			r.Attempts == 2 &&
			!r.CompletedAt.Before(r.StartedAt)
	})).Return(nil).Once()
	svc := NewReaderService(ReaderServiceDeps{Source: completeSource(article), History: history})
	events := &eventLog{}

	assert.Equal(t, models.StatusIdle, svc.Latest().Status)

	got, err := svc.Fetch(context.Background(), events)

	require.NoError(t, err)
	assert.Same(t, article, got)
	assert.Len(t, events.all(), 2)
	assert.Equal(t, models.StatusComplete, svc.Latest().Status)
	assert.Equal(t, "元寇", svc.Latest().Topic)
	history.AssertExpectations(t)
}

func TestReaderService_RecordsFailure(t *testing.T) {
	history := new(mockHistory)
	history.On("RecordFetch", mock.Anything, mock.MatchedBy(func(r *models.FetchRecord) bool {
		return r.Status == models.StatusError && r.Attempts == 4 && r.Error != ""
	})).Return(nil).Once()
	failing := sourceFunc(func(context.Context, StatusObserver) (*models.Article, error) {
		return nil, &models.ExhaustedRetriesError{Attempts: 4, Err: models.ErrTransport}
	})
	svc := NewReaderService(ReaderServiceDeps{Source: failing, History: history})

	_, err := svc.Fetch(context.Background(), nil)

	assert.ErrorIs(t, err, models.ErrTransport)
	history.AssertExpectations(t)
}

func TestReaderService_HistoryFailureIsNotSurfaced(t *testing.T) {
	history := new(mockHistory)
	history.On("RecordFetch", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	svc := NewReaderService(ReaderServiceDeps{Source: completeSource(&models.Article{HeaderTopic: "x"}), History: history})

	_, err := svc.Fetch(context.Background(), nil)

	assert.NoError(t, err)
	history.AssertExpectations(t)
}

func TestReaderService_RejectsConcurrentFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	blocking := sourceFunc(func(context.Context, StatusObserver) (*models.Article, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return &models.Article{HeaderTopic: "x"}, nil
	})
	svc := NewReaderService(ReaderServiceDeps{Source: blocking})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Fetch(context.Background(), nil)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch did not start")
	}

	assert.True(t, svc.Busy())
	_, err := svc.Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrFetchInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, svc.Busy())

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestHistoryService_Recent(t *testing.T) {
	history := new(mockHistory)
	history.On("ListFetches", mock.Anything, DefaultHistoryLimit).Return(nil, nil).Once()
	history.On("ListFetches", mock.Anything, MaxHistoryLimit).Return([]*models.FetchRecord{{Title: "元寇"}}, nil).Once()
	history.On("ListFetches", mock.Anything, 5).Return(nil, errors.New("boom")).Once()
	svc := NewHistoryService(history)

	recs, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	recs, err = svc.Recent(context.Background(), 10000)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = svc.Recent(context.Background(), 5)
	assert.Error(t, err)
	history.AssertExpectations(t)
}
