package services

import (
	"context"

	"histreader/internal/models"
	"histreader/internal/store"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

type HistoryService struct {
	history store.HistoryStore
}

func NewHistoryService(history store.HistoryStore) *HistoryService {
	return &HistoryService{history: history}
}

// Recent returns up to limit records, newest first. Out-of-range limits are
// replaced by DefaultHistoryLimit or capped at MaxHistoryLimit.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]*models.FetchRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	records, err := s.history.ListFetches(ctx, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.FetchRecord{}
	}
	return records, nil
}
