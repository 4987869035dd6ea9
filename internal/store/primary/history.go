package primary

import (
	"context"
	"fmt"

	"histreader/internal/models"
)

// --- History Store Implementation ---

func (s *StoreImpl) RecordFetch(ctx context.Context, rec *models.FetchRecord) error {
	sql := `
		INSERT INTO fetch_history (id, title, category, char_count, attempts, used_fallback, status, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.Exec(ctx, sql,
		rec.ID, rec.Title, rec.Category, rec.CharCount, rec.Attempts, rec.UsedFallback,
		string(rec.Status), rec.Error, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record fetch %s: %w", rec.ID, err)
	}
	return nil
}

func (s *StoreImpl) ListFetches(ctx context.Context, limit int) ([]*models.FetchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	sql := `
		SELECT id, title, category, char_count, attempts, used_fallback, status, error, started_at, completed_at
		FROM fetch_history
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetch history: %w", err)
	}
	defer rows.Close()

	var records []*models.FetchRecord
	for rows.Next() {
		r := &models.FetchRecord{}
		var status string
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Category, &r.CharCount, &r.Attempts, &r.UsedFallback,
			&status, &r.Error, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fetch history row: %w", err)
		}
		r.Status = models.FetchStatus(status)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch history rows: %w", err)
	}
	return records, nil
}
