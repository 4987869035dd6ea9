package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"histreader/internal/models"
)

// --- Job Client ---

type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueFetchJob(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error)
	Close() error
}

// --- History Store ---

type HistoryStore interface {
	RecordFetch(ctx context.Context, rec *models.FetchRecord) error
	ListFetches(ctx context.Context, limit int) ([]*models.FetchRecord, error)
}

// --- Preference Store ---

// PreferenceStore is a flat key/value store for reader preferences.
// GetPreference returns ErrNotFound for unknown keys.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// --- Job Store ---

// JobRecordParams holds parameters for recording a job event.
type JobRecordParams struct {
	JobID       uuid.UUID
	TaskType    string
	Payload     []byte
	Queue       string
	Status      string
	RequestedBy string
}

type JobStore interface {
	RecordJobEnqueue(ctx context.Context, params JobRecordParams) error
}

// Store is implemented by every persistence backend.
type Store interface {
	HistoryStore
	PreferenceStore
	JobStore
	Ping(ctx context.Context) error
	Close() error
}
