package tasks

import (
	"encoding/json"
	"time"
)

const (
	// TypeFetchArticle is the task type for fetching one random article.
	TypeFetchArticle = "article:fetch"

	// QueueDefault is the queue fetch tasks are enqueued on.
	QueueDefault = "default"
)

// RequestedBy values.
const (
	RequestedByCLI       = "cli"
	RequestedByAPI       = "api"
	RequestedByScheduler = "scheduler"
)

// FetchArticlePayload is the payload of a TypeFetchArticle task.
// RequestedAt is nil for periodic tasks: the scheduler reuses one encoded
// payload for every run, so no single timestamp would be true.
type FetchArticlePayload struct {
	RequestedBy string     `json:"requested_by"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
}

// NewFetchArticlePayload encodes a payload for a one-off TypeFetchArticle task.
func NewFetchArticlePayload(requestedBy string, at time.Time) ([]byte, error) {
	return json.Marshal(FetchArticlePayload{RequestedBy: requestedBy, RequestedAt: &at})
}

// NewScheduledFetchPayload encodes the payload registered with the periodic
// scheduler. It carries no request time.
func NewScheduledFetchPayload() ([]byte, error) {
	return json.Marshal(FetchArticlePayload{RequestedBy: RequestedByScheduler})
}

// DecodeFetchArticlePayload decodes a TypeFetchArticle payload.
func DecodeFetchArticlePayload(b []byte) (FetchArticlePayload, error) {
	var p FetchArticlePayload
	err := json.Unmarshal(b, &p)
	return p, err
}
