package models

import (
	"time"

	"github.com/google/uuid"
)

// TopicResult is the article title chosen by the topic selector together with
// the category it was drawn from.
type TopicResult struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// RetryState counts attempts for a single fetch operation.
type RetryState struct {
	Attempt     int `json:"attempt"`
	MaxAttempts int `json:"max_attempts"`
}

// Final reports whether the current attempt is the fallback attempt.
func (r RetryState) Final() bool {
	return r.Attempt == r.MaxAttempts
}

// Exhausted reports whether no attempts remain.
func (r RetryState) Exhausted() bool {
	return r.Attempt > r.MaxAttempts
}

// Article is the display payload handed to the rendering layer.
type Article struct {
	HeaderTopic    string `json:"header_topic"`
	HeaderCategory string `json:"header_category"`
	BodyText       string `json:"body_text"`
	Content        string `json:"content"`    // header block + blank line + body
	CharCount      int    `json:"char_count"` // runes in Content
	Attempts       int    `json:"attempts"`
	UsedFallback   bool   `json:"used_fallback"`
}

// StatusEvent is emitted on every status transition of a fetch operation.
type StatusEvent struct {
	Status      FetchStatus `json:"status"`
	Attempt     int         `json:"attempt"`
	MaxAttempts int         `json:"max_attempts"`
	Topic       string      `json:"topic,omitempty"`
	Category    string      `json:"category,omitempty"`
	Message     string      `json:"message,omitempty"`
	At          time.Time   `json:"at"`
}

// FetchRecord is one row of fetch history.
type FetchRecord struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Title        string      `db:"title" json:"title"`
	Category     string      `db:"category" json:"category"`
	CharCount    int         `db:"char_count" json:"char_count"`
	Attempts     int         `db:"attempts" json:"attempts"`
	UsedFallback bool        `db:"used_fallback" json:"used_fallback"`
	Status       FetchStatus `db:"status" json:"status"`
	Error        string      `db:"error" json:"error,omitempty"`
	StartedAt    time.Time   `db:"started_at" json:"started_at"`
	CompletedAt  time.Time   `db:"completed_at" json:"completed_at"`
}

// Preferences holds the reader's display settings.
type Preferences struct {
	FontSize   int    `json:"font_size"`
	FontFamily string `json:"font_family"`
}
