package models

import (
	"errors"
	"fmt"
)

var (
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNotFound          = errors.New("not found")
	ErrEmptyContent      = errors.New("empty content")
	ErrValidation        = errors.New("validation error")

	ErrFetchInProgress = errors.New("a fetch is already in progress")
)

// SelectionError reports that no article could be resolved for a category.
type SelectionError struct {
	Category string
	Err      error
}

func (e *SelectionError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("topic selection failed: %v", e.Err)
	}
	return fmt.Sprintf("topic selection failed in category %q: %v", e.Category, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// ExhaustedRetriesError is the only error surfaced to the user after every
// attempt, including the fallback topic, has failed.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("could not fetch an article after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// UserMessage maps the cause of a failed fetch to text suitable for display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetchInProgress):
		return "A fetch is already running. Please wait for it to finish."
	case errors.Is(err, ErrTransport):
		return "The network is slow or the API did not respond. Please try again."
	case errors.Is(err, ErrMalformedResponse):
		return "The data returned by the Wikipedia API was not in the expected format."
	case errors.Is(err, ErrNotFound):
		return "The selected page does not exist."
	case errors.Is(err, ErrEmptyContent):
		return "The selected page has no content."
	default:
		return err.Error()
	}
}
