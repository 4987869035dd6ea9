package models

// FetchStatus is the state of a fetch operation as seen by the rendering layer.
type FetchStatus string

const (
	StatusIdle     FetchStatus = "idle"
	StatusFetching FetchStatus = "fetching"
	StatusComplete FetchStatus = "complete"
	StatusError    FetchStatus = "error"
)

// Terminal reports whether s ends a fetch operation.
func (s FetchStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}
