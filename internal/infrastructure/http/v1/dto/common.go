// Package dto defines the HTTP wire contracts.
package dto

// IDResponse is the minimal response carrying a created entity id.
type IDResponse struct {
	ID string `json:"id"`
}

// ListResponse is a generic paginated list envelope.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
