package http

import (
	"encoding/json"
	"net/http"
)

// PaginatedResponse wraps an offset-paginated list.
type PaginatedResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationMetadata `json:"pagination"`
}

// PaginationMetadata contains pagination information
type PaginationMetadata struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"totalCount,omitempty"`
	HasMore    bool  `json:"hasMore"`
}

// CursorPage wraps a keyset-paginated list. NextCursor is only set when the
// page came back full, so a client stops at the first short page.
type CursorPage[T any] struct {
	Data       []T    `json:"data"`
	NextCursor *int64 `json:"nextCursor,omitempty"`
}

// ListResponse wraps a list of items (non-paginated)
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header is already sent, so an encoding error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WritePaginated writes one offset page; hasMore is derived from the total.
func WritePaginated[T any](w http.ResponseWriter, data []T, limit, offset int, totalCount int64) {
	WriteJSON(w, http.StatusOK, PaginatedResponse[T]{
		Data: data,
		Pagination: PaginationMetadata{
			Limit:      limit,
			Offset:     offset,
			TotalCount: totalCount,
			HasMore:    int64(offset+len(data)) < totalCount,
		},
	})
}

// WriteCursorPage writes one keyset page, taking the cursor from the last item.
func WriteCursorPage[T any](w http.ResponseWriter, data []T, limit int, cursor func(T) int64) {
	page := CursorPage[T]{Data: data}
	if len(data) > 0 && len(data) == limit {
		next := cursor(data[len(data)-1])
		page.NextCursor = &next
	}
	WriteJSON(w, http.StatusOK, page)
}

// WriteList writes a simple list response
func WriteList[T any](w http.ResponseWriter, data []T) {
	WriteJSON(w, http.StatusOK, ListResponse[T]{
		Data:  data,
		Count: len(data),
	})
}
