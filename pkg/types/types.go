// Package types holds response shapes shared across the API surface.
package types

// ErrorResponse is the standard error body for API failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a mutation with no other payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}
