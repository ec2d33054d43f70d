// Package api defines the small set of shared HTTP helpers and response
// types used by crore's optional status endpoint.
package api

// Error codes for consistent status-endpoint error responses.
const (
	ErrorUnauthorized = "unauthorized"
)
