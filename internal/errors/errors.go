package errors

import "fmt"

type DatabaseError struct {
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource   string
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Identifier)
}

// ValidationError reports a request field that failed a domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s - %v", e.StatusCode, e.Message, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type WebSocketError struct {
	Operation string
	Err       error
}

func (e *WebSocketError) Error() string {
	return fmt.Sprintf("WebSocket error during %s: %v", e.Operation, e.Err)
}

func (e *WebSocketError) Unwrap() error {
	return e.Err
}
