package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrThrottled is returned when a request is refused because Graph asked
	// the tenant to back off. Nothing is retried.
	ErrThrottled = errors.New("graph throttled the request")

	// ErrForeignNextLink is returned when a next link points outside the
	// configured Graph host.
	ErrForeignNextLink = errors.New("next link leaves the graph host")

	// ErrInvalidConfig is wrapped by every configuration error from New.
	ErrInvalidConfig = errors.New("invalid graph configuration")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than throttling.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors other than throttling.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassThrottled represents 429 and 503 throttling responses.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// GraphError is a failed Graph response.
type GraphError struct {
	StatusCode int
	ErrorClass ErrorClass
	// Code and Message come from the Graph error body when present.
	Code    string
	Message string
	// RequestID echoes the client-request-id sent with the request.
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("graph %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("graph %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *GraphError) Unwrap() error {
	return e.Err
}

// errorBody is the Graph error envelope.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseErrorBody extracts code and message from a Graph error body. Bodies
// that are not in Graph's format yield empty strings.
func parseErrorBody(body []byte) (code, message string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", ""
	}
	return eb.Error.Code, eb.Error.Message
}
