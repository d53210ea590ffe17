package gateway

import (
	"encoding/json"
	"fmt"
)

// ErrorItem is one entry of the gateway's error list
type ErrorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the gateway
type APIError struct {
	HTTPStatus int         `json:"httpStatus"`
	ErrorID    string      `json:"errorId,omitempty"`
	Items      []ErrorItem `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Items) > 0 {
		return fmt.Sprintf("gateway error %d: [%s] %s", e.HTTPStatus, e.Items[0].Code, e.Items[0].Message)
	}
	return fmt.Sprintf("gateway error %d", e.HTTPStatus)
}

// HasCode reports whether any error item carries the given gateway code
func (e *APIError) HasCode(code string) bool {
	if e == nil {
		return false
	}
	for _, item := range e.Items {
		if item.Code == code {
			return true
		}
	}
	return false
}

// FirstMessage returns the first human-readable message, if any
func (e *APIError) FirstMessage() string {
	if e == nil || len(e.Items) == 0 {
		return ""
	}
	return e.Items[0].Message
}

// Result is the outcome of one gateway call. Exactly one of OK, TimedOut or
// Err describes it: OK carries a response body, TimedOut marks a call safe to
// retry, Err carries the gateway's error list.
type Result struct {
	OK       bool
	TimedOut bool
	Body     json.RawMessage
	Err      *APIError
}

// ok wraps a successful response body. A 204 yields an empty object.
func ok(body []byte) Result {
	if len(body) == 0 {
		body = []byte("{}")
	}
	return Result{OK: true, Body: body}
}

func timedOut() Result {
	return Result{TimedOut: true}
}

func failed(err *APIError) Result {
	return Result{Err: err}
}

// Decode unmarshals a successful body into v
func (r Result) Decode(v any) error {
	if !r.OK {
		if r.TimedOut {
			return fmt.Errorf("gateway call timed out")
		}
		return r.Err
	}
	return json.Unmarshal(r.Body, v)
}

// HasErrorCode reports whether the result failed with the given gateway code
func (r Result) HasErrorCode(code string) bool {
	return r.Err.HasCode(code)
}
