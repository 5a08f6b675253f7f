package api

import (
	"errors"
	"fmt"
	"strings"

	ghAPI "github.com/cli/go-gh/v2/pkg/api"
)

// TransportError is a network or IO failure. The core never retries it on
// its own; callers retry through an explicit reload.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FieldError is one field-level message from a GitHub error body.
type FieldError struct {
	Resource string
	Field    string
	Code     string
	Message  string
}

// RemoteStatusError is a non-2xx response. Message and field errors are
// kept verbatim from the response body.
type RemoteStatusError struct {
	Op         string
	StatusCode int
	Message    string
	Fields     []FieldError
}

func (e *RemoteStatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: HTTP %d", e.Op, e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, f := range e.Fields {
		switch {
		case f.Message != "":
			fmt.Fprintf(&b, " (%s)", f.Message)
		case f.Field != "":
			fmt.Fprintf(&b, " (%s.%s is %s)", f.Resource, f.Field, f.Code)
		}
	}
	return b.String()
}

func classify(op string, err error) error {
	var httpErr *ghAPI.HTTPError
	if errors.As(err, &httpErr) {
		se := &RemoteStatusError{
			Op:         op,
			StatusCode: httpErr.StatusCode,
			Message:    httpErr.Message,
		}
		for _, item := range httpErr.Errors {
			se.Fields = append(se.Fields, FieldError{
				Resource: item.Resource,
				Field:    item.Field,
				Code:     item.Code,
				Message:  item.Message,
			})
		}
		return se
	}
	return &TransportError{Op: op, Err: err}
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsStatus(err error, code int) bool {
	var se *RemoteStatusError
	return errors.As(err, &se) && se.StatusCode == code
}
