// Package errors carries an HTTP status and field details alongside an error so
// handlers can return plain errors and still produce a useful response.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jdholdren/sweep/internal/sweep"
)

// Error is what the API writes back to callers.
type Error struct {
	Status  int
	Err     error // The error this wraps
	Details []Detail
}

type Detail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s, details: %v", e.Status, e.Err, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type transport struct {
	Message string   `json:"message"`
	Details []Detail `json:"details"`
	Status  int      `json:"status"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	msg := http.StatusText(e.Status)
	if e.Err != nil {
		msg = e.Err.Error()
	}

	return json.Marshal(transport{
		Message: msg,
		Details: e.Details,
		Status:  e.Status,
	})
}

func (e *Error) UnmarshalJSON(byts []byte) error {
	t := transport{}
	if err := json.Unmarshal(byts, &t); err != nil {
		return err
	}

	e.Err = errors.New(t.Message)
	e.Details = t.Details
	e.Status = t.Status
	return nil
}

// E builds an [Error] from any mix of a message, an error, a status code and details.
func E(args ...any) *Error {
	ret := &Error{
		Status:  http.StatusInternalServerError,
		Err:     nil,
		Details: nil,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		case Detail:
			ret.Details = append(ret.Details, arg)
		case []Detail:
			ret.Details = append(ret.Details, arg...)
		}
	}

	return ret
}

// Coerce turns any error into an [Error], picking the status from the domain sentinels.
//
// Errors that don't match anything known are hidden behind a generic 500.
func Coerce(err error) *Error {
	if sErr := (&Error{}); errors.As(err, &sErr) {
		return sErr
	}

	switch {
	case errors.Is(err, sweep.ErrNotFound):
		return E(http.StatusNotFound, err)
	case errors.Is(err, sweep.ErrConflict):
		return E(http.StatusConflict, err)
	case errors.Is(err, sweep.ErrSourceUnavailable), errors.Is(err, sweep.ErrStorageUnavailable):
		return E(http.StatusServiceUnavailable, err)
	}

	return E(http.StatusInternalServerError, "internal server error")
}
