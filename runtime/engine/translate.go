package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/AltairaLabs/TaskKit/pkg/errors"
)

// Response is the engine's answer to one request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Translate turns the result of one call of op into nil or an *Error.
//
// The classification is two independent lookups. A missing status (err set,
// resp nil, or a zero Status) is a lost connection for every operation. Otherwise a 2xx
// status succeeds and any other status is looked up in op's own table,
// falling back to a generic rejection. On success a non-empty body is
// decoded into result when result is non-nil; numbers decode as
// json.Number so variable values keep their precision.
//
// Translate is pure and never logs.
func Translate(op Operation, resp *Response, err error, result any) error {
	if err != nil || resp == nil || resp.Status == 0 {
		if err == nil {
			err = errors.New("no response status")
		}
		return &Error{
			Kind:      KindConnectionLost,
			Operation: op,
			Cause:     pkgerrors.New(pkgerrors.ComponentEngine, string(op), err),
		}
	}

	if resp.Status >= 200 && resp.Status < 300 {
		if result == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
			return nil
		}
		if decodeErr := decodeJSON(resp.Body, result); decodeErr != nil {
			return &Error{
				Kind:      KindRejected,
				Operation: op,
				Status:    resp.Status,
				Message:   "malformed response body",
				Cause: pkgerrors.New(pkgerrors.ComponentEngine, string(op), decodeErr).
					WithStatusCode(resp.Status),
			}
		}
		return nil
	}

	exc := parseException(resp.Body)
	cause := pkgerrors.New(pkgerrors.ComponentEngine, string(op), nil).
		WithStatusCode(resp.Status).
		WithDetails(map[string]any{
			pkgerrors.DetailType:    exc.Type,
			pkgerrors.DetailMessage: exc.Message,
		})
	if exc.Code != 0 {
		cause.WithDetail(pkgerrors.DetailErrorCode, exc.Code)
	}
	return &Error{
		Kind:      op.kindForStatus(resp.Status),
		Operation: op,
		Status:    resp.Status,
		Message:   exc.Message,
		Cause:     cause,
	}
}

func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseException reads the engine's error payload. Bodies that are not the
// expected JSON are kept verbatim as the message.
func parseException(body []byte) exceptionBody {
	var exc exceptionBody
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return exc
	}
	if json.Unmarshal(trimmed, &exc) != nil {
		exc.Message = string(trimmed)
	}
	return exc
}
