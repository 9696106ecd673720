package errors_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/AltairaLabs/TaskKit/pkg/errors"
)

func TestNew(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := pkgerrors.New(pkgerrors.ComponentEngine, "fetchAndLock", cause)

	assert.Equal(t, "engine", err.Component)
	assert.Equal(t, "fetchAndLock", err.Operation)
	assert.Equal(t, 0, err.StatusCode)
	assert.Nil(t, err.Details)
	assert.Equal(t, cause, err.Cause)
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *pkgerrors.ContextualError
		want string
	}{
		{
			name: "cause",
			err:  pkgerrors.New("worker", "dispatch", fmt.Errorf("handler panicked")),
			want: "[worker] dispatch: handler panicked",
		},
		{
			name: "no cause",
			err:  pkgerrors.New("sdk", "Start", nil),
			want: "[sdk] Start",
		},
		{
			name: "status code",
			err:  pkgerrors.New("engine", "complete", fmt.Errorf("bad request")).WithStatusCode(400),
			want: "[engine] complete (status 400): bad request",
		},
		{
			name: "engine message detail without cause",
			err: pkgerrors.New("engine", "unlock", nil).
				WithStatusCode(404).
				WithDetail(pkgerrors.DetailMessage, "External task with id abc does not exist"),
			want: "[engine] unlock (status 404): External task with id abc does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := pkgerrors.New("engine", "extendLock", io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	wrapped := fmt.Errorf("outer: %w", err)
	var ce *pkgerrors.ContextualError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "extendLock", ce.Operation)
}

func TestDetails(t *testing.T) {
	err := pkgerrors.New("engine", "bpmnError", nil).
		WithDetails(map[string]any{pkgerrors.DetailType: "RestException"}).
		WithDetail(pkgerrors.DetailErrorCode, 0)

	assert.Equal(t, "RestException", err.DetailString(pkgerrors.DetailType))
	assert.Equal(t, "", err.DetailString(pkgerrors.DetailErrorCode))
	assert.Equal(t, "", err.DetailString("missing"))
	assert.Equal(t, 0, err.Details[pkgerrors.DetailErrorCode])
}
