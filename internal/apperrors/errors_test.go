package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestKindOfAndHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   apperrors.Kind
		wantStatus int
	}{
		{"transition", &apperrors.TransitionError{From: "POSTED", Event: "SAVE"}, apperrors.KindInvalidTransition, http.StatusConflict},
		{"wrapped permission", fmt.Errorf("%w: no", apperrors.ErrPermissionDenied), apperrors.KindPermissionDenied, http.StatusForbidden},
		{"not found app error", apperrors.NewNotFoundError("entry e1 not found"), apperrors.KindNotFound, http.StatusNotFound},
		{"row error beats validation", apperrors.NewRowError(3, "debit", apperrors.ErrValidationFailed), apperrors.KindImportRowError, http.StatusBadRequest},
		{"dependency", fmt.Errorf("inventory: %w", apperrors.ErrDependencyFailure), apperrors.KindDependencyFailure, http.StatusBadGateway},
		{"app error code", apperrors.NewAppError(http.StatusBadRequest, "bad page token", errors.New("illegal base64")), apperrors.KindInternal, http.StatusBadRequest},
		{"unknown", errors.New("boom"), apperrors.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, apperrors.KindOf(tt.err))
			assert.Equal(t, tt.wantStatus, apperrors.HTTPStatus(tt.err))
		})
	}
}

func TestRowError(t *testing.T) {
	cause := errors.New("not a decimal")
	err := fmt.Errorf("group g1: %w", apperrors.NewRowError(12, "credit", cause))

	assert.Equal(t, 12, apperrors.RowOf(err))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, apperrors.ErrImportRow)
	assert.Contains(t, err.Error(), "row 12, column 'credit'")
	assert.Zero(t, apperrors.RowOf(cause))
}

func TestTransitionError(t *testing.T) {
	err := &apperrors.TransitionError{From: "REVERSED", Event: "REVERSE"}
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, "invalid state transition: event REVERSE is not allowed from state REVERSED", err.Error())
}
