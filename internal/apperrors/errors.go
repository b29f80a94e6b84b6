package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation is kept as an alias of ErrValidationFailed for input-shape errors
// raised before any ledger rule is evaluated.
var ErrValidation = ErrValidationFailed

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInternal indicates an unexpected failure in a collaborator or the store.
var ErrInternal = errors.New("internal error")

// Ledger workflow error kinds.
var (
	ErrValidationFailed       = errors.New("validation failed")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrAlreadyResolved        = errors.New("approval already resolved")
	ErrAlreadyReversed        = errors.New("entry already reversed")
	ErrNotPosted              = errors.New("entry is not posted")
	ErrReasonRequired         = errors.New("a non-empty reason is required")
	ErrNoApproversSpecified   = errors.New("at least one approver must be specified")
	ErrDependencyFailure      = errors.New("dependency failure")
	ErrConcurrentModification = errors.New("entry was modified concurrently")
	ErrImportRow              = errors.New("import row error")
)

// Kind is the wire name of an error kind, used in batch failures and API bodies.
type Kind string

const (
	KindValidationFailed       Kind = "VALIDATION_FAILED"
	KindInvalidTransition      Kind = "INVALID_TRANSITION"
	KindPermissionDenied       Kind = "PERMISSION_DENIED"
	KindAlreadyResolved        Kind = "ALREADY_RESOLVED"
	KindAlreadyReversed        Kind = "ALREADY_REVERSED"
	KindNotPosted              Kind = "NOT_POSTED"
	KindReasonRequired         Kind = "REASON_REQUIRED"
	KindNoApproversSpecified   Kind = "NO_APPROVERS_SPECIFIED"
	KindDependencyFailure      Kind = "DEPENDENCY_FAILURE"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
	KindImportRowError         Kind = "IMPORT_ROW_ERROR"
	KindNotFound               Kind = "NOT_FOUND"
	KindDuplicate              Kind = "DUPLICATE"
	KindInternal               Kind = "INTERNAL"
)

// ImportRowError is checked before ValidationFailed so row-level failures keep their row number.
var kindTable = []struct {
	sentinel error
	kind     Kind
	status   int
}{
	{ErrImportRow, KindImportRowError, http.StatusBadRequest},
	{ErrValidationFailed, KindValidationFailed, http.StatusUnprocessableEntity},
	{ErrInvalidTransition, KindInvalidTransition, http.StatusConflict},
	{ErrPermissionDenied, KindPermissionDenied, http.StatusForbidden},
	{ErrAlreadyResolved, KindAlreadyResolved, http.StatusConflict},
	{ErrAlreadyReversed, KindAlreadyReversed, http.StatusConflict},
	{ErrNotPosted, KindNotPosted, http.StatusConflict},
	{ErrReasonRequired, KindReasonRequired, http.StatusBadRequest},
	{ErrNoApproversSpecified, KindNoApproversSpecified, http.StatusBadRequest},
	{ErrDependencyFailure, KindDependencyFailure, http.StatusBadGateway},
	{ErrConcurrentModification, KindConcurrentModification, http.StatusConflict},
	{ErrNotFound, KindNotFound, http.StatusNotFound},
	{ErrDuplicate, KindDuplicate, http.StatusConflict},
}

// KindOf classifies err into one of the known kinds. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	for _, k := range kindTable {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	for _, k := range kindTable {
		if errors.Is(err, k.sentinel) {
			return k.status
		}
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// AppError carries an HTTP-ish code alongside a message and the underlying cause.
// Repositories use it to wrap driver errors.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that matches ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message, Err: ErrNotFound}
}

// TransitionError reports an event that is not legal from the entry's current state.
type TransitionError struct {
	From  string
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event %s is not allowed from state %s", ErrInvalidTransition, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// RowError is a failure tied to a specific input row of an import.
type RowError struct {
	Row    int    `json:"row"`
	Column string `json:"column,omitempty"`
	Cause  error  `json:"-"`
}

func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %v", e.Row, e.Column, e.Cause)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Cause)
}

// Is reports ErrImportRow so callers can classify without unwrapping the cause.
func (e *RowError) Is(target error) bool {
	return target == ErrImportRow
}

func (e *RowError) Unwrap() error {
	return e.Cause
}

// NewRowError creates a RowError.
func NewRowError(row int, column string, cause error) *RowError {
	return &RowError{Row: row, Column: column, Cause: cause}
}

// RowOf returns the row number carried by err, or 0.
func RowOf(err error) int {
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return rowErr.Row
	}
	return 0
}
