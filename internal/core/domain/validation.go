package domain

import (
	"fmt"
	"strings"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ValidationCode names one structural rule a set of lines can violate.
type ValidationCode string

const (
	CodeNoLines        ValidationCode = "NO_LINES"
	CodeBothSides      ValidationCode = "BOTH_SIDES"
	CodeNoSide         ValidationCode = "NO_SIDE"
	CodeNegativeAmount ValidationCode = "NEGATIVE_AMOUNT"
	CodeUnbalanced     ValidationCode = "UNBALANCED"
	CodeMissingAccount ValidationCode = "MISSING_ACCOUNT"
)

// ValidationIssue is a single rule violation. LineIndex is nil for entry-level issues.
type ValidationIssue struct {
	Code      ValidationCode `json:"code"`
	LineIndex *int           `json:"lineIndex,omitempty"`
	Message   string         `json:"message"`
}

// ValidationResult collects every problem found in one pass over the lines.
type ValidationResult struct {
	IsBalanced   bool              `json:"isBalanced"`
	Errors       []ValidationIssue `json:"errors"`
	TotalDebits  decimal.Decimal   `json:"totalDebits"`
	TotalCredits decimal.Decimal   `json:"totalCredits"`
}

// Has reports whether the result contains at least one issue with the given code.
func (r ValidationResult) Has(code ValidationCode) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the issue codes in the order they were found.
func (r ValidationResult) Codes() []ValidationCode {
	codes := make([]ValidationCode, len(r.Errors))
	for i, e := range r.Errors {
		codes[i] = e.Code
	}
	return codes
}

// ValidationError carries a failed ValidationResult and matches apperrors.ErrValidationFailed.
type ValidationError struct {
	Result ValidationResult
}

// NewValidationError wraps a failed result.
func NewValidationError(result ValidationResult) *ValidationError {
	return &ValidationError{Result: result}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Errors))
	for _, issue := range e.Result.Errors {
		msgs = append(msgs, issue.Message)
	}
	return fmt.Sprintf("%s: %s", apperrors.ErrValidationFailed, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrValidationFailed
}
