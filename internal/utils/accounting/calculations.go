package accounting

import (
	"fmt"
	"strings"

	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceEpsilon is the largest debit/credit difference still treated as balanced.
var BalanceEpsilon = decimal.RequireFromString("0.01")

// EntryTotals sums both sides of the given lines.
func EntryTotals(lines []domain.JournalLine) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// IsWithinEpsilon reports whether the two sides differ by less than BalanceEpsilon.
func IsWithinEpsilon(debits, credits decimal.Decimal) bool {
	return debits.Sub(credits).Abs().LessThan(BalanceEpsilon)
}

// ValidateLines runs every structural check against lines and collects all problems.
// It has no side effects and may be called on a draft mid-edit.
func ValidateLines(lines []domain.JournalLine) domain.ValidationResult {
	result := domain.ValidationResult{Errors: []domain.ValidationIssue{}}
	result.TotalDebits, result.TotalCredits = EntryTotals(lines)

	if len(lines) == 0 {
		result.Errors = append(result.Errors, domain.ValidationIssue{
			Code:    domain.CodeNoLines,
			Message: "entry must have at least one line",
		})
		return result
	}

	for i, l := range lines {
		idx := i
		if strings.TrimSpace(l.AccountID) == "" {
			result.Errors = append(result.Errors, issue(domain.CodeMissingAccount, idx, "line %d has no account", idx+1))
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			result.Errors = append(result.Errors, issue(domain.CodeNegativeAmount, idx, "line %d has a negative amount", idx+1))
		}
		switch debitSet, creditSet := !l.Debit.IsZero(), !l.Credit.IsZero(); {
		case debitSet && creditSet:
			result.Errors = append(result.Errors, issue(domain.CodeBothSides, idx, "line %d has both a debit and a credit", idx+1))
		case !debitSet && !creditSet:
			result.Errors = append(result.Errors, issue(domain.CodeNoSide, idx, "line %d has neither a debit nor a credit", idx+1))
		}
	}

	if !IsWithinEpsilon(result.TotalDebits, result.TotalCredits) {
		result.Errors = append(result.Errors, domain.ValidationIssue{
			Code: domain.CodeUnbalanced,
			Message: fmt.Sprintf("debits %s do not equal credits %s",
				result.TotalDebits.StringFixed(2), result.TotalCredits.StringFixed(2)),
		})
	}

	result.IsBalanced = len(result.Errors) == 0
	return result
}

func issue(code domain.ValidationCode, idx int, format string, args ...any) domain.ValidationIssue {
	return domain.ValidationIssue{Code: code, LineIndex: &idx, Message: fmt.Sprintf(format, args...)}
}
