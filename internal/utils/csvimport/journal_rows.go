package csvimport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SscSPs/journal_ledger/internal/apperrors"
	"github.com/SscSPs/journal_ledger/internal/core/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted format for the date column.
const DateLayout = "2006-01-02"

// Column names understood by the journal import.
const (
	ColDate        = "date"
	ColAccountID   = "account_id"
	ColReference   = "reference"
	ColEntryKey    = "entry_key"
	ColMemo        = "memo"
	ColDebit       = "debit"
	ColCredit      = "credit"
	ColLineMemo    = "line_memo"
	ColDepartment  = "department"
	ColProject     = "project"
	ColLocation    = "location"
	ColEntryTypeID = "entry_type_id"
)

// RequiredHeaders must be present in every import file.
var RequiredHeaders = []string{ColDate, ColAccountID}

type rawLine struct {
	Date      string `validate:"required,datetime=2006-01-02"`
	AccountID string `validate:"required,max=64"`
	Debit     string `validate:"omitempty,numeric"`
	Credit    string `validate:"omitempty,numeric"`
	Reference string `validate:"max=64"`
	Memo      string `validate:"max=500"`
}

var fieldColumns = map[string]string{
	"Date":      ColDate,
	"AccountID": ColAccountID,
	"Debit":     ColDebit,
	"Credit":    ColCredit,
	"Reference": ColReference,
	"Memo":      ColMemo,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LineRow is one parsed line plus the header fields it carries for its entry.
// Err is set, as an *apperrors.RowError, when the row could not be parsed.
type LineRow struct {
	Row         int
	Err         error
	GroupKey    string
	EntryDate   time.Time
	Reference   string
	Memo        string
	EntryTypeID string
	Line        domain.JournalLine
}

// RowGroup is the set of rows that make up one logical entry.
type RowGroup struct {
	Key      string
	FirstRow int
	Rows     []LineRow
}

// FirstError returns the error of the earliest failed row in the group, or nil.
func (g RowGroup) FirstError() error {
	for _, r := range g.Rows {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Lines returns the journal lines of the group in file order.
func (g RowGroup) Lines() []domain.JournalLine {
	lines := make([]domain.JournalLine, len(g.Rows))
	for i, r := range g.Rows {
		lines[i] = r.Line
		lines[i].LineNo = i + 1
	}
	return lines
}

// ParseJournalRows reads every data row. Rows that fail parsing are still returned, with
// Err set, so they can be grouped with the rest of their entry. The returned error is
// reserved for problems with the file itself.
func ParseJournalRows(r io.Reader) ([]LineRow, error) {
	p, err := NewParser(r)
	if err != nil {
		return nil, err
	}
	if err := p.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := p.MissingHeaders(RequiredHeaders); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", apperrors.ErrValidationFailed, strings.Join(missing, ", "))
	}

	records, err := p.ReadAllRows()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err)
	}
	if len(records) == 0 {
		return nil, ErrNoDataRows
	}

	rows := make([]LineRow, len(records))
	for i, rec := range records {
		rows[i] = parseRow(rec)
	}
	return rows, nil
}

func parseRow(rec *Row) LineRow {
	raw := rawLine{
		Date:      rec.Get(ColDate),
		AccountID: rec.Get(ColAccountID),
		Debit:     rec.Get(ColDebit),
		Credit:    rec.Get(ColCredit),
		Reference: rec.Get(ColReference),
		Memo:      rec.Get(ColMemo),
	}
	row := LineRow{
		Row:         rec.LineNumber,
		GroupKey:    groupKey(rec.Get(ColEntryKey), raw.Reference, raw.Date),
		Reference:   raw.Reference,
		Memo:        raw.Memo,
		EntryTypeID: rec.Get(ColEntryTypeID),
		Line: domain.JournalLine{
			AccountID:  raw.AccountID,
			Memo:       rec.Get(ColLineMemo),
			Department: rec.Get(ColDepartment),
			Project:    rec.Get(ColProject),
			Location:   rec.Get(ColLocation),
		},
	}

	if err := validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			row.Err = apperrors.NewRowError(rec.LineNumber, fieldColumns[fe.Field()], describe(fe))
		} else {
			row.Err = apperrors.NewRowError(rec.LineNumber, "", err)
		}
		return row
	}

	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		row.Err = apperrors.NewRowError(rec.LineNumber, ColDate, err)
		return row
	}
	row.EntryDate = date

	if row.Line.Debit, err = parseAmount(raw.Debit); err != nil {
		row.Err = apperrors.NewRowError(rec.LineNumber, ColDebit, err)
		return row
	}
	if row.Line.Credit, err = parseAmount(raw.Credit); err != nil {
		row.Err = apperrors.NewRowError(rec.LineNumber, ColCredit, err)
		return row
	}
	return row
}

// groupKey is the explicit entry key, or reference and date when none is given.
func groupKey(entryKey, reference, date string) string {
	if entryKey != "" {
		return entryKey
	}
	return reference + "|" + date
}

func parseAmount(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", v)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %s must not be negative", v)
	}
	return d, nil
}

func describe(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return errors.New("value is required")
	case "datetime":
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", fe.Value())
	case "numeric":
		return fmt.Errorf("invalid amount %q", fe.Value())
	case "max":
		return fmt.Errorf("value exceeds %s characters", fe.Param())
	}
	return fmt.Errorf("failed %s validation", fe.Tag())
}

// GroupRows groups rows by their key, in order of first appearance.
func GroupRows(rows []LineRow) []RowGroup {
	index := make(map[string]int)
	var groups []RowGroup
	for _, r := range rows {
		i, ok := index[r.GroupKey]
		if !ok {
			i = len(groups)
			index[r.GroupKey] = i
			groups = append(groups, RowGroup{Key: r.GroupKey, FirstRow: r.Row})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}
