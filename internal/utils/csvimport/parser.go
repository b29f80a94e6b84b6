package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyFile is returned when the upload has no bytes at all.
	ErrEmptyFile = errors.New("CSV file is empty")
	// ErrInvalidEncoding is returned when the upload is not UTF-8.
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")
	// ErrMissingHeader is returned when there is no header row.
	ErrMissingHeader = errors.New("CSV file missing header row")
	// ErrNoDataRows is returned when only a header is present.
	ErrNoDataRows = errors.New("CSV file contains no data rows")
)

const encodingSniffSize = 4096

// Parser reads a header row followed by data rows, keyed by normalized header name.
type Parser struct {
	reader    *csv.Reader
	headers   []string
	headerMap map[string]int
	// currentRow is the physical line the last record started on.
	currentRow int
}

// Row is one data record with its 1-based line number in the file (the header is line 1).
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the trimmed value of column, or "".
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty reports whether every column is blank.
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// NewParser wraps r, stripping a UTF-8 BOM and rejecting non UTF-8 input.
func NewParser(r io.Reader) (*Parser, error) {
	br := bufio.NewReaderSize(r, encodingSniffSize)

	bom, err := br.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	sample, err := br.Peek(encodingSniffSize)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(sample) == 0 {
		return nil, ErrEmptyFile
	}
	if !validPrefix(sample, len(sample) < encodingSniffSize) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	return &Parser{reader: cr, headerMap: make(map[string]int)}, nil
}

// validPrefix tolerates a multi-byte rune cut off at the end of a partial sample.
func validPrefix(b []byte, complete bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if complete {
		return false
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return true
		}
	}
	return false
}

// ParseHeader reads the header row. Header names are trimmed and lower-cased.
func (p *Parser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.headers = make([]string, len(record))
	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(h))
		p.headers[i] = name
		p.headerMap[name] = i
	}
	p.currentRow = 1
	return nil
}

// Headers returns the normalized header names in file order.
func (p *Parser) Headers() []string {
	return p.headers
}

// MissingHeaders returns the names in required that the file does not have.
func (p *Parser) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.headerMap[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// ReadRow returns the next row or io.EOF.
func (p *Parser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			p.currentRow = parseErr.StartLine
		}
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	// Blank lines are skipped and quoted fields may span lines, so the record's
	// first field gives the line, not a record count.
	p.currentRow, _ = p.reader.FieldPos(0)

	row := &Row{LineNumber: p.currentRow, Data: make(map[string]string, len(p.headers))}
	for i, h := range p.headers {
		if i < len(record) {
			row.Data[h] = strings.TrimSpace(record[i])
		} else {
			row.Data[h] = ""
		}
	}
	return row, nil
}

// ReadAllRows reads the remaining rows, skipping blank ones.
func (p *Parser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
