package sheetimport

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic codes
const (
	ErrCodeUnparsableNumber = "ERR_IMPORT_UNPARSABLE_NUMBER"
	ErrCodeMissingName      = "ERR_IMPORT_MISSING_NAME"
	ErrCodeUnknownMonth     = "ERR_IMPORT_UNKNOWN_MONTH"
	ErrCodeShortRow         = "ERR_IMPORT_SHORT_ROW"
)

// Structural failures abort an upload
var (
	// ErrUnsupportedFormat is returned for file extensions other than csv, xls, xlsx
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnreadableWorkbook is returned when the workbook content cannot be decoded
	ErrUnreadableWorkbook = errors.New("unable to read workbook")

	// ErrEmptyWorkbook is returned when the first sheet has no rows
	ErrEmptyWorkbook = errors.New("workbook is empty")

	// ErrHeaderNotFound is returned when no plan/fact header row exists
	ErrHeaderNotFound = errors.New("header row with plan and fact columns not found")

	// ErrNoMonthColumns is returned when a multi-month header maps no month
	ErrNoMonthColumns = errors.New("no month columns recognized in header")
)

// RowError is a cell-level diagnostic. Row is 1-based as shown in a
// spreadsheet application.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowErrorWithValue creates a RowError carrying the offending value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
		Value:   value,
	}
}

// ErrorCollection gathers diagnostics up to a limit while counting all of them
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddNumberError records a numeric cell that was read as zero
func (ec *ErrorCollection) AddNumberError(row int, column, value string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeUnparsableNumber, "value is not a number, read as 0.00", value))
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
