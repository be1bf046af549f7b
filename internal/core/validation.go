package core

// validation.go checks batch structure and coerces row fields.
//
// Validation happens at two levels:
//  1. Header validation: the first line must equal ExpectedColumns exactly
//  2. Field coercion: salary and hire date failures become row errors
//
// A header failure rejects the whole batch. Field failures only drop the
// offending field from the write.

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Column name
	Value   string // The raw value that failed
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	return e.Message
}

// HeaderError reports a header that does not match ExpectedColumns.
type HeaderError struct {
	Got []string
}

func (e *HeaderError) Error() string {
	return HeaderMismatchMessage()
}

// HeaderMismatchMessage is the single error recorded for a rejected batch.
func HeaderMismatchMessage() string {
	return "Input columns must match: [" + strings.Join(ExpectedColumns, ", ") + "]"
}

// ValidateHeader compares header fields with ExpectedColumns, ordered and case-sensitive.
func ValidateHeader(header []string) error {
	if len(header) != len(ExpectedColumns) {
		return &HeaderError{Got: header}
	}
	for i, col := range ExpectedColumns {
		if header[i] != col {
			return &HeaderError{Got: header}
		}
	}
	return nil
}

// employeeRow is one data row split into its named columns.
type employeeRow struct {
	Name         string
	Email        string
	ManagerEmail string
	Salary       string
	HireDate     string
}

// parseRow maps fields to columns. ok is false when the row does not have
// exactly one field per expected column.
func parseRow(fields []string) (employeeRow, bool) {
	if len(fields) != len(ExpectedColumns) {
		return employeeRow{}, false
	}
	return employeeRow{
		Name:         strings.TrimSpace(fields[0]),
		Email:        NormalizeEmail(fields[1]),
		ManagerEmail: NormalizeEmail(fields[2]),
		Salary:       fields[3],
		HireDate:     fields[4],
	}, true
}

// coercedFields are the typed values of a row. Invalid fields stay
// Valid=false and are left out of the write.
type coercedFields struct {
	Salary   pgtype.Int8
	HireDate pgtype.Date
	Errors   []ValidationError
}

func coerceRow(row employeeRow) coercedFields {
	var out coercedFields

	if salary, ok := ParseSalary(row.Salary); ok {
		out.Salary = salary
	} else {
		out.Errors = append(out.Errors, ValidationError{
			Field:   "Salary",
			Value:   row.Salary,
			Message: fmt.Sprintf("Salary must be a valid number, received: %s", row.Salary),
		})
	}

	if hireDate, ok := ParseHireDate(row.HireDate); ok {
		out.HireDate = hireDate
	} else {
		out.Errors = append(out.Errors, ValidationError{
			Field:   "Hire Date",
			Value:   row.HireDate,
			Message: fmt.Sprintf("Hire date must be a valid date, received: %s", row.HireDate),
		})
	}

	return out
}
