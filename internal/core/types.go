package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ExpectedColumns is the header every batch must carry, in order.
var ExpectedColumns = []string{"Name", "Email", "Manager", "Salary", "Hire Date"}

// Employee is a directory record keyed by its normalized email.
type Employee struct {
	ID              uuid.UUID
	NormalizedEmail string
	Name            string
	ManagerID       pgtype.UUID
	Salary          pgtype.Int8
	HireDate        pgtype.Date
	IsActive        bool
	Credential      pgtype.Text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ChainOfCommand holds an employee's ancestors, nearest manager first.
type ChainOfCommand struct {
	EmployeeID uuid.UUID
	Chain      []uuid.UUID
	UpdatedAt  time.Time
}

// Store is the record store the engine reconciles against.
// Find methods return (nil, nil) when nothing matches.
//
// UpsertEmployee inserts when ID is uuid.Nil and returns the assigned id.
// Otherwise it updates the record in place: name and manager are always
// written, salary and hire date only when Valid. IsActive and Credential
// are only written on insert.
type Store interface {
	FindEmployeeByEmail(ctx context.Context, normalizedEmail string) (*Employee, error)
	UpsertEmployee(ctx context.Context, e Employee) (uuid.UUID, error)
	FindChainByEmployeeID(ctx context.Context, employeeID uuid.UUID) (*ChainOfCommand, error)
	UpsertChain(ctx context.Context, employeeID uuid.UUID, chain []uuid.UUID) error
}

// Directory extends Store with the reads used by lookups and health checks.
type Directory interface {
	Store
	FindEmployeesByIDs(ctx context.Context, ids []uuid.UUID) ([]Employee, error)
	Ping(ctx context.Context) error
}

// BatchStatus is the batch-level outcome, separate from per-row errors.
type BatchStatus int

const (
	// BatchAccepted means row processing was reached.
	BatchAccepted BatchStatus = iota
	// BatchRejected means the header did not match ExpectedColumns.
	BatchRejected
)

func (s BatchStatus) String() string {
	switch s {
	case BatchAccepted:
		return "accepted"
	case BatchRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result summarizes a reconciled batch. It serializes to exactly
// numCreated, numUpdated and errors.
type Result struct {
	NumCreated int         `json:"numCreated"`
	NumUpdated int         `json:"numUpdated"`
	Errors     []string    `json:"errors"`
	Status     BatchStatus `json:"-"`
}

func newResult() *Result {
	return &Result{Errors: []string{}, Status: BatchAccepted}
}

func (r *Result) addError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Rejected reports whether the batch failed header validation.
func (r *Result) Rejected() bool {
	return r.Status == BatchRejected
}

// EmployeeView is the public shape of an employee record.
type EmployeeView struct {
	ID        string  `json:"id" yaml:"id"`
	Email     string  `json:"email" yaml:"email"`
	Name      string  `json:"name" yaml:"name"`
	ManagerID *string `json:"managerId" yaml:"managerId"`
	Salary    *int64  `json:"salary" yaml:"salary"`
	HireDate  *string `json:"hireDate" yaml:"hireDate"`
	IsActive  bool    `json:"isActive" yaml:"isActive"`
}

// ChainView is an employee with its resolved chain of command.
type ChainView struct {
	Employee EmployeeView   `json:"employee" yaml:"employee"`
	Chain    []EmployeeView `json:"chain" yaml:"chain"`
}

// NewEmployeeView converts a stored record to its public shape.
func NewEmployeeView(e Employee) EmployeeView {
	v := EmployeeView{
		ID:       e.ID.String(),
		Email:    e.NormalizedEmail,
		Name:     e.Name,
		IsActive: e.IsActive,
	}
	if s := PgUUIDToString(e.ManagerID); s != "" {
		v.ManagerID = &s
	}
	if e.Salary.Valid {
		salary := e.Salary.Int64
		v.Salary = &salary
	}
	if e.HireDate.Valid {
		d := e.HireDate.Time.Format(time.DateOnly)
		v.HireDate = &d
	}
	return v
}
