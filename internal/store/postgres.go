// Package store provides core.Directory implementations backed by
// PostgreSQL and by process memory.
package store

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/orgsync/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres is a core.Directory over a pgx connection pool.
type Postgres struct {
	db   DBTX
	pool *pgxpool.Pool
}

var _ core.Directory = (*Postgres)(nil)

// NewPostgres wraps pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool}
}

// WithTx returns a store whose statements run inside tx. Ping still uses
// the pool.
func (p *Postgres) WithTx(tx pgx.Tx) *Postgres {
	return &Postgres{db: tx, pool: p.pool}
}

const employeeColumns = `id, normalized_email, name, manager_id, salary, hire_date,
	is_active, credential, created_at, updated_at`

const findEmployeeByEmail = `SELECT ` + employeeColumns + `
FROM employees
WHERE normalized_email = $1`

const insertEmployee = `INSERT INTO employees (
	normalized_email, name, manager_id, salary, hire_date, is_active, credential
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

// NULL salary or hire_date leaves the stored value in place.
const updateEmployee = `UPDATE employees SET
	name = $2,
	manager_id = $3,
	salary = COALESCE($4, salary),
	hire_date = COALESCE($5, hire_date),
	updated_at = now()
WHERE id = $1
RETURNING id`

const findChainByEmployeeID = `SELECT employee_id, chain_of_command, updated_at
FROM chains_of_command
WHERE employee_id = $1`

const upsertChain = `INSERT INTO chains_of_command (employee_id, chain_of_command)
VALUES ($1, $2)
ON CONFLICT (employee_id) DO UPDATE SET
	chain_of_command = EXCLUDED.chain_of_command,
	updated_at = now()`

const findEmployeesByIDs = `SELECT ` + employeeColumns + `
FROM employees
WHERE id = ANY($1)`

func scanEmployee(row pgx.Row) (core.Employee, error) {
	var e core.Employee
	err := row.Scan(
		&e.ID,
		&e.NormalizedEmail,
		&e.Name,
		&e.ManagerID,
		&e.Salary,
		&e.HireDate,
		&e.IsActive,
		&e.Credential,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func (p *Postgres) FindEmployeeByEmail(ctx context.Context, normalizedEmail string) (*core.Employee, error) {
	e, err := scanEmployee(p.db.QueryRow(ctx, findEmployeeByEmail, normalizedEmail))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find employee by email")
	}
	return &e, nil
}

func (p *Postgres) UpsertEmployee(ctx context.Context, e core.Employee) (uuid.UUID, error) {
	var id uuid.UUID

	if e.ID == uuid.Nil {
		err := p.db.QueryRow(ctx, insertEmployee,
			e.NormalizedEmail,
			e.Name,
			e.ManagerID,
			e.Salary,
			e.HireDate,
			e.IsActive,
			e.Credential,
		).Scan(&id)
		if isUniqueViolation(err) {
			return uuid.Nil, ErrDuplicateEmail
		}
		if err != nil {
			return uuid.Nil, errors.Wrap(err, "insert employee")
		}
		return id, nil
	}

	err := p.db.QueryRow(ctx, updateEmployee,
		e.ID,
		e.Name,
		e.ManagerID,
		e.Salary,
		e.HireDate,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, core.ErrEmployeeNotFound
	}
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "update employee")
	}
	return id, nil
}

func (p *Postgres) FindChainByEmployeeID(ctx context.Context, employeeID uuid.UUID) (*core.ChainOfCommand, error) {
	var (
		c   core.ChainOfCommand
		ids []pgtype.UUID
	)
	err := p.db.QueryRow(ctx, findChainByEmployeeID, employeeID).Scan(&c.EmployeeID, &ids, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find chain of command")
	}

	c.Chain = make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		c.Chain = append(c.Chain, uuid.UUID(id.Bytes))
	}
	return &c, nil
}

func (p *Postgres) UpsertChain(ctx context.Context, employeeID uuid.UUID, chain []uuid.UUID) error {
	if _, err := p.db.Exec(ctx, upsertChain, employeeID, toPgUUIDs(chain)); err != nil {
		return errors.Wrap(err, "upsert chain of command")
	}
	return nil
}

// FindEmployeesByIDs returns the employees for ids in the same order,
// skipping ids that are not stored.
func (p *Postgres) FindEmployeesByIDs(ctx context.Context, ids []uuid.UUID) ([]core.Employee, error) {
	if len(ids) == 0 {
		return []core.Employee{}, nil
	}

	rows, err := p.db.Query(ctx, findEmployeesByIDs, toPgUUIDs(ids))
	if err != nil {
		return nil, errors.Wrap(err, "find employees by ids")
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]core.Employee, len(ids))
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan employee")
		}
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate employees")
	}

	out := make([]core.Employee, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func toPgUUIDs(ids []uuid.UUID) []pgtype.UUID {
	out := make([]pgtype.UUID, len(ids))
	for i, id := range ids {
		out[i] = core.ToPgUUID(id)
	}
	return out
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "ping database")
	}
	return nil
}
