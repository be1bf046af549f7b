package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/orgsync/internal/core"
)

// Memory is an in-process core.Directory. It backs tests and CLI dry runs.
type Memory struct {
	mu        sync.RWMutex
	employees map[uuid.UUID]core.Employee
	byEmail   map[string]uuid.UUID
	chains    map[uuid.UUID]core.ChainOfCommand
	now       func() time.Time
}

var _ core.Directory = (*Memory)(nil)

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		employees: make(map[uuid.UUID]core.Employee),
		byEmail:   make(map[string]uuid.UUID),
		chains:    make(map[uuid.UUID]core.ChainOfCommand),
		now:       time.Now,
	}
}

func (m *Memory) FindEmployeeByEmail(_ context.Context, normalizedEmail string) (*core.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[normalizedEmail]
	if !ok {
		return nil, nil
	}
	e := m.employees[id]
	return &e, nil
}

func (m *Memory) UpsertEmployee(_ context.Context, e core.Employee) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if e.ID == uuid.Nil {
		if _, taken := m.byEmail[e.NormalizedEmail]; taken {
			return uuid.Nil, ErrDuplicateEmail
		}
		e.ID = uuid.New()
		e.CreatedAt = now
		e.UpdatedAt = now
		m.employees[e.ID] = e
		m.byEmail[e.NormalizedEmail] = e.ID
		return e.ID, nil
	}

	stored, ok := m.employees[e.ID]
	if !ok {
		return uuid.Nil, core.ErrEmployeeNotFound
	}
	stored.Name = e.Name
	stored.ManagerID = e.ManagerID
	if e.Salary.Valid {
		stored.Salary = e.Salary
	}
	if e.HireDate.Valid {
		stored.HireDate = e.HireDate
	}
	stored.UpdatedAt = now
	m.employees[e.ID] = stored
	return stored.ID, nil
}

func (m *Memory) FindChainByEmployeeID(_ context.Context, employeeID uuid.UUID) (*core.ChainOfCommand, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chains[employeeID]
	if !ok {
		return nil, nil
	}
	c.Chain = append([]uuid.UUID{}, c.Chain...)
	return &c, nil
}

func (m *Memory) UpsertChain(_ context.Context, employeeID uuid.UUID, chain []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[employeeID]; !ok {
		return core.ErrEmployeeNotFound
	}
	m.chains[employeeID] = core.ChainOfCommand{
		EmployeeID: employeeID,
		Chain:      append([]uuid.UUID{}, chain...),
		UpdatedAt:  m.now(),
	}
	return nil
}

// FindEmployeesByIDs returns the employees for ids in the same order,
// skipping ids that are not stored.
func (m *Memory) FindEmployeesByIDs(_ context.Context, ids []uuid.UUID) ([]core.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Employee, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.employees[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Len returns the number of stored employees.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.employees)
}
