package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkParseHireDate covers the layouts seen in exported HR files.
func BenchmarkParseHireDate(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"01/15/2024",
		"Jan 15, 2024",
		"20240115",
		"1/5/24",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseHireDate(tc)
		}
	}
}

// BenchmarkParseHireDate_Invalid measures the worst case: every layout tried.
func BenchmarkParseHireDate_Invalid(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseHireDate("someday")
	}
}

func BenchmarkParseSalary(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseSalary(" 125000 ")
	}
}

func BenchmarkNormalizeEmail(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NormalizeEmail("  Grace.Hopper@Example.COM ")
	}
}

// ============================================================================
// Reconcile Benchmarks
// ============================================================================

// BenchmarkReconcile_Create reconciles a fresh org of 1,000 employees.
func BenchmarkReconcile_Create(b *testing.B) {
	batch := generateOrgCSV(1000)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b.SetBytes(int64(len(batch)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine := NewEngine(newBenchStore(), EngineOptions{Logger: logger})
		if _, err := engine.Reconcile(ctx, bytes.NewReader(batch)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReconcile_Update re-reconciles the same batch against a
// populated store.
func BenchmarkReconcile_Update(b *testing.B) {
	batch := generateOrgCSV(1000)
	ctx := context.Background()
	engine := NewEngine(newBenchStore(), EngineOptions{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if _, err := engine.Reconcile(ctx, bytes.NewReader(batch)); err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(batch)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Reconcile(ctx, bytes.NewReader(batch)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSanitizeBatch measures the reader chain on a large batch.
func BenchmarkSanitizeBatch(b *testing.B) {
	batch := append([]byte("\xEF\xBB\xBF"), generateOrgCSV(10000)...)

	b.SetBytes(int64(len(batch)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := io.Copy(io.Discard, SanitizeBatch(bytes.NewReader(batch), 0)); err != nil {
			b.Fatal(err)
		}
	}
}

// generateOrgCSV builds a batch where every employee after the first
// reports to the employee ten rows above, so chains grow with depth.
func generateOrgCSV(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("Name,Email,Manager,Salary,Hire Date\n")
	for i := 0; i < rows; i++ {
		manager := ""
		if i > 0 {
			manager = fmt.Sprintf("emp%d@example.com", i/10)
		}
		fmt.Fprintf(&buf, "Employee %d,emp%d@example.com,%s,%d,2020-01-%02d\n",
			i, i, manager, 50000+i, i%28+1)
	}
	return buf.Bytes()
}

// benchStore is a minimal map-backed Store; package core cannot import
// the store package.
type benchStore struct {
	byEmail map[string]Employee
	chains  map[uuid.UUID][]uuid.UUID
}

func newBenchStore() *benchStore {
	return &benchStore{
		byEmail: make(map[string]Employee),
		chains:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *benchStore) FindEmployeeByEmail(_ context.Context, email string) (*Employee, error) {
	e, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *benchStore) UpsertEmployee(_ context.Context, e Employee) (uuid.UUID, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.byEmail[e.NormalizedEmail] = e
	return e.ID, nil
}

func (s *benchStore) FindChainByEmployeeID(_ context.Context, id uuid.UUID) (*ChainOfCommand, error) {
	c, ok := s.chains[id]
	if !ok {
		return nil, nil
	}
	return &ChainOfCommand{EmployeeID: id, Chain: c}, nil
}

func (s *benchStore) UpsertChain(_ context.Context, id uuid.UUID, chain []uuid.UUID) error {
	s.chains[id] = chain
	return nil
}
