package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/orgsync/internal/core"
	"github.com/JonMunkholm/orgsync/internal/store"
)

const header = "Name,Email,Manager,Salary,Hire Date\n"

func newEngine(t *testing.T, legacy bool) (*core.Engine, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return core.NewEngine(st, core.EngineOptions{LegacyChainQuirks: legacy}), st
}

func reconcile(t *testing.T, e *core.Engine, batch string) *core.Result {
	t.Helper()
	res, err := e.ReconcileText(context.Background(), batch)
	require.NoError(t, err)
	return res
}

func mustEmployee(t *testing.T, st core.Store, email string) *core.Employee {
	t.Helper()
	e, err := st.FindEmployeeByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, e, "employee %s not stored", email)
	return e
}

func mustChain(t *testing.T, st core.Store, id uuid.UUID) []uuid.UUID {
	t.Helper()
	c, err := st.FindChainByEmployeeID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c, "no chain stored for %s", id)
	return c.Chain
}

func hireDate(t *testing.T, e *core.Employee) string {
	t.Helper()
	require.True(t, e.HireDate.Valid)
	return e.HireDate.Time.Format(time.DateOnly)
}

const twoLevelBatch = header +
	"Brad,brad@example.com,,90000,02/10/2010\n" +
	"John,john@example.com,brad@example.com,80000,07/16/2018\n"

const threeLevelBatch = twoLevelBatch +
	"Stephen,stephen@example.com,john@example.com,70000,01/02/2020\n"

func TestReconcile_CreatesManagerAndReport(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, twoLevelBatch)
	require.Equal(t, 2, res.NumCreated)
	require.Equal(t, 0, res.NumUpdated)
	require.Empty(t, res.Errors)
	require.False(t, res.Rejected())

	brad := mustEmployee(t, st, "brad@example.com")
	john := mustEmployee(t, st, "john@example.com")

	require.Equal(t, "Brad", brad.Name)
	require.Equal(t, int64(90000), brad.Salary.Int64)
	require.Equal(t, "2010-02-10", hireDate(t, brad))
	require.False(t, brad.ManagerID.Valid)
	require.False(t, brad.IsActive)
	require.False(t, brad.Credential.Valid)

	require.True(t, john.ManagerID.Valid)
	require.Equal(t, brad.ID, uuid.UUID(john.ManagerID.Bytes))

	require.Empty(t, mustChain(t, st, brad.ID))
	require.Equal(t, []uuid.UUID{brad.ID}, mustChain(t, st, john.ID))
}

func TestReconcile_ReuploadUpdatesInPlace(t *testing.T) {
	engine, st := newEngine(t, false)
	reconcile(t, engine, twoLevelBatch)
	bradBefore := mustEmployee(t, st, "brad@example.com")

	res := reconcile(t, engine, header+
		"Brad,brad@example.com,,100000,02/10/2010\n"+
		"John,john@example.com,brad@example.com,80000,07/16/2018\n")
	require.Equal(t, 0, res.NumCreated)
	require.Equal(t, 2, res.NumUpdated)
	require.Empty(t, res.Errors)

	brad := mustEmployee(t, st, "brad@example.com")
	require.Equal(t, bradBefore.ID, brad.ID)
	require.Equal(t, int64(100000), brad.Salary.Int64)

	john := mustEmployee(t, st, "john@example.com")
	require.Equal(t, []uuid.UUID{brad.ID}, mustChain(t, st, john.ID))
}

func TestReconcile_MultiLevelChain(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, threeLevelBatch)
	require.Equal(t, 3, res.NumCreated)

	brad := mustEmployee(t, st, "brad@example.com")
	john := mustEmployee(t, st, "john@example.com")
	stephen := mustEmployee(t, st, "stephen@example.com")

	require.Equal(t, []uuid.UUID{john.ID, brad.ID}, mustChain(t, st, stephen.ID))

	// chain(E) == [M.id] + chain(M)
	johnChain := mustChain(t, st, john.ID)
	stephenChain := mustChain(t, st, stephen.ID)
	require.Equal(t, john.ID, stephenChain[0])
	require.Equal(t, johnChain, stephenChain[1:])
}

func TestReconcile_HeaderMismatchRejectsBatch(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, "Name,Email,Manager,Salary\n"+
		"Brad,brad@example.com,,90000\n")
	require.True(t, res.Rejected())
	require.Equal(t, 0, res.NumCreated)
	require.Equal(t, 0, res.NumUpdated)
	require.Equal(t, []string{"Input columns must match: [Name, Email, Manager, Salary, Hire Date]"}, res.Errors)
	require.Zero(t, st.Len())
}

func TestReconcile_EmptyBatchRejected(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, "")
	require.True(t, res.Rejected())
	require.Len(t, res.Errors, 1)
	require.Zero(t, st.Len())
}

func TestReconcile_HeaderOnly(t *testing.T) {
	engine, _ := newEngine(t, false)

	res := reconcile(t, engine, header)
	require.False(t, res.Rejected())

	out, err := json.Marshal(res)
	require.NoError(t, err)
	require.JSONEq(t, `{"numCreated":0,"numUpdated":0,"errors":[]}`, string(out))
}

func TestReconcile_Idempotent(t *testing.T) {
	engine, st := newEngine(t, false)
	reconcile(t, engine, threeLevelBatch)

	emails := []string{"brad@example.com", "john@example.com", "stephen@example.com"}
	type snapshot struct {
		employee core.Employee
		chain    []uuid.UUID
	}
	before := map[string]snapshot{}
	for _, email := range emails {
		e := mustEmployee(t, st, email)
		before[email] = snapshot{employee: *e, chain: mustChain(t, st, e.ID)}
	}

	res := reconcile(t, engine, threeLevelBatch)
	require.Equal(t, 0, res.NumCreated)
	require.Equal(t, 3, res.NumUpdated)
	require.Empty(t, res.Errors)

	for _, email := range emails {
		e := mustEmployee(t, st, email)
		want := before[email]
		require.Equal(t, want.employee.ID, e.ID)
		require.Equal(t, want.employee.Name, e.Name)
		require.Equal(t, want.employee.ManagerID, e.ManagerID)
		require.Equal(t, want.employee.Salary, e.Salary)
		require.Equal(t, want.employee.HireDate, e.HireDate)
		require.Equal(t, want.chain, mustChain(t, st, e.ID))
	}
}

func TestReconcile_InvalidSalaryKeepsStoredValue(t *testing.T) {
	engine, st := newEngine(t, false)
	reconcile(t, engine, twoLevelBatch)

	res := reconcile(t, engine, header+
		"Bradley,brad@example.com,,ninety,03/01/2011\n")
	require.Equal(t, 0, res.NumCreated)
	require.Equal(t, 1, res.NumUpdated)
	require.Equal(t, []string{"Salary must be a valid number, received: ninety"}, res.Errors)

	brad := mustEmployee(t, st, "brad@example.com")
	require.Equal(t, "Bradley", brad.Name)
	require.Equal(t, int64(90000), brad.Salary.Int64)
	require.Equal(t, "2011-03-01", hireDate(t, brad))
	require.Empty(t, mustChain(t, st, brad.ID))
}

func TestReconcile_InvalidDateKeepsStoredValue(t *testing.T) {
	engine, st := newEngine(t, false)
	reconcile(t, engine, twoLevelBatch)

	res := reconcile(t, engine, header+
		"John,john@example.com,brad@example.com,85000,not a date\n")
	require.Equal(t, 1, res.NumUpdated)
	require.Equal(t, []string{"Hire date must be a valid date, received: not a date"}, res.Errors)

	john := mustEmployee(t, st, "john@example.com")
	require.Equal(t, int64(85000), john.Salary.Int64)
	require.Equal(t, "2018-07-16", hireDate(t, john))
}

func TestReconcile_InvalidFieldsOnCreate(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, header+"Ted,ted@example.com,,,\n")
	require.Equal(t, 1, res.NumCreated)
	require.Equal(t, []string{
		"Salary must be a valid number, received: ",
		"Hire date must be a valid date, received: ",
	}, res.Errors)

	ted := mustEmployee(t, st, "ted@example.com")
	require.False(t, ted.Salary.Valid)
	require.False(t, ted.HireDate.Valid)
}

func TestReconcile_SkipsMalformedRows(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, header+
		"Brad,brad@example.com,,90000\n"+
		"\n"+
		"John,john@example.com,,80000,07/16/2018,extra\n"+
		"Ted,ted@example.com,,70000,01/01/2019\n")
	require.Equal(t, 1, res.NumCreated)
	require.Equal(t, 0, res.NumUpdated)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, st.Len())
}

func TestReconcile_UnknownManagerIsSilent(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, header+
		"John,john@example.com,nobody@example.com,80000,07/16/2018\n")
	require.Equal(t, 1, res.NumCreated)
	require.Empty(t, res.Errors)

	john := mustEmployee(t, st, "john@example.com")
	require.False(t, john.ManagerID.Valid)
	require.Empty(t, mustChain(t, st, john.ID))
}

func TestReconcile_ManagerOrder(t *testing.T) {
	t.Run("manager after report", func(t *testing.T) {
		engine, st := newEngine(t, false)

		res := reconcile(t, engine, header+
			"John,john@example.com,brad@example.com,80000,07/16/2018\n"+
			"Brad,brad@example.com,,90000,02/10/2010\n")
		require.Equal(t, 2, res.NumCreated)

		john := mustEmployee(t, st, "john@example.com")
		require.False(t, john.ManagerID.Valid)
		require.Empty(t, mustChain(t, st, john.ID))

		// A second pass sees the manager.
		reconcile(t, engine, header+
			"John,john@example.com,brad@example.com,80000,07/16/2018\n")
		brad := mustEmployee(t, st, "brad@example.com")
		require.Equal(t, []uuid.UUID{brad.ID}, mustChain(t, st, john.ID))
	})

	t.Run("manager before report", func(t *testing.T) {
		engine, st := newEngine(t, false)
		reconcile(t, engine, twoLevelBatch)

		brad := mustEmployee(t, st, "brad@example.com")
		john := mustEmployee(t, st, "john@example.com")
		require.Equal(t, []uuid.UUID{brad.ID}, mustChain(t, st, john.ID))
	})
}

func TestReconcile_ChainIsSnapshot(t *testing.T) {
	engine, st := newEngine(t, false)
	reconcile(t, engine, threeLevelBatch)

	// Move John under a new root. Stephen is not in the batch and keeps
	// the chain computed when his row was written.
	reconcile(t, engine, header+
		"Ana,ana@example.com,,150000,01/01/2005\n"+
		"John,john@example.com,ana@example.com,80000,07/16/2018\n")

	ana := mustEmployee(t, st, "ana@example.com")
	john := mustEmployee(t, st, "john@example.com")
	brad := mustEmployee(t, st, "brad@example.com")
	stephen := mustEmployee(t, st, "stephen@example.com")

	require.Equal(t, []uuid.UUID{ana.ID}, mustChain(t, st, john.ID))
	require.Equal(t, []uuid.UUID{john.ID, brad.ID}, mustChain(t, st, stephen.ID))
}

func TestReconcile_ManagerWithoutChainRecord(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, st *store.Memory) uuid.UUID {
		t.Helper()
		id, err := st.UpsertEmployee(ctx, core.Employee{NormalizedEmail: "brad@example.com", Name: "Brad"})
		require.NoError(t, err)
		return id
	}

	t.Run("default treats missing chain as empty", func(t *testing.T) {
		engine, st := newEngine(t, false)
		bradID := seed(t, st)

		reconcile(t, engine, header+"John,john@example.com,brad@example.com,80000,07/16/2018\n")

		john := mustEmployee(t, st, "john@example.com")
		require.Equal(t, bradID, uuid.UUID(john.ManagerID.Bytes))
		require.Equal(t, []uuid.UUID{bradID}, mustChain(t, st, john.ID))
	})

	t.Run("legacy gives new employee empty chain", func(t *testing.T) {
		engine, st := newEngine(t, true)
		bradID := seed(t, st)

		reconcile(t, engine, header+"John,john@example.com,brad@example.com,80000,07/16/2018\n")

		john := mustEmployee(t, st, "john@example.com")
		require.Equal(t, bradID, uuid.UUID(john.ManagerID.Bytes))
		require.Empty(t, mustChain(t, st, john.ID))
	})
}

func TestReconcile_LegacyKeepsExistingChain(t *testing.T) {
	engine, st := newEngine(t, true)
	reconcile(t, engine, twoLevelBatch)

	brad := mustEmployee(t, st, "brad@example.com")
	john := mustEmployee(t, st, "john@example.com")
	require.Equal(t, []uuid.UUID{brad.ID}, mustChain(t, st, john.ID))

	// Manager column cleared: the manager id is cleared but the legacy
	// handling leaves the old chain in place.
	res := reconcile(t, engine, header+"John,john@example.com,,80000,07/16/2018\n")
	require.Equal(t, 1, res.NumUpdated)

	john = mustEmployee(t, st, "john@example.com")
	require.False(t, john.ManagerID.Valid)
	require.Equal(t, []uuid.UUID{brad.ID}, mustChain(t, st, john.ID))
}

func TestReconcile_DefaultResetsChainWithoutManager(t *testing.T) {
	engine, st := newEngine(t, false)
	reconcile(t, engine, twoLevelBatch)

	reconcile(t, engine, header+"John,john@example.com,,80000,07/16/2018\n")

	john := mustEmployee(t, st, "john@example.com")
	require.False(t, john.ManagerID.Valid)
	require.Empty(t, mustChain(t, st, john.ID))
}

func TestReconcile_NormalizesEmails(t *testing.T) {
	engine, st := newEngine(t, false)
	reconcile(t, engine, twoLevelBatch)

	res := reconcile(t, engine, header+
		"Stephen, Stephen@Example.COM , JOHN@example.com,70000,01/02/2020\n"+
		"Brad,BRAD@example.com,,95000,02/10/2010\n")
	require.Equal(t, 1, res.NumCreated)
	require.Equal(t, 1, res.NumUpdated)

	john := mustEmployee(t, st, "john@example.com")
	stephen := mustEmployee(t, st, "stephen@example.com")
	require.Equal(t, "Stephen", stephen.Name)
	require.Equal(t, john.ID, uuid.UUID(stephen.ManagerID.Bytes))
	require.Equal(t, int64(95000), mustEmployee(t, st, "brad@example.com").Salary.Int64)
}

func TestReconcile_QuotedFieldsAndCRLF(t *testing.T) {
	engine, st := newEngine(t, false)

	res := reconcile(t, engine, "Name,Email,Manager,Salary,Hire Date\r\n"+
		"\"Smith, Jane\",jane@example.com,,120000,\"Feb 10, 2010\"\r\n")
	require.Equal(t, 1, res.NumCreated)
	require.Empty(t, res.Errors)

	jane := mustEmployee(t, st, "jane@example.com")
	require.Equal(t, "Smith, Jane", jane.Name)
	require.Equal(t, "2010-02-10", hireDate(t, jane))
}

func TestReconcile_StrayQuoteOnlyAffectsItsLine(t *testing.T) {
	tests := []struct {
		name     string
		batch    string
		wantName string
		email    string
	}{
		{
			name: "quoted nickname",
			batch: header +
				"Brad,brad@example.com,,90000,02/10/2010\n" +
				"\"Bud\" Smith,bud@example.com,,1,02/10/2010\n" +
				"John,john@example.com,brad@example.com,80000,07/16/2018\n" +
				"Ted,ted@example.com,john@example.com,70000,01/01/2019\n",
			wantName: "\"Bud\" Smith",
			email:    "bud@example.com",
		},
		{
			name: "unclosed quote",
			batch: header +
				"\"Brad,brad@example.com,,90000,02/10/2010\n" +
				"John,john@example.com,brad@example.com,80000,07/16/2018\n" +
				"Ted,ted@example.com,john@example.com,70000,01/01/2019\n",
			wantName: "\"Brad",
			email:    "brad@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, st := newEngine(t, false)

			res := reconcile(t, engine, tt.batch)
			require.Empty(t, res.Errors)
			require.Equal(t, strings.Count(tt.batch, "\n")-1, res.NumCreated)
			require.Equal(t, tt.wantName, mustEmployee(t, st, tt.email).Name)

			ted := mustEmployee(t, st, "ted@example.com")
			require.Len(t, mustChain(t, st, ted.ID), 2)
		})
	}
}

func TestReconcile_CountsMatchWellFormedRows(t *testing.T) {
	engine, _ := newEngine(t, false)

	batch := header +
		"A,a@example.com,,1,2020-01-01\n" +
		"B,b@example.com,a@example.com,x,2020-01-01\n" +
		"bad row\n" +
		"A,a@example.com,,2,2020-01-01\n" +
		"C,c@example.com,b@example.com,3,never\n"
	res := reconcile(t, engine, batch)
	require.Equal(t, 4, res.NumCreated+res.NumUpdated)
	require.Equal(t, 3, res.NumCreated)
	require.Equal(t, 1, res.NumUpdated)
	require.Len(t, res.Errors, 2)
}

var errStoreDown = errors.New("store down")

// faultyStore fails writes for one email and can run a hook before each upsert.
type faultyStore struct {
	core.Store
	failEmail string
	beforeAll func()
}

func (f *faultyStore) UpsertEmployee(ctx context.Context, e core.Employee) (uuid.UUID, error) {
	if f.beforeAll != nil {
		f.beforeAll()
	}
	if e.NormalizedEmail == f.failEmail {
		return uuid.Nil, errStoreDown
	}
	return f.Store.UpsertEmployee(ctx, e)
}

func TestReconcile_StoreErrorAbortsBatch(t *testing.T) {
	mem := store.NewMemory()
	engine := core.NewEngine(&faultyStore{Store: mem, failEmail: "john@example.com"}, core.EngineOptions{})

	res, err := engine.ReconcileText(context.Background(), threeLevelBatch)
	require.ErrorIs(t, err, errStoreDown)
	require.Contains(t, err.Error(), "line 3")
	require.Equal(t, 1, res.NumCreated)

	// Rows before the failure stay persisted.
	mustEmployee(t, mem, "brad@example.com")
	missing, err := mem.FindEmployeeByEmail(context.Background(), "stephen@example.com")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestReconcile_Cancellation(t *testing.T) {
	t.Run("before first row", func(t *testing.T) {
		engine, st := newEngine(t, false)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := engine.ReconcileText(ctx, twoLevelBatch)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 0, res.NumCreated)
		require.Zero(t, st.Len())
	})

	t.Run("between rows", func(t *testing.T) {
		mem := store.NewMemory()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		engine := core.NewEngine(&faultyStore{Store: mem, beforeAll: cancel}, core.EngineOptions{})
		res, err := engine.ReconcileText(ctx, threeLevelBatch)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, res.NumCreated)
		require.Equal(t, 1, mem.Len())
	})
}
