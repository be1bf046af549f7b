// Package core provides the business logic for employee batch reconciliation.
//
// This package is the heart of orgsync, containing all domain logic
// independent of any transport or storage engine. It can be used by web
// handlers, the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Store: The narrow record-store interface the engine reads and writes
//     through. Implementations live in the store package.
//   - Engine: Applies one delimited batch to the store, row by row, in input order.
//   - Service: Wraps the engine with concurrency limits, timeouts, input
//     sanitation, and chain-of-command lookups.
//
// # Reconciliation
//
// For each data row the engine resolves the manager reference, upserts the
// employee by normalized email, and rewrites the employee's chain of command
// from the manager's stored chain:
//
//	chain(E) = [M.id] + chain(M)
//
// The chain is a snapshot taken when E's row is written. Managers must appear
// before their reports in a batch for the reports to see them.
//
// # Error Handling
//
// Field coercion failures are collected on the [Result] and never abort the
// batch. A header mismatch rejects the batch before any write. Store failures
// and context cancellation are returned as Go errors.
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB004: Database errors (constraints, connections)
//   - VAL001-VAL004: Validation errors (formats, columns)
//   - FILE001-FILE003: File errors (size, encoding, format)
//   - BAT001-BAT003: Batch errors (cancelled, timeout, busy)
package core
