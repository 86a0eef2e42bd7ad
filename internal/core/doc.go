// Package core implements the transactions pipeline on top of a database
// session and a command registry.
//
// # Pipeline
//
// An upload runs three stages against one session:
//
//  1. [StagingLoader.Load] parses each source record strictly and inserts it
//     into transactions_temp. Bad rows are skipped and reported; the batch
//     is committed once at the end.
//  2. [Corrector.Apply] runs the fixed corrections on the staged rows.
//  3. [Normalizer.Populate] fills stores, sales representatives, clients,
//     products and finally transactions. Each step commits on its own and
//     only inserts rows that are not there yet, so uploads can be re-run.
//
// Reports are read back with [QueryExecutor.Run]. Report filters are always
// bound as statement arguments.
//
// # Sessions
//
// Components never open connections. The caller owns the session, passes
// it to each call and closes it. Statements inside a session are isolated
// by savepoints, so one failure never undoes its siblings.
//
// # Errors
//
// Failures carry an [errs.Kind]. Per-row and per-statement failures are
// logged where they happen and the pipeline continues. Only a source
// that cannot be read stops an upload, and only a lost connection stops
// a run.
package core
