// Package ledger records pipeline run reports in PostgreSQL.
//
// Tables:
//   - pipeline_runs: one row per run (id, date, status, timings)
//   - pipeline_task_results: one row per task of a run
//
// A run and its task rows are written in a single transaction.
package ledger
