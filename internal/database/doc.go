// Package database opens the PostgreSQL pool backing the run ledger.
//
// The ledger is optional: when no host is configured the pipeline runs
// without one and nothing here is touched.
package database
