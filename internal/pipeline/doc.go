// Package pipeline implements the daily ETL task graph.
//
// The graph is a fixed linear chain:
//
//	data_extract -> currency_markets_data -> transform_data -> currencies_historic_data -> run_dashboard
//
// Every task returns an explicit Result (Success, Skipped or Failed). Failed
// tasks are retried a fixed number of times; Skipped is never retried and
// does not fail the run. Each step carries a trigger rule deciding whether it
// runs given its predecessor's outcome.
//
// The Scheduler fires one run per local day, never more than one at a time.
package pipeline
