package ledger

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id      UUID PRIMARY KEY,
	run_date    TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS pipeline_runs_run_date_idx ON pipeline_runs (run_date);

CREATE TABLE IF NOT EXISTS pipeline_task_results (
	run_id      UUID NOT NULL REFERENCES pipeline_runs (run_id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	task        TEXT NOT NULL,
	status      TEXT NOT NULL,
	attempts    INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

const insertRunSQL = `
	INSERT INTO pipeline_runs (run_id, run_date, status, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (run_id) DO NOTHING
`

const insertTaskSQL = `
	INSERT INTO pipeline_task_results (run_id, position, task, status, attempts, message, error, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (run_id, position) DO NOTHING
`

const recentRunsSQL = `
	SELECT run_id, run_date, status, started_at, finished_at
	FROM pipeline_runs
	ORDER BY started_at DESC
	LIMIT $1
`
