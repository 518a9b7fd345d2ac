package store

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS topics (
	id       TEXT PRIMARY KEY,
	label    TEXT NOT NULL,
	guide    TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0
);

-- Default comments are keyed by topic label, the way the upstream
-- checklist sheet publishes them.
CREATE TABLE IF NOT EXISTS default_comments (
	label TEXT PRIMARY KEY,
	text  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_comments (
	user_id    TEXT NOT NULL,
	topic_id   TEXT NOT NULL,
	text       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_id, topic_id)
);

CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	evaluator_name TEXT NOT NULL DEFAULT '',
	contact_id     TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id, created_at);
`
