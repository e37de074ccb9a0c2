package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	user_id   INTEGER NOT NULL,
	resource  TEXT NOT NULL,
	payload   TEXT NOT NULL DEFAULT '[]',
	meta      TEXT NOT NULL DEFAULT '{}',
	saved_at  TEXT NOT NULL,
	PRIMARY KEY (user_id, resource)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
