package identity

// migration is a single schema step applied in version order.
type migration struct {
	version int
	sql     string
}

// migrations must stay sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	fullname   TEXT NOT NULL DEFAULT '',
	username   TEXT NOT NULL DEFAULT '',
	img_url    TEXT NOT NULL DEFAULT '',
	activities TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS session (
	slot       INTEGER PRIMARY KEY CHECK (slot = 1),
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
