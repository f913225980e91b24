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

CREATE TABLE IF NOT EXISTS categories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE CHECK (length(trim(name)) > 0),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	name        TEXT NOT NULL CHECK (length(trim(name)) > 0),
	note        TEXT NOT NULL DEFAULT '',
	due_to      DATETIME,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS check_items (
	id            TEXT PRIMARY KEY,
	category_id   TEXT REFERENCES categories(id) ON DELETE CASCADE,
	task_id       TEXT REFERENCES tasks(id) ON DELETE CASCADE,
	name          TEXT NOT NULL CHECK (length(trim(name)) > 0),
	sort_position INTEGER NOT NULL DEFAULT 0 CHECK (sort_position >= 0),
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	CONSTRAINT check_items_parent_xor CHECK (
		(category_id IS NOT NULL AND task_id IS NULL) OR
		(category_id IS NULL AND task_id IS NOT NULL)
	)
);

CREATE TABLE IF NOT EXISTS task_checks (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	check_item_id TEXT NOT NULL REFERENCES check_items(id) ON DELETE CASCADE,
	is_done       INTEGER NOT NULL DEFAULT 0,
	sort_position INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	UNIQUE (task_id, check_item_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category_id);
CREATE INDEX IF NOT EXISTS idx_check_items_category ON check_items(category_id);
CREATE INDEX IF NOT EXISTS idx_check_items_task ON check_items(task_id);
CREATE INDEX IF NOT EXISTS idx_task_checks_task ON task_checks(task_id);
CREATE INDEX IF NOT EXISTS idx_task_checks_item ON task_checks(check_item_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
