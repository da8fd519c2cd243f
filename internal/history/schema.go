package history

const schemaVersion = "1"

const metaKeySchemaVersion = "schema_version"

const schemaSQL = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS history_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ai_sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	model_id TEXT,
	terminal_session_id TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS ai_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES ai_sessions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT,
	reasoning_content TEXT,
	tool_calls TEXT,
	tool_call_id TEXT,
	model_id TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ai_messages_session ON ai_messages(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_ai_sessions_updated ON ai_sessions(updated_at);
`
