package sqlite

// Migration is one named schema change. Migrations run in order, each at
// most once, tracked in the schema_migrations table.
type Migration struct {
	Name string
	SQL  string
}

// Migrations is the ordered schema for the sqlite backend.
var Migrations = []Migration{
	{
		Name: "001_create_streams",
		SQL: `CREATE TABLE IF NOT EXISTS streampay_streams (
			id INTEGER PRIMARY KEY,
			sender TEXT NOT NULL,
			recipient TEXT NOT NULL,
			total_amount INTEGER NOT NULL,
			withdrawn INTEGER NOT NULL DEFAULT 0,
			start_block INTEGER NOT NULL,
			end_block INTEGER NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	},
	{
		Name: "002_create_stream_index",
		SQL: `CREATE TABLE IF NOT EXISTS streampay_stream_index (
			index_kind TEXT NOT NULL,
			principal TEXT NOT NULL,
			position INTEGER NOT NULL,
			stream_id INTEGER NOT NULL,
			PRIMARY KEY (index_kind, principal, position)
		)`,
	},
	{
		Name: "003_create_counters",
		SQL: `CREATE TABLE IF NOT EXISTS streampay_counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
	},
	{
		Name: "004_seed_stream_nonce",
		SQL:  `INSERT OR IGNORE INTO streampay_counters (name, value) VALUES ('stream_nonce', 0)`,
	},
}
