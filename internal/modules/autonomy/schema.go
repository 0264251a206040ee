package autonomy

import "database/sql"

// ScheduleSchema is the single-row schedule table in state.db. Timestamps
// are Unix seconds; zero means "never".
const ScheduleSchema = `
CREATE TABLE IF NOT EXISTS schedule (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    mode TEXT NOT NULL DEFAULT 'inactive',
    handle INTEGER NOT NULL DEFAULT 0,
    target_slot INTEGER NOT NULL DEFAULT 0,
    quoted_cost INTEGER NOT NULL DEFAULT 0,
    last_rebalance INTEGER NOT NULL DEFAULT 0,
    next_rebalance INTEGER NOT NULL DEFAULT 0,
    rebalance_count INTEGER NOT NULL DEFAULT 0,
    last_status TEXT NOT NULL DEFAULT '',
    last_error TEXT NOT NULL DEFAULT ''
);

INSERT OR IGNORE INTO schedule (id) VALUES (1);
`

// InitSchema ensures the schedule table exists in state.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(ScheduleSchema)
	return err
}
