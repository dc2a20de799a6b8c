package postgresql

// migrations returns the ordered schema migrations for the store.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS targets (
				id              TEXT PRIMARY KEY,
				owner_id        TEXT NOT NULL,
				url             TEXT NOT NULL,
				target_type     TEXT NOT NULL,
				frequency_ns    BIGINT NOT NULL,
				cron_expression TEXT NOT NULL DEFAULT '',
				status          TEXT NOT NULL DEFAULT 'active',
				status_reason   TEXT NOT NULL DEFAULT '',
				next_due_at     TIMESTAMP WITH TIME ZONE NOT NULL,
				last_run_at     TIMESTAMP WITH TIME ZONE,
				failure_count   INTEGER NOT NULL DEFAULT 0,
				created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (owner_id, url)
			);

			CREATE INDEX IF NOT EXISTS idx_targets_due
				ON targets (next_due_at)
				WHERE status = 'active';

			CREATE INDEX IF NOT EXISTS idx_targets_owner
				ON targets (owner_id);

			CREATE TABLE IF NOT EXISTS snapshot_states (
				target_id           TEXT PRIMARY KEY REFERENCES targets (id),
				current_fingerprint TEXT,
				current_captured_at TIMESTAMP WITH TIME ZONE,
				current_raw_ref     TEXT,
				prior_fingerprint   TEXT,
				prior_captured_at   TIMESTAMP WITH TIME ZONE,
				prior_raw_ref       TEXT,
				pending_comparison  BOOLEAN NOT NULL DEFAULT FALSE
			);

			CREATE TABLE IF NOT EXISTS snapshot_blobs (
				raw_ref TEXT PRIMARY KEY,
				content BYTEA NOT NULL
			);

			CREATE TABLE IF NOT EXISTS changes (
				id          TEXT PRIMARY KEY,
				target_id   TEXT NOT NULL REFERENCES targets (id),
				detected_at TIMESTAMP WITH TIME ZONE NOT NULL,
				severity    TEXT NOT NULL,
				summary     TEXT NOT NULL,
				key_changes JSONB,
				notified    BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE (target_id, detected_at)
			);

			CREATE INDEX IF NOT EXISTS idx_changes_history
				ON changes (target_id, detected_at DESC);

			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				email      TEXT NOT NULL UNIQUE,
				notify_via TEXT NOT NULL DEFAULT 'console',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}
