package sqlite

import (
	"context"
	"fmt"
)

const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	id                    TEXT PRIMARY KEY,
	project               TEXT NOT NULL DEFAULT '',
	domain                TEXT NOT NULL,
	seed                  INTEGER NOT NULL,
	tick                  INTEGER NOT NULL,
	epoch                 INTEGER NOT NULL,
	era                   TEXT NOT NULL DEFAULT '',
	entity_count          INTEGER NOT NULL,
	relationship_count    INTEGER NOT NULL,
	history_event_count   INTEGER NOT NULL,
	narrative_event_count INTEGER NOT NULL,
	saved_at              DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	id          TEXT NOT NULL,
	kind        TEXT NOT NULL,
	subtype     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	prominence  INTEGER NOT NULL,
	culture     TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	x           REAL NOT NULL DEFAULT 0,
	y           REAL NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (run_id, id)
);

CREATE TABLE IF NOT EXISTS relationships (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL,
	src          TEXT NOT NULL,
	dst          TEXT NOT NULL,
	strength     REAL NOT NULL,
	created_at   INTEGER NOT NULL,
	catalyzed_by TEXT NOT NULL DEFAULT '',
	distance     REAL,
	archived_at  INTEGER
);

CREATE TABLE IF NOT EXISTS narrative_events (
	run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq               INTEGER NOT NULL,
	id                TEXT NOT NULL,
	tick              INTEGER NOT NULL,
	era               TEXT NOT NULL DEFAULT '',
	event_type        TEXT NOT NULL,
	significance      REAL NOT NULL,
	headline          TEXT NOT NULL,
	subject           TEXT NOT NULL,
	affected          TEXT NOT NULL DEFAULT '[]',
	catalyst          TEXT NOT NULL DEFAULT '',
	field             TEXT NOT NULL DEFAULT '',
	previous_value    TEXT NOT NULL DEFAULT '',
	current_value     TEXT NOT NULL DEFAULT '',
	relationship_kind TEXT NOT NULL DEFAULT '',
	counterpart       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS pressures (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	id     TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, id)
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities (run_id, kind, subtype);
CREATE INDEX IF NOT EXISTS idx_relationships_src ON relationships (run_id, src, kind);
CREATE INDEX IF NOT EXISTS idx_relationships_dst ON relationships (run_id, dst, kind);
CREATE INDEX IF NOT EXISTS idx_events_tick ON narrative_events (run_id, tick);
CREATE INDEX IF NOT EXISTS idx_events_subject ON narrative_events (run_id, subject);

CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
	name,
	description,
	tags,
	content=entities
);

CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities BEGIN
	INSERT INTO entities_fts(rowid, name, description, tags)
	VALUES (new.rowid, new.name, new.description, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS entities_ad AFTER DELETE ON entities BEGIN
	INSERT INTO entities_fts(entities_fts, rowid, name, description, tags)
	VALUES ('delete', old.rowid, old.name, old.description, old.tags);
END;
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("executing DDL: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}
