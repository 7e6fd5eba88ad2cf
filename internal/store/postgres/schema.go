package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// The statements run in one implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id                    TEXT PRIMARY KEY,
    project               TEXT NOT NULL DEFAULT '',
    domain                TEXT NOT NULL,
    seed                  BIGINT NOT NULL,
    tick                  INTEGER NOT NULL,
    epoch                 INTEGER NOT NULL,
    era                   TEXT NOT NULL DEFAULT '',
    entity_count          INTEGER NOT NULL,
    relationship_count    INTEGER NOT NULL,
    history_event_count   INTEGER NOT NULL,
    narrative_event_count INTEGER NOT NULL,
    saved_at              TIMESTAMPTZ NOT NULL
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
    x           DOUBLE PRECISION NOT NULL DEFAULT 0,
    y           DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    search_vector TSVECTOR GENERATED ALWAYS AS (
        setweight(to_tsvector('simple', name), 'A') ||
        setweight(to_tsvector('english', tags), 'B') ||
        setweight(to_tsvector('english', description), 'C')
    ) STORED,
    PRIMARY KEY (run_id, id)
);

CREATE TABLE IF NOT EXISTS relationships (
    run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    kind         TEXT NOT NULL,
    src          TEXT NOT NULL,
    dst          TEXT NOT NULL,
    strength     DOUBLE PRECISION NOT NULL,
    created_at   INTEGER NOT NULL,
    catalyzed_by TEXT NOT NULL DEFAULT '',
    distance     DOUBLE PRECISION,
    archived_at  INTEGER
);

CREATE TABLE IF NOT EXISTS narrative_events (
    run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq               INTEGER NOT NULL,
    id                TEXT NOT NULL,
    tick              INTEGER NOT NULL,
    era               TEXT NOT NULL DEFAULT '',
    event_type        TEXT NOT NULL,
    significance      DOUBLE PRECISION NOT NULL,
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
    value  DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, id)
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities (run_id, kind, subtype);
CREATE INDEX IF NOT EXISTS idx_entities_search ON entities USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_relationships_src ON relationships (run_id, src, kind);
CREATE INDEX IF NOT EXISTS idx_relationships_dst ON relationships (run_id, dst, kind);
CREATE INDEX IF NOT EXISTS idx_events_tick ON narrative_events (run_id, tick);
CREATE INDEX IF NOT EXISTS idx_events_subject ON narrative_events (run_id, subject);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
