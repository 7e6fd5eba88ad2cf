package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"worldloom/internal/store"
)

func (c *Client) Search(ctx context.Context, runID, query string, limit int) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	runID, err := c.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	sql := `
SELECT id, name, kind, subtype,
    ts_rank(search_vector, websearch_to_tsquery('english', $1)) AS score,
    CASE WHEN description <> '' THEN
        ts_headline('english', description, websearch_to_tsquery('english', $1),
            'MaxFragments=2, MaxWords=24, MinWords=8, StartSel=**, StopSel=**')
    ELSE '' END AS snippet
FROM entities
WHERE search_vector @@ websearch_to_tsquery('english', $1)
  AND run_id = $2
ORDER BY score DESC, name ASC
LIMIT $3
`

	rows, err := c.pool.Query(ctx, sql, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.SearchResult])
	if err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	return results, nil
}
