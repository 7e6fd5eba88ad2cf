package sqlite

import (
	"context"
	"fmt"

	"worldloom/internal/store"
)

func (c *Client) RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	rows, err := c.db.QueryxContext(ctx, query, store.PositionalArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("running sql: %w", err)
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning sql row: %w", err)
		}
		// TEXT columns come back as []byte from the driver.
		for col, v := range row {
			if b, ok := v.([]byte); ok {
				row[col] = string(b)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sql rows: %w", err)
	}
	return results, nil
}
