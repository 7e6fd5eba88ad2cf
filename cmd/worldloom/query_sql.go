package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"worldloom/internal/store"
)

func querySQLCmd() *cobra.Command {
	var paramPairs []string
	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Execute a raw SQL query against the run tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			params, err := parseParamPairs(paramPairs)
			if err != nil {
				return err
			}
			return runSQL(cmd, query, params)
		},
	}
	cmd.Flags().StringArrayVar(&paramPairs, "param", nil, "Positional parameter as n=value, e.g. 1=run-id (repeatable)")
	return cmd
}

func runSQL(cmd *cobra.Command, query string, params map[string]any) error {
	return withStore(func(ctx context.Context, db store.Store) error {
		rows, err := db.RunSQL(ctx, query, params)
		if err != nil {
			return err
		}
		payload, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	})
}

func parseParamPairs(pairs []string) (map[string]any, error) {
	params := make(map[string]any)
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid param %q: expected key=value", pair)
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, fmt.Errorf("invalid param %q: empty key", pair)
		}
		params[key] = strings.TrimSpace(parts[1])
	}
	return params, nil
}
