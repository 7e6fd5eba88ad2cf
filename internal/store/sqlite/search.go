package sqlite

import (
	"context"
	"fmt"
	"strings"

	"worldloom/internal/store"
)

// Search ranks the entities of a run by a websearch-style query over
// name, description and tags.
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

	sqlQuery := `
	SELECT e.id, e.name, e.kind, e.subtype,
		   -bm25(entities_fts, 10.0, 2.0, 4.0) AS score,
		   snippet(entities_fts, -1, '**', '**', '...', 24) AS snippet
	FROM entities_fts
	JOIN entities e ON entities_fts.rowid = e.rowid
	WHERE entities_fts MATCH ?
	  AND e.run_id = ?
	ORDER BY score DESC, e.name ASC
	LIMIT ?
	`

	results := []store.SearchResult{}
	match := ftsQuery(query)
	if match == "" {
		return results, nil
	}
	if err := c.db.SelectContext(ctx, &results, sqlQuery, match, runID, limit); err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}
	return results, nil
}

type queryToken struct {
	text    string
	op      bool
	negated bool
}

// ftsQuery rewrites a websearch-style query into FTS5 syntax. Bare terms
// are joined with AND, "-term" becomes NOT term and quoted phrases pass
// through. FTS5 NOT is binary, so a negation with nothing before it is
// dropped.
func ftsQuery(query string) string {
	var parts []string
	afterTerm := false
	for _, tok := range splitQuery(query) {
		switch {
		case tok.op:
			if !afterTerm {
				continue
			}
			parts = append(parts, tok.text)
			afterTerm = false
		case tok.negated:
			if !afterTerm {
				continue
			}
			parts = append(parts, "NOT", tok.text)
		default:
			if afterTerm {
				parts = append(parts, "AND")
			}
			parts = append(parts, tok.text)
			afterTerm = true
		}
	}
	if !afterTerm && len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, " ")
}

func splitQuery(query string) []queryToken {
	var tokens []queryToken
	var word strings.Builder
	flush := func() {
		w := word.String()
		word.Reset()
		switch upper := strings.ToUpper(w); {
		case w == "":
		case upper == "AND" || upper == "OR" || upper == "NOT":
			tokens = append(tokens, queryToken{text: upper, op: true})
		case len(w) > 1 && w[0] == '-':
			tokens = append(tokens, queryToken{text: w[1:], negated: true})
		default:
			tokens = append(tokens, queryToken{text: w})
		}
	}

	for i := 0; i < len(query); i++ {
		switch ch := query[i]; ch {
		case '"':
			flush()
			end := strings.IndexByte(query[i+1:], '"')
			if end < 0 {
				end = len(query) - i - 1
			}
			if phrase := strings.TrimSpace(query[i+1 : i+1+end]); phrase != "" {
				tokens = append(tokens, queryToken{text: `"` + phrase + `"`})
			}
			i += end + 1
		case ' ', '\t', '\n':
			flush()
		default:
			word.WriteByte(ch)
		}
	}
	flush()
	return tokens
}
