package corpus

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/hickeroar/ngrambayes/bayes"
)

// DefaultQuery selects training rows when LoadSQLite is given no query.
const DefaultQuery = "SELECT category, body FROM documents ORDER BY rowid"

// LoadSQLite reads (category, body) rows from the database at path and
// groups them by category in the order categories first appear.
func LoadSQLite(ctx context.Context, path, query string) ([]bayes.Shard, error) {
	if query == "" {
		query = DefaultQuery
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query documents")
	}
	defer rows.Close()

	var shards []bayes.Shard
	index := make(map[string]int)
	for rows.Next() {
		var category, body string
		if err := rows.Scan(&category, &body); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		i, ok := index[category]
		if !ok {
			i = len(shards)
			index[category] = i
			shards = append(shards, bayes.Shard{Category: category})
		}
		shards[i].Documents = append(shards[i].Documents, body)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read documents")
	}
	return shards, nil
}
