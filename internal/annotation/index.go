package annotation

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS annotations (
		iteration INTEGER NOT NULL,
		object    TEXT    NOT NULL,
		template  TEXT    NOT NULL,
		kind      TEXT    NOT NULL,
		image     TEXT    NOT NULL,
		xmin      INTEGER NOT NULL,
		ymin      INTEGER NOT NULL,
		xmax      INTEGER NOT NULL,
		ymax      INTEGER NOT NULL,
		PRIMARY KEY (iteration, object)
	);
	CREATE INDEX IF NOT EXISTS idx_annotations_template ON annotations (template);
`

// Index is a sqlite table of every persisted annotation, one row per object
// per iteration.
type Index struct {
	db *sql.DB
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Insert replaces the rows of rec's iteration with its annotations in one
// transaction.
func (x *Index) Insert(ctx context.Context, rec *Record) (err error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM annotations WHERE iteration = ?`, rec.Iteration); err != nil {
		return fmt.Errorf("clear iteration %d: %w", rec.Iteration, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO annotations (iteration, object, template, kind, image, xmin, ymin, xmax, ymax)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range rec.Annotations {
		if _, err = stmt.ExecContext(ctx,
			rec.Iteration, a.Object, a.Template, a.Kind, rec.Image,
			a.Box.XMin, a.Box.YMin, a.Box.XMax, a.Box.YMax,
		); err != nil {
			return fmt.Errorf("insert %s: %w", a.Object, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns the number of rows stored for iteration.
func (x *Index) Count(ctx context.Context, iteration int) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM annotations WHERE iteration = ?`, iteration).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count iteration %d: %w", iteration, err)
	}
	return n, nil
}

// TemplateCounts returns how many annotations each template has produced.
func (x *Index) TemplateCounts(ctx context.Context) (map[string]int, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT template, COUNT(*) FROM annotations GROUP BY template`)
	if err != nil {
		return nil, fmt.Errorf("query template counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan template count: %w", err)
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}
