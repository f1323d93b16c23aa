package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"ema-tidy/models"
	"ema-tidy/utils"
)

// observationColumns are the ema_observations columns filled per row, in
// insert order.
var observationColumns = append([]string{"run_id", "person_id", "source", "row_index"}, models.FullDayColumns...)

// PostgresWriter mirrors tidy tables into PostgreSQL.
type PostgresWriter struct {
	db    *sql.DB
	runID string
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations, and returns a ready-to-use PostgresWriter.
// Rows written through it are tagged with runID.
func NewPostgresWriter(ctx context.Context, dsn, runID string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, runID: runID}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ema_observations (
			id              SERIAL PRIMARY KEY,
			run_id          UUID        NOT NULL,
			person_id       VARCHAR(16) NOT NULL,
			source          VARCHAR(8)  NOT NULL,
			row_index       INTEGER     NOT NULL,
			start_time      TEXT        NOT NULL DEFAULT '',
			end_time        TEXT        NOT NULL DEFAULT '',
			q_entry         TEXT        NOT NULL DEFAULT '',
			q_cheerful      TEXT        NOT NULL DEFAULT '',
			q_worried       TEXT        NOT NULL DEFAULT '',
			q_relaxed       TEXT        NOT NULL DEFAULT '',
			q_sad           TEXT        NOT NULL DEFAULT '',
			q_frustrated    TEXT        NOT NULL DEFAULT '',
			time_entry      TEXT        NOT NULL DEFAULT '',
			time_cheerful   TEXT        NOT NULL DEFAULT '',
			time_worried    TEXT        NOT NULL DEFAULT '',
			time_relaxed    TEXT        NOT NULL DEFAULT '',
			time_sad        TEXT        NOT NULL DEFAULT '',
			time_frustrated TEXT        NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (person_id, row_index)
		);

		CREATE INDEX IF NOT EXISTS idx_ema_observations_run ON ema_observations(run_id);
	`)
	return err
}

// Write replaces every stored row of the table's participant inside one
// transaction.
func (pw *PostgresWriter) Write(ctx context.Context, table *models.FullDayTable) (string, error) {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("postgres: begin: %w: %w", models.ErrIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM ema_observations WHERE person_id = $1", table.PersonID); err != nil {
		return "", fmt.Errorf("postgres: clear %s: %w: %w", table.PersonID, models.ErrIO, err)
	}

	const batchSize = 50
	for i := 0; i < len(table.Rows); i += batchSize {
		end := i + batchSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		query, args, err := pw.buildInsert(table, i, end)
		if err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", fmt.Errorf("postgres: insert %s: %w: %w", table.PersonID, models.ErrIO, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("postgres: commit: %w: %w", models.ErrIO, err)
	}
	return "ema_observations/" + table.PersonID, nil
}

// buildInsert renders a multi-row INSERT for table rows [from, to).
func (pw *PostgresWriter) buildInsert(table *models.FullDayTable, from, to int) (string, []interface{}, error) {
	idx := make([]int, len(models.FullDayColumns))
	for i, name := range models.FullDayColumns {
		idx[i] = table.Index(name)
		if idx[i] < 0 {
			return "", nil, fmt.Errorf("postgres: column %s: %w", name, models.ErrSchemaMismatch)
		}
	}

	width := len(observationColumns)
	valueStrings := make([]string, 0, to-from)
	valueArgs := make([]interface{}, 0, (to-from)*width)

	for r := from; r < to; r++ {
		base := (r - from) * width
		ph := make([]string, width)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		row := table.Rows[r]
		valueArgs = append(valueArgs, pw.runID, table.PersonID, table.Source(r), r)
		for _, i := range idx {
			valueArgs = append(valueArgs, row[i])
		}
	}

	query := fmt.Sprintf("INSERT INTO ema_observations (%s) VALUES %s",
		strings.Join(observationColumns, ", "), strings.Join(valueStrings, ","))
	return query, valueArgs, nil
}

// Close releases the connection pool.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// Observation is one stored row as read back from ema_observations.
type Observation struct {
	PersonID  string
	Source    string
	RowIndex  int
	Values    map[string]string
	CreatedAt time.Time
}

// FetchPerson retrieves a participant's stored rows in row order.
func (pw *PostgresWriter) FetchPerson(ctx context.Context, personID string) ([]*Observation, error) {
	rows, err := pw.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT person_id, source, row_index, created_at, %s
		FROM ema_observations
		WHERE person_id = $1
		ORDER BY row_index
	`, strings.Join(models.FullDayColumns, ", ")), personID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch %s: %w", personID, err)
	}
	defer rows.Close()

	var out []*Observation
	for rows.Next() {
		o := &Observation{Values: make(map[string]string, len(models.FullDayColumns))}
		vals := make([]string, len(models.FullDayColumns))
		dest := []interface{}{&o.PersonID, &o.Source, &o.RowIndex, &o.CreatedAt}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		for i, name := range models.FullDayColumns {
			o.Values[name] = vals[i]
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
