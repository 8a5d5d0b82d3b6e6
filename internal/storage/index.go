package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Index is a SQLite table of saved runs for fast listing and lookup. The
// run directories stay the source of truth.
type Index struct {
	conn *sqlx.DB
}

// IndexEntry is one row of the runs table.
type IndexEntry struct {
	ID          string          `db:"id"`
	CreatedAt   int64           `db:"created_at"`
	Label       string          `db:"label"`
	Integrator  string          `db:"integrator"`
	BD1         float64         `db:"bd1"`
	D2          float64         `db:"d2"`
	D3          float64         `db:"d3"`
	X1Star      sql.NullFloat64 `db:"x1_star"`
	X2Star      sql.NullFloat64 `db:"x2_star"`
	X3Star      sql.NullFloat64 `db:"x3_star"`
	Feasible    bool            `db:"feasible"`
	Stability   string          `db:"stability"`
	Steps       int             `db:"steps"`
	Rejected    int             `db:"rejected"`
	ElapsedNano int64           `db:"elapsed_ns"`
}

func (e IndexEntry) Time() time.Time { return time.Unix(0, e.CreatedAt).UTC() }

func (e IndexEntry) HasEquilibrium() bool { return e.X1Star.Valid }

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	ix := &Index{conn: conn}
	if err := ix.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return ix, nil
}

func (ix *Index) Close() error {
	return ix.conn.Close()
}

func (ix *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		created_at  INTEGER NOT NULL,
		label       TEXT NOT NULL DEFAULT '',
		integrator  TEXT NOT NULL,
		bd1         REAL NOT NULL,
		d2          REAL NOT NULL,
		d3          REAL NOT NULL,
		x1_star     REAL,
		x2_star     REAL,
		x3_star     REAL,
		feasible    INTEGER NOT NULL DEFAULT 0,
		stability   TEXT NOT NULL DEFAULT '',
		steps       INTEGER NOT NULL DEFAULT 0,
		rejected    INTEGER NOT NULL DEFAULT 0,
		elapsed_ns  INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := ix.conn.Exec(schema)
	return err
}

// Record inserts or replaces the row for meta.ID.
func (ix *Index) Record(meta RunMetadata) error {
	entry := IndexEntry{
		ID:          meta.ID,
		CreatedAt:   meta.Timestamp.UnixNano(),
		Label:       meta.Label,
		Integrator:  meta.Integrator,
		BD1:         meta.Coefficients.BD1,
		D2:          meta.Coefficients.D2,
		D3:          meta.Coefficients.D3,
		Stability:   meta.Stability,
		Steps:       meta.Stats.Steps,
		Rejected:    meta.Stats.Rejected,
		ElapsedNano: int64(meta.Elapsed),
	}
	if eq := meta.Equilibrium; eq != nil {
		entry.X1Star = sql.NullFloat64{Float64: eq.X1, Valid: true}
		entry.X2Star = sql.NullFloat64{Float64: eq.X2, Valid: true}
		entry.X3Star = sql.NullFloat64{Float64: eq.X3, Valid: true}
		entry.Feasible = eq.Feasible
	}

	_, err := ix.conn.NamedExec(`INSERT OR REPLACE INTO runs
		(id, created_at, label, integrator, bd1, d2, d3, x1_star, x2_star, x3_star,
		 feasible, stability, steps, rejected, elapsed_ns)
		VALUES (:id, :created_at, :label, :integrator, :bd1, :d2, :d3, :x1_star, :x2_star, :x3_star,
		 :feasible, :stability, :steps, :rejected, :elapsed_ns)`, entry)
	return err
}

// Recent returns up to limit rows, newest first.
func (ix *Index) Recent(limit int) ([]IndexEntry, error) {
	var entries []IndexEntry
	err := ix.conn.Select(&entries,
		"SELECT * FROM runs ORDER BY created_at DESC, id LIMIT ?",
		limit,
	)
	return entries, err
}

func (ix *Index) Get(id string) (*IndexEntry, error) {
	var entry IndexEntry
	err := ix.conn.Get(&entry, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (ix *Index) Remove(id string) error {
	res, err := ix.conn.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (ix *Index) Count() (int, error) {
	var n int
	err := ix.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}
