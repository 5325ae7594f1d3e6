// Package ledger keeps an audit trail of runs in SQLite. It never decides
// whether a company is processed; the output directory does that.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/fxgest/internal/extract"
	"github.com/dgallion1/fxgest/internal/pipeline"
)

// Ledger implements pipeline.RunRecorder.
type Ledger struct {
	db *sql.DB
}

var _ pipeline.RunRecorder = (*Ledger)(nil)

// Open opens a SQLite database with WAL mode enabled and creates the schema.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; workers record concurrently.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	tickers TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	counts_json TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS company_results (
	run_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	company TEXT,
	year TEXT,
	artifact TEXT,
	documents INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	unique_blobs INTEGER NOT NULL DEFAULT 0,
	recorded_at TEXT NOT NULL,
	PRIMARY KEY(run_id, ticker),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS document_results (
	run_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	path TEXT NOT NULL,
	company TEXT,
	year TEXT,
	fragments INTEGER NOT NULL DEFAULT 0,
	bytes INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	recorded_at TEXT NOT NULL,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_company_results_ticker ON company_results(ticker);
CREATE INDEX IF NOT EXISTS idx_document_results_run ON document_results(run_id, ticker);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Fixed-width timestamps so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func now() string { return time.Now().UTC().Format(timeLayout) }

func (l *Ledger) StartRun(ctx context.Context, runID string, tickers []string, started time.Time) error {
	if tickers == nil {
		tickers = []string{}
	}
	tj, err := json.Marshal(tickers)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, `
INSERT INTO runs (id, tickers, status, started_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		runID, string(tj), string(pipeline.RunRunning), started.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

func (l *Ledger) FinishRun(ctx context.Context, snap pipeline.RunSnapshot) error {
	cj, err := json.Marshal(snap.Counts)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, `
UPDATE runs SET status = ?, error = ?, counts_json = ?, finished_at = ? WHERE id = ?`,
		string(snap.Status), snap.Error, string(cj), now(), snap.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", snap.ID, err)
	}
	return nil
}

func (l *Ledger) RecordCompany(ctx context.Context, runID string, o pipeline.CompanyOutcome) error {
	_, err := l.db.ExecContext(ctx, `
INSERT INTO company_results (run_id, ticker, status, reason, company, year, artifact, documents, failed, unique_blobs, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, ticker) DO UPDATE SET
	status = excluded.status, reason = excluded.reason, company = excluded.company,
	year = excluded.year, artifact = excluded.artifact, documents = excluded.documents,
	failed = excluded.failed, unique_blobs = excluded.unique_blobs, recorded_at = excluded.recorded_at`,
		runID, o.Ticker, string(o.Status), o.Reason, o.Company, o.Year, o.Artifact,
		o.Documents, o.Failed, o.Unique, now())
	if err != nil {
		return fmt.Errorf("record company %s: %w", o.Ticker, err)
	}
	return nil
}

func (l *Ledger) RecordDocument(ctx context.Context, runID, ticker string, res extract.Result) error {
	var errText sql.NullString
	if res.Err != nil {
		errText = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO document_results (run_id, ticker, path, company, year, fragments, bytes, duration_ms, error, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ticker, res.Path, res.Company, res.Year, res.Fragments, res.Bytes,
		res.Duration.Milliseconds(), errText, now())
	if err != nil {
		return fmt.Errorf("record document %s: %w", res.Path, err)
	}
	return nil
}

// Entry is one company outcome as stored.
type Entry struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Company    string `json:"company,omitempty"`
	Year       string `json:"year,omitempty"`
	Artifact   string `json:"artifact,omitempty"`
	Documents  int    `json:"documents"`
	Failed     int    `json:"failed_documents"`
	Unique     int    `json:"unique_blobs"`
	RecordedAt string `json:"recorded_at"`
}

// History returns every recorded outcome for ticker, newest first.
func (l *Ledger) History(ctx context.Context, ticker string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT run_id, status, COALESCE(reason, ''), COALESCE(company, ''), COALESCE(year, ''),
	COALESCE(artifact, ''), documents, failed, unique_blobs, recorded_at
FROM company_results WHERE ticker = ? ORDER BY recorded_at DESC, run_id DESC`, ticker)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Status, &e.Reason, &e.Company, &e.Year,
			&e.Artifact, &e.Documents, &e.Failed, &e.Unique, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DocumentCount returns the number of document rows recorded for a run.
func (l *Ledger) DocumentCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_results WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
