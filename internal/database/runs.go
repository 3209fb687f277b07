package database

import (
	"database/sql"
	"fmt"
)

// Run is a persisted analysis run.
type Run struct {
	ID              int64
	Brand           string
	StartedAt       string
	FinishedAt      string
	Partial         bool
	VisibilityScore float64
	TotalQueries    int
	TotalResponses  int
	TotalMentions   int
	ReportJSON      string
	ReportMarkdown  string
}

// InsertRun stores a finished run and returns its id.
func (db *DB) InsertRun(brand string, partial bool, visibilityScore float64, totalQueries, totalResponses, totalMentions int, reportJSON, reportMarkdown string) (int64, error) {
	partialInt := 0
	if partial {
		partialInt = 1
	}
	res, err := db.conn.Exec(`
INSERT INTO runs (brand, finished_at, partial, visibility_score, total_queries, total_responses, total_mentions, report_json, report_markdown)
VALUES (?, datetime('now'), ?, ?, ?, ?, ?, ?, ?)`,
		brand, partialInt, visibilityScore, totalQueries, totalResponses, totalMentions, reportJSON, reportMarkdown)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	return id, nil
}

// GetRun returns one run by id, or nil if it does not exist.
func (db *DB) GetRun(id int64) (*Run, error) {
	row := db.conn.QueryRow(`
SELECT id, brand, started_at, COALESCE(finished_at, ''), partial, visibility_score,
       total_queries, total_responses, total_mentions,
       COALESCE(report_json, ''), COALESCE(report_markdown, '')
FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %d: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, without report bodies.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(`
SELECT id, brand, started_at, COALESCE(finished_at, ''), partial, visibility_score,
       total_queries, total_responses, total_mentions, '', ''
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var partial int
	err := row.Scan(&run.ID, &run.Brand, &run.StartedAt, &run.FinishedAt, &partial,
		&run.VisibilityScore, &run.TotalQueries, &run.TotalResponses, &run.TotalMentions,
		&run.ReportJSON, &run.ReportMarkdown)
	if err != nil {
		return nil, err
	}
	run.Partial = partial != 0
	return &run, nil
}
