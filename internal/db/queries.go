package db

import (
	"fmt"

	"github.com/baiirun/planner/internal/model"
)

// Stats contains aggregated counts across all stored items.
type Stats struct {
	Tasks     int
	Events    int
	Routines  int
	Notes     int
	Done      int
	Cancelled int
	Open      int
	Scheduled int
	Dangling  int
}

// Summary returns an aggregated count report.
func (db *DB) Summary() (*Stats, error) {
	s := &Stats{}

	rows, err := db.Query(`SELECT kind, COUNT(*) FROM items GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		switch model.Kind(kind) {
		case model.KindTask:
			s.Tasks = n
		case model.KindEvent:
			s.Events = n
		case model.KindRoutine:
			s.Routines = n
		case model.KindNote:
			s.Notes = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN completed_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN cancelled_at IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN completed_at IS NULL AND cancelled_at IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN scheduled_date IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM items WHERE kind = ?`, model.KindTask).Scan(&s.Done, &s.Cancelled, &s.Open, &s.Scheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	dangling, err := db.DanglingRefs()
	if err != nil {
		return nil, err
	}
	s.Dangling = len(dangling)
	return s, nil
}

// ScheduledOn returns the IDs of tasks and events whose scheduled date is d.
func (db *DB) ScheduledOn(d model.Date) ([]string, error) {
	return db.queryIDs(`
		SELECT id FROM items WHERE scheduled_date = ?
		ORDER BY created_at, id`, d.String())
}
