package db

import (
	"fmt"
	"time"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/tree"
)

// HistoryEntry records one change applied to an item.
type HistoryEntry struct {
	ItemID    string
	Op        tree.Op
	Kind      model.Kind
	Content   string
	CreatedAt time.Time
}

func addHistory(x execer, id string, op tree.Op, it model.Item) error {
	h := it.Header()
	_, err := x.Exec(`
		INSERT INTO history (item_id, op, kind, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, op, h.Kind, h.Content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// GetHistory returns the recorded changes for an item, oldest first.
func (db *DB) GetHistory(itemID string) ([]HistoryEntry, error) {
	return db.queryHistory(`
		SELECT item_id, op, kind, content, created_at FROM history
		WHERE item_id = ? ORDER BY id`, itemID)
}

// RecentHistory returns the latest changes across all items, newest first.
func (db *DB) RecentHistory(limit int) ([]HistoryEntry, error) {
	return db.queryHistory(`
		SELECT item_id, op, kind, content, created_at FROM history
		ORDER BY id DESC LIMIT ?`, limit)
}

func (db *DB) queryHistory(query string, args ...any) ([]HistoryEntry, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ItemID, &e.Op, &e.Kind, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
