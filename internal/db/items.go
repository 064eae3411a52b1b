package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/tree"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Persist writes every change of c in a single transaction.
func (db *DB) Persist(c *tree.Commit) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ch := range c.Changes {
		switch ch.Op {
		case tree.OpDelete:
			if err := deleteItem(tx, ch.ID); err != nil {
				return err
			}
			if err := addHistory(tx, ch.ID, ch.Op, ch.Before); err != nil {
				return err
			}
		default:
			if err := putItem(tx, ch.After); err != nil {
				return err
			}
			if err := addHistory(tx, ch.ID, ch.Op, ch.After); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	db.log.Debug().Int("changes", len(c.Changes)).Msg("persisted commit")
	return nil
}

func putItem(x execer, it model.Item) error {
	h := it.Header()
	if !h.Kind.IsValid() {
		return fmt.Errorf("invalid item kind: %s", h.Kind)
	}
	doc, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to marshal item %s: %w", h.ID, err)
	}

	var scheduled *string
	if t, ok := model.ScheduledAt(it); ok {
		d := model.DateOf(t).String()
		scheduled = &d
	}

	_, err = x.Exec(`
		INSERT OR REPLACE INTO items (id, kind, content, parent_id, depth_level, created_at, created_date, scheduled_date, completed_at, cancelled_at, updated_at, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Kind, h.Content, h.ParentID, h.DepthLevel, h.CreatedAt, h.CreatedDate.String(),
		scheduled, h.CompletedAt, h.CancelledAt, h.UpdatedAt, string(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to write item %s: %w", h.ID, err)
	}
	return setRefs(x, h.ID, refsOf(it))
}

func deleteItem(x execer, id string) error {
	if _, err := x.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return setRefs(x, id, nil)
}

// GetItem retrieves an item by ID.
func (db *DB) GetItem(id string) (model.Item, error) {
	var kind, doc string
	err := db.QueryRow(`SELECT kind, doc FROM items WHERE id = ?`, id).Scan(&kind, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item not found: %s (use 'plan list' to see available items)", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return decode(model.Kind(kind), doc)
}

// LoadItems returns every stored item in creation order.
func (db *DB) LoadItems() ([]model.Item, error) {
	rows, err := db.Query(`SELECT kind, doc FROM items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.Item
	for rows.Next() {
		var kind, doc string
		if err := rows.Scan(&kind, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it, err := decode(model.Kind(kind), doc)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func decode(kind model.Kind, doc string) (model.Item, error) {
	var it model.Item
	switch kind {
	case model.KindTask:
		it = &model.Task{}
	case model.KindEvent:
		it = &model.Event{}
	case model.KindRoutine:
		it = &model.Routine{}
	case model.KindNote:
		it = &model.Note{}
	default:
		return nil, fmt.Errorf("invalid item kind: %s", kind)
	}
	if err := json.Unmarshal([]byte(doc), it); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	if it.Header().Children == nil {
		it.Header().Children = []string{}
	}
	return it, nil
}

func refsOf(it model.Item) []string {
	switch v := it.(type) {
	case *model.Task:
		return v.EmbeddedRefs
	case *model.Event:
		return v.EmbeddedRefs
	}
	return nil
}
