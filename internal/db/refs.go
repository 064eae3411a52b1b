package db

import (
	"fmt"
)

func setRefs(x execer, itemID string, refs []string) error {
	if _, err := x.Exec(`DELETE FROM refs WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to clear references: %w", err)
	}
	for _, ref := range refs {
		_, err := x.Exec(`INSERT OR IGNORE INTO refs (item_id, ref_id) VALUES (?, ?)`, itemID, ref)
		if err != nil {
			return fmt.Errorf("failed to add reference: %w", err)
		}
	}
	return nil
}

// GetRefs returns the IDs the given item references through [[id]] tokens.
func (db *DB) GetRefs(itemID string) ([]string, error) {
	return db.queryIDs(`SELECT ref_id FROM refs WHERE item_id = ? ORDER BY ref_id`, itemID)
}

// Backlinks returns the IDs of items whose content references itemID.
func (db *DB) Backlinks(itemID string) ([]string, error) {
	return db.queryIDs(`
		SELECT r.item_id FROM refs r
		JOIN items i ON i.id = r.item_id
		WHERE r.ref_id = ?
		ORDER BY i.created_at, i.id`, itemID)
}

// RefEdge is a reference that points at an item that no longer exists.
type RefEdge struct {
	ItemID      string
	ItemContent string
	RefID       string
}

// DanglingRefs returns references whose target is missing.
func (db *DB) DanglingRefs() ([]RefEdge, error) {
	rows, err := db.Query(`
		SELECT r.item_id, i.content, r.ref_id
		FROM refs r
		JOIN items i ON i.id = r.item_id
		LEFT JOIN items t ON t.id = r.ref_id
		WHERE t.id IS NULL
		ORDER BY i.created_at, r.ref_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []RefEdge
	for rows.Next() {
		var e RefEdge
		if err := rows.Scan(&e.ItemID, &e.ItemContent, &e.RefID); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (db *DB) queryIDs(query string, args ...any) ([]string, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
