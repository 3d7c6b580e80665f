// Package library stores the browse tree served to the media item screens.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jiemo/player/internal/media"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an item id is not in the catalog.
var ErrNotFound = errors.New("media item not found")

// Catalog is the browse tree backed by SQLite
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at dbPath.
// ":memory:" gives a private in-memory catalog.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps in-memory databases consistent across calls
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS media_items (
			id TEXT PRIMARY KEY,
			parent_id TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			subtitle TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			art_uri TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			browsable BOOLEAN NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_parent ON media_items(parent_id, position);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const itemColumns = `id, parent_id, title, subtitle, album, art_uri, duration_ms, browsable`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (media.Item, error) {
	var item media.Item
	var durationMS int64
	err := row.Scan(
		&item.ID,
		&item.ParentID,
		&item.Title,
		&item.Subtitle,
		&item.Album,
		&item.AlbumArtURI,
		&durationMS,
		&item.Browsable,
	)
	if err != nil {
		return media.Item{}, err
	}
	item.Duration = time.Duration(durationMS) * time.Millisecond
	return item, nil
}

// Children returns the items under parentID in import order.
// An unknown parent yields an empty list, not an error.
func (c *Catalog) Children(ctx context.Context, parentID string) ([]media.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM media_items
		WHERE parent_id = ?
		ORDER BY position ASC, title ASC`

	rows, err := c.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children of %q: %w", parentID, err)
	}
	defer rows.Close()

	items := []media.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media items: %w", err)
	}

	return items, nil
}

// Item returns a single item by id
func (c *Catalog) Item(ctx context.Context, id string) (media.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM media_items WHERE id = ?`

	item, err := scanItem(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return media.Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return media.Item{}, fmt.Errorf("failed to get media item %q: %w", id, err)
	}
	return item, nil
}

// Upsert inserts or replaces items in one transaction. Each item's
// position among its siblings follows its order in the slice.
func (c *Catalog) Upsert(ctx context.Context, items []media.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO media_items (id, parent_id, position, title, subtitle, album, art_uri, duration_ms, browsable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			position = excluded.position,
			title = excluded.title,
			subtitle = excluded.subtitle,
			album = excluded.album,
			art_uri = excluded.art_uri,
			duration_ms = excluded.duration_ms,
			browsable = excluded.browsable,
			updated_at = strftime('%s', 'now')
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	positions := make(map[string]int)
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("media item %q has no id", item.Title)
		}
		pos := positions[item.ParentID]
		positions[item.ParentID] = pos + 1

		if _, err := stmt.ExecContext(ctx,
			item.ID,
			item.ParentID,
			pos,
			item.Title,
			item.Subtitle,
			item.Album,
			item.AlbumArtURI,
			item.Duration.Milliseconds(),
			item.Browsable,
		); err != nil {
			return fmt.Errorf("failed to upsert media item %q: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Remove deletes an item and everything beneath it.
// Returns the number of rows removed.
func (c *Catalog) Remove(ctx context.Context, id string) (int64, error) {
	query := `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM media_items WHERE id = ?
			UNION ALL
			SELECT m.id FROM media_items m JOIN subtree s ON m.parent_id = s.id
		)
		DELETE FROM media_items WHERE id IN (SELECT id FROM subtree)
	`

	result, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to remove media item %q: %w", id, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Count returns the number of items in the catalog
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_items").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count media items: %w", err)
	}
	return count, nil
}
