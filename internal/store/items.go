package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LibraryItem is one downloadable PDF in the library.
type LibraryItem struct {
	ID        string
	Title     string
	ObjectKey string
	Published bool
	CreatedAt time.Time
}

// LibraryItemByID fetches one published library item.
func (s *Store) LibraryItemByID(ctx context.Context, id string) (*LibraryItem, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, title, object_key, published, created_at
		FROM library_items
		WHERE id = ? AND published = 1
	`, id)

	var (
		item      LibraryItem
		published int
		createdAt int64
	)
	if err := row.Scan(&item.ID, &item.Title, &item.ObjectKey, &published, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch library item: %w", err)
	}

	item.Published = published != 0
	item.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &item, nil
}

// InsertLibraryItem adds a downloadable item. Used by seeding and tests.
func (s *Store) InsertLibraryItem(ctx context.Context, item LibraryItem) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	published := 0
	if item.Published {
		published = 1
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO library_items (id, title, object_key, published, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.ID, item.Title, item.ObjectKey, published, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("insert library item: %w", err)
	}

	return nil
}
