package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Subscriber statuses.
const (
	StatusPending      = "pending"
	StatusConfirmed    = "confirmed"
	StatusUnsubscribed = "unsubscribed"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Subscriber is one newsletter recipient. Token is the opaque identifier
// used in confirmation and unsubscribe links.
type Subscriber struct {
	Email     string
	Token     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertSubscriber inserts a pending subscriber or refreshes the token of
// an existing one. Re-subscribing an unsubscribed address moves it back to
// pending so it must be re-confirmed.
func (s *Store) UpsertSubscriber(ctx context.Context, email, token string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("email is required")
	}
	if token == "" {
		return errors.New("token is required")
	}

	now := time.Now().UTC().Unix()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO subscribers (email, token, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			token = excluded.token,
			status = ?,
			updated_at = excluded.updated_at
	`, email, token, StatusPending, now, now, StatusPending)
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}

	return nil
}

// SubscriberByToken looks a subscriber up by link token.
func (s *Store) SubscriberByToken(ctx context.Context, token string) (*Subscriber, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT email, token, status, created_at, updated_at
		FROM subscribers
		WHERE token = ?
	`, token)

	return scanSubscriber(row)
}

// SubscriberByEmail looks a subscriber up by address.
func (s *Store) SubscriberByEmail(ctx context.Context, email string) (*Subscriber, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT email, token, status, created_at, updated_at
		FROM subscribers
		WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email)))

	return scanSubscriber(row)
}

// SetSubscriberStatus transitions a subscriber identified by token.
func (s *Store) SetSubscriberStatus(ctx context.Context, token, status string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE subscribers
		SET status = ?, updated_at = ?
		WHERE token = ?
	`, status, time.Now().UTC().Unix(), token)
	if err != nil {
		return fmt.Errorf("update subscriber status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscriber status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func scanSubscriber(row *sql.Row) (*Subscriber, error) {
	var (
		sub       Subscriber
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&sub.Email, &sub.Token, &sub.Status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch subscriber: %w", err)
	}

	sub.CreatedAt = time.Unix(createdAt, 0).UTC()
	sub.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &sub, nil
}
