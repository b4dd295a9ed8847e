package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// WordRepo is the sqlx-backed WordStore. Words are stored lowercase.
type WordRepo struct {
	db *sqlx.DB
}

// NewWordRepo wraps the database handle.
func NewWordRepo(db *sqlx.DB) *WordRepo {
	return &WordRepo{db: db}
}

// List returns every restricted word, sorted.
func (r *WordRepo) List(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.SelectContext(ctx, &out, `SELECT word FROM restricted_words ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("words: list: %w", err)
	}
	return out, nil
}

// Add stores a new word; duplicates are ignored.
func (r *WordRepo) Add(ctx context.Context, word string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO restricted_words (word) VALUES ($1) ON CONFLICT (word) DO NOTHING`,
		strings.ToLower(word))
	if err != nil {
		return fmt.Errorf("words: add: %w", err)
	}
	return nil
}

// Rename replaces one word with another.
func (r *WordRepo) Rename(ctx context.Context, from, to string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE restricted_words SET word = $2 WHERE word = $1`,
		strings.ToLower(from), strings.ToLower(to))
	if err != nil {
		return fmt.Errorf("words: rename: %w", err)
	}
	return nil
}

// Remove deletes a word.
func (r *WordRepo) Remove(ctx context.Context, word string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM restricted_words WHERE word = $1`, strings.ToLower(word))
	if err != nil {
		return fmt.Errorf("words: remove: %w", err)
	}
	return nil
}
