package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TagAlias maps a symbolic global tag alias to a concrete tag.
type TagAlias struct {
	Alias   string
	Tag     string
	Comment string
}

// SetAlias inserts or replaces an alias.
func (s *Store) SetAlias(ctx context.Context, a TagAlias) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_tags (alias, tag, comment)
		VALUES (?, ?, ?)
		ON CONFLICT(alias) DO UPDATE SET tag = excluded.tag, comment = excluded.comment
	`, a.Alias, a.Tag, a.Comment)
	if err != nil {
		return fmt.Errorf("set alias %s: %w", a.Alias, err)
	}
	return nil
}

// Alias returns the stored alias, or ErrNotFound.
func (s *Store) Alias(ctx context.Context, alias string) (TagAlias, error) {
	var a TagAlias
	err := s.db.QueryRowContext(ctx, `
		SELECT alias, tag, comment FROM global_tags WHERE alias = ?
	`, alias).Scan(&a.Alias, &a.Tag, &a.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return TagAlias{}, fmt.Errorf("alias %s: %w", alias, ErrNotFound)
	}
	if err != nil {
		return TagAlias{}, fmt.Errorf("read alias %s: %w", alias, err)
	}
	return a, nil
}

// DeleteAlias removes an alias, returning ErrNotFound if it was absent.
func (s *Store) DeleteAlias(ctx context.Context, alias string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM global_tags WHERE alias = ?`, alias)
	if err != nil {
		return fmt.Errorf("delete alias %s: %w", alias, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete alias %s: %w", alias, err)
	}
	if n == 0 {
		return fmt.Errorf("alias %s: %w", alias, ErrNotFound)
	}
	return nil
}

// ListAliases returns every stored alias ordered by name.
func (s *Store) ListAliases(ctx context.Context) ([]TagAlias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alias, tag, comment FROM global_tags ORDER BY alias COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	aliases := []TagAlias{}
	for rows.Next() {
		var a TagAlias
		if err := rows.Scan(&a.Alias, &a.Tag, &a.Comment); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, nil
}
