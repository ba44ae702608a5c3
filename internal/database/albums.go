package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// MaxAlbumNameLength bounds album names.
const MaxAlbumNameLength = 100

// CreateAlbum validates name, derives a unique slug and inserts the album.
func (d *Database) CreateAlbum(ctx context.Context, name string) (*Album, error) {
	start := time.Now()

	name = strings.TrimSpace(name)
	var reasons []string
	if name == "" {
		reasons = append(reasons, "name can't be blank")
	}
	if len([]rune(name)) > MaxAlbumNameLength {
		reasons = append(reasons, fmt.Sprintf("name is too long (maximum is %d characters)", MaxAlbumNameLength))
	}
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	album := &Album{Name: name}
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		slug, err := uniqueSlug(ctx, tx, Slugify(name))
		if err != nil {
			return err
		}

		var createdAt int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO albums (name, slug) VALUES (?, ?) RETURNING id, created_at`,
			name, slug,
		).Scan(&album.ID, &createdAt)
		if err != nil {
			return err
		}
		album.Slug = slug
		album.CreatedAt = time.Unix(createdAt, 0)
		return nil
	})
	recordQuery("insert_album", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create album: %w", err)
	}
	return album, nil
}

func uniqueSlug(ctx context.Context, tx *sql.Tx, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		var taken bool
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) > 0 FROM albums WHERE slug = ?`, candidate).Scan(&taken); err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// Slugify lowercases s and collapses every run of non-alphanumeric
// characters into a single dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "album"
	}
	return slug
}

// GetAlbum returns the album with the given id or ErrNotFound.
func (d *Database) GetAlbum(ctx context.Context, id int64) (*Album, error) {
	return d.getAlbum(ctx, "get_album", `WHERE id = ?`, id)
}

// GetAlbumBySlug returns the album with the given slug or ErrNotFound.
func (d *Database) GetAlbumBySlug(ctx context.Context, slug string) (*Album, error) {
	return d.getAlbum(ctx, "get_album", `WHERE slug = ?`, slug)
}

func (d *Database) getAlbum(ctx context.Context, op, where string, arg any) (*Album, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var album Album
	var createdAt int64
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM albums `+where, arg,
	).Scan(&album.ID, &album.Name, &album.Slug, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	recordQuery(op, start, err)
	if err != nil {
		return nil, err
	}
	album.CreatedAt = time.Unix(createdAt, 0)
	return &album, nil
}

// ListAlbums returns all albums, newest first.
func (d *Database) ListAlbums(ctx context.Context) ([]Album, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM albums ORDER BY created_at DESC, id DESC`)
	if err != nil {
		recordQuery("list_albums", start, err)
		return nil, err
	}
	defer rows.Close()

	albums := []Album{}
	for rows.Next() {
		var album Album
		var createdAt int64
		if err := rows.Scan(&album.ID, &album.Name, &album.Slug, &createdAt); err != nil {
			recordQuery("list_albums", start, err)
			return nil, err
		}
		album.CreatedAt = time.Unix(createdAt, 0)
		albums = append(albums, album)
	}
	err = rows.Err()
	recordQuery("list_albums", start, err)
	return albums, err
}
