package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertPhoto validates p and inserts it, filling in ID and CreatedAt.
// An unknown album or a blank blob key yields a *ValidationError listing
// every problem.
func (d *Database) InsertPhoto(ctx context.Context, p *Photo) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var reasons []string
	if p.BlobKey == "" {
		reasons = append(reasons, "image can't be blank")
	}

	var albumExists bool
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) > 0 FROM albums WHERE id = ?`, p.AlbumID).Scan(&albumExists); err != nil {
		recordQuery("insert_photo", start, err)
		return fmt.Errorf("failed to check album: %w", err)
	}
	if !albumExists {
		reasons = append(reasons, "album must exist")
	}

	if len(reasons) > 0 {
		err := &ValidationError{Reasons: reasons}
		recordQuery("insert_photo", start, err)
		return err
	}

	var createdAt int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO photos (album_id, blob_key, filename, content_type, byte_size)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at
	`, p.AlbumID, p.BlobKey, p.Filename, p.ContentType, p.ByteSize).Scan(&p.ID, &createdAt)
	recordQuery("insert_photo", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return nil
}

const photoColumns = `id, album_id, blob_key, filename, content_type, byte_size, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*Photo, error) {
	var p Photo
	var createdAt int64
	if err := row.Scan(&p.ID, &p.AlbumID, &p.BlobKey, &p.Filename, &p.ContentType, &p.ByteSize, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// GetPhoto returns the photo with the given id or ErrNotFound.
func (d *Database) GetPhoto(ctx context.Context, id int64) (*Photo, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p, err := scanPhoto(d.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	recordQuery("get_photo", start, err)
	return p, err
}

// ListPhotos returns an album's photos, newest first.
func (d *Database) ListPhotos(ctx context.Context, albumID int64) ([]Photo, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE album_id = ? ORDER BY created_at DESC, id DESC`, albumID)
	if err != nil {
		recordQuery("list_photos", start, err)
		return nil, err
	}
	defer rows.Close()

	photos := []Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			recordQuery("list_photos", start, err)
			return nil, err
		}
		photos = append(photos, *p)
	}
	err = rows.Err()
	recordQuery("list_photos", start, err)
	return photos, err
}

// DeletePhoto removes the photo record. The blob it references is kept.
func (d *Database) DeletePhoto(ctx context.Context, id int64) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err == nil {
		if n, _ := result.RowsAffected(); n == 0 {
			err = ErrNotFound
		}
	}
	recordQuery("delete_photo", start, err)
	return err
}
