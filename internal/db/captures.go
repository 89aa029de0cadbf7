package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrCaptureNotFound is returned when no capture has the requested ID.
var ErrCaptureNotFound = errors.New("capture not found")

// Kind distinguishes stills from recordings.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Capture is one row of the ledger. Path is relative to the media
// directory.
type Capture struct {
	CaptureID   string        `json:"capture_id"`
	Kind        Kind          `json:"kind"`
	Path        string        `json:"path"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Orientation string        `json:"orientation"`
	Position    string        `json:"position"`
	Normalized  bool          `json:"normalized"`
	Cropped     bool          `json:"cropped"`
	Duration    time.Duration `json:"duration_ns,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// InsertCapture stores c. An empty CaptureID is replaced with a new UUID
// and a zero CreatedAt with the current time; the stored values are written
// back into c.
func (db *DB) InsertCapture(ctx context.Context, c *Capture) error {
	if c.Kind != KindPhoto && c.Kind != KindVideo {
		return fmt.Errorf("insert capture: unknown kind %q", c.Kind)
	}
	if c.CaptureID == "" {
		c.CaptureID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.Clock.Now()
	}
	if c.Position == "" {
		c.Position = "rear"
	}

	err := retryOnBusy(ctx, db.Clock, func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO captures (
				capture_id, kind, path, width, height, orientation, position,
				normalized, cropped, duration_ms, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.CaptureID, string(c.Kind), c.Path, c.Width, c.Height, c.Orientation, c.Position,
			c.Normalized, c.Cropped, c.Duration.Milliseconds(), c.CreatedAt.UnixNano(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert capture %s: %w", c.CaptureID, err)
	}
	return nil
}

const captureColumns = `capture_id, kind, path, width, height, orientation, position,
	normalized, cropped, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCapture(row rowScanner) (Capture, error) {
	var (
		c          Capture
		kind       string
		durationMS int64
		createdAt  int64
	)
	err := row.Scan(&c.CaptureID, &kind, &c.Path, &c.Width, &c.Height, &c.Orientation, &c.Position,
		&c.Normalized, &c.Cropped, &durationMS, &createdAt)
	if err != nil {
		return Capture{}, err
	}
	c.Kind = Kind(kind)
	c.Duration = time.Duration(durationMS) * time.Millisecond
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return c, nil
}

// GetCapture returns the capture with the given ID.
func (db *DB) GetCapture(ctx context.Context, id string) (Capture, error) {
	row := db.QueryRowContext(ctx, `SELECT `+captureColumns+` FROM captures WHERE capture_id = ?`, id)
	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Capture{}, ErrCaptureNotFound
	}
	if err != nil {
		return Capture{}, fmt.Errorf("get capture %s: %w", id, err)
	}
	return c, nil
}

// ListCaptures returns captures newest first. An empty kind lists both
// kinds; limit <= 0 returns every row.
func (db *DB) ListCaptures(ctx context.Context, kind Kind, limit int) ([]Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures`
	var args []interface{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, capture_id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	captures := []Capture{}
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// DeleteCapture removes the row for id.
func (db *DB) DeleteCapture(ctx context.Context, id string) error {
	var n int64
	err := retryOnBusy(ctx, db.Clock, func() error {
		res, err := db.ExecContext(ctx, `DELETE FROM captures WHERE capture_id = ?`, id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete capture %s: %w", id, err)
	}
	if n == 0 {
		return ErrCaptureNotFound
	}
	return nil
}
