package db

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/viewfinder/internal/geometry"
)

// FocusEvent records one tap-to-focus: the tap, the viewfinder it landed
// on and the point of interest it produced.
type FocusEvent struct {
	EventID    int64                    `json:"event_id"`
	Tap        geometry.ViewPoint       `json:"tap"`
	Viewport   geometry.Viewport        `json:"viewport"`
	POI        geometry.NormalizedPoint `json:"poi"`
	Degenerate bool                     `json:"degenerate"`
	CreatedAt  time.Time                `json:"created_at"`
}

// RecordFocus appends e to the focus log and fills in its ID.
func (db *DB) RecordFocus(ctx context.Context, e *FocusEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = db.Clock.Now()
	}
	err := retryOnBusy(ctx, db.Clock, func() error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO focus_events (
				view_x, view_y, frame_width, frame_height, fill_mode,
				poi_x, poi_y, degenerate, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Tap.X, e.Tap.Y, e.Viewport.FrameWidth, e.Viewport.FrameHeight, e.Viewport.FillMode.String(),
			e.POI.X, e.POI.Y, e.Degenerate, e.CreatedAt.UnixNano(),
		)
		if err != nil {
			return err
		}
		e.EventID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return fmt.Errorf("record focus: %w", err)
	}
	return nil
}

// RecentFocusEvents returns up to limit events, newest first.
func (db *DB) RecentFocusEvents(ctx context.Context, limit int) ([]FocusEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT event_id, view_x, view_y, frame_width, frame_height, fill_mode,
			poi_x, poi_y, degenerate, created_at
		FROM focus_events
		ORDER BY event_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list focus events: %w", err)
	}
	defer rows.Close()

	events := []FocusEvent{}
	for rows.Next() {
		var (
			e         FocusEvent
			fillMode  string
			createdAt int64
		)
		if err := rows.Scan(&e.EventID, &e.Tap.X, &e.Tap.Y, &e.Viewport.FrameWidth, &e.Viewport.FrameHeight,
			&fillMode, &e.POI.X, &e.POI.Y, &e.Degenerate, &createdAt); err != nil {
			return nil, fmt.Errorf("scan focus event: %w", err)
		}
		if e.Viewport.FillMode, err = geometry.ParseFillMode(fillMode); err != nil {
			return nil, fmt.Errorf("scan focus event %d: %w", e.EventID, err)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
