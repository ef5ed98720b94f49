package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultReadingsLimit = 50
	maxReadingsLimit     = 500
)

// createdAtLayout matches the strftime('%Y-%m-%dT%H:%M:%fZ') default on
// the created_at column, millisecond precision included.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// Reading is one stored sensor reading.
type Reading struct {
	// ID is the auto-incremented primary key.
	ID int64 `json:"id"`

	// DeviceID is the board identifier the reading came from.
	DeviceID string `json:"device_id"`

	// Component is the display name of the input component.
	Component string `json:"component"`

	// Type is the component's type tag.
	Type string `json:"type"`

	// Units is the component's units string, if the board reported one.
	Units string `json:"units,omitempty"`

	// Value is the reading as the original wire string.
	Value string `json:"value"`

	// CreatedAt is when the reading was recorded (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves readings in SQLite.
//
// All methods are safe for concurrent use; the SQLite pool serialises
// writers.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a readings repository over an open connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts one reading.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - r: The reading; ID and CreatedAt are assigned by the database
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (repo *Repository) Record(ctx context.Context, r Reading) error {
	if r.Component == "" {
		return fmt.Errorf("history: component is required")
	}

	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO readings (device_id, component, type, units, value) VALUES (?, ?, ?, ?, ?)",
		r.DeviceID, r.Component, r.Type, r.Units, r.Value,
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// GetReadings returns recent readings for a component, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - component: Component display name
//   - limit: Maximum entries (default 50, max 500)
//
// Returns:
//   - []Reading: Readings ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (repo *Repository) GetReadings(ctx context.Context, component string, limit int) ([]Reading, error) {
	if component == "" {
		return nil, fmt.Errorf("history: component is required")
	}
	if limit <= 0 {
		limit = defaultReadingsLimit
	}
	if limit > maxReadingsLimit {
		limit = maxReadingsLimit
	}

	rows, err := repo.db.QueryContext(ctx,
		`SELECT id, device_id, component, type, units, value, created_at
		 FROM readings
		 WHERE component = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		component, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	readings := make([]Reading, 0, limit)
	for rows.Next() {
		var r Reading
		var createdAt string
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.Component, &r.Type, &r.Units, &r.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		r.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// Prune deletes readings older than the given duration.
//
// Returns the number of rows deleted.
func (repo *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("history: olderThan must be positive")
	}

	// created_at is stored by strftime('%Y-%m-%dT%H:%M:%fZ'), which keeps
	// three fractional digits. The cutoff must use the same layout or the
	// lexical comparison cuts rows within the boundary second.
	cutoff := time.Now().UTC().Add(-olderThan).Format(createdAtLayout)
	result, err := repo.db.ExecContext(ctx,
		"DELETE FROM readings WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting readings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

// parseTimestamp parses a timestamp stored by SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("history: created_at is empty")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	fallback, fallbackErr := time.Parse("2006-01-02 15:04:05", value)
	if fallbackErr == nil {
		return fallback, nil
	}
	return time.Time{}, fmt.Errorf("history: parsing created_at: %w", err)
}
