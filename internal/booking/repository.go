package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("booking not found")

// Repository is the read surface the notification core needs from the
// booking store. The booking service owns all writes; this core only scans
// upcoming confirmed sessions and re-checks status before emitting.
type Repository interface {
	ListConfirmedInWindow(ctx context.Context, start, end time.Time) ([]*Booking, error)
	GetStatus(ctx context.Context, id string) (Status, error)
}

// SQLRepository implements Repository on top of PostgreSQL.
type SQLRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts a booking. Used by the test-event API and fixtures; the
// production writer is the booking service.
func (r *SQLRepository) Create(ctx context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	students, err := json.Marshal(b.Students)
	if err != nil {
		return fmt.Errorf("failed to encode students: %w", err)
	}

	query := `
		INSERT INTO bookings (id, teacher_id, teacher_name, teacher_email, students, schedule, venue, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		b.ID, b.TeacherID, b.TeacherName, b.TeacherEmail, students, b.Schedule, b.Venue, b.Status, b.CreatedAt,
	)
	return err
}

// ListConfirmedInWindow returns confirmed bookings whose session start falls
// in [start, end). Cancelled and pending bookings never appear here, which
// is what keeps suppressed reminders suppressed.
func (r *SQLRepository) ListConfirmedInWindow(ctx context.Context, start, end time.Time) ([]*Booking, error) {
	query := `
		SELECT id, teacher_id, teacher_name, teacher_email, students, schedule, venue, status, created_at
		FROM bookings
		WHERE status = $1 AND schedule >= $2 AND schedule < $3
		ORDER BY schedule ASC
	`
	rows, err := r.db.QueryContext(ctx, query, StatusConfirmed, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		var b Booking
		var students []byte
		if err := rows.Scan(&b.ID, &b.TeacherID, &b.TeacherName, &b.TeacherEmail, &students, &b.Schedule, &b.Venue, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(students, &b.Students); err != nil {
			return nil, fmt.Errorf("failed to decode students for booking %s: %w", b.ID, err)
		}
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}

// GetStatus returns the current status of a booking.
func (r *SQLRepository) GetStatus(ctx context.Context, id string) (Status, error) {
	var status Status
	err := r.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

// UpdateStatus transitions a booking. Exposed for the test API and tests.
func (r *SQLRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
