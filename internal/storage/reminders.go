package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tutorlaunch/api/internal/model"
)

// CreateReminder schedules at most one reminder per booking. Replayed webhook
// deliveries land on the unique booking_id constraint and return the existing
// row with created=false.
func (s *Store) CreateReminder(ctx context.Context, bookingID string, sendAt time.Time) (model.Reminder, bool, error) {
	rem := model.Reminder{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		SendAt:    sendAt.UTC(),
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO reminders (id, booking_id, send_at, sent)
		VALUES ($1, $2, $3, false)
		ON CONFLICT (booking_id) DO NOTHING
	`, rem.ID, rem.BookingID, rem.SendAt)
	if err != nil {
		return model.Reminder{}, false, err
	}
	if tag.RowsAffected() == 1 {
		return rem, true, nil
	}

	err = s.pool.QueryRow(ctx, `
		SELECT id, booking_id, send_at, sent, created_at
		FROM reminders
		WHERE booking_id = $1
	`, bookingID).Scan(&rem.ID, &rem.BookingID, &rem.SendAt, &rem.Sent, &rem.CreatedAt)
	if err != nil {
		return model.Reminder{}, false, err
	}
	return rem, false, nil
}

func (s *Store) ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, booking_id, send_at, sent, created_at
		FROM reminders
		WHERE NOT sent AND send_at <= $1
		ORDER BY send_at ASC
	`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rems []model.Reminder
	for rows.Next() {
		var rem model.Reminder
		if err := rows.Scan(&rem.ID, &rem.BookingID, &rem.SendAt, &rem.Sent, &rem.CreatedAt); err != nil {
			return nil, err
		}
		rems = append(rems, rem)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rems, nil
}

// MarkReminderSent only succeeds while sent is still false, so overlapping
// dispatch runs cannot both claim the same reminder.
func (s *Store) MarkReminderSent(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reminders
		SET sent = true
		WHERE id = $1 AND NOT sent
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CountUnsentReminders(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reminders WHERE NOT sent`).Scan(&n)
	return n, err
}
