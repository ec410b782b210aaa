package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tutorlaunch/api/internal/model"
)

func (s *Store) CreateSlot(ctx context.Context, start, end time.Time) (model.Slot, error) {
	if !end.After(start) {
		return model.Slot{}, model.ErrInvalidRange
	}
	slot := model.Slot{
		ID:        uuid.NewString(),
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO slots (id, start_time, end_time, is_booked)
		VALUES ($1, $2, $3, false)
		RETURNING created_at
	`, slot.ID, slot.StartTime, slot.EndTime).Scan(&slot.CreatedAt)
	if err != nil {
		return model.Slot{}, err
	}
	return slot, nil
}

func (s *Store) GetSlot(ctx context.Context, id string) (model.Slot, error) {
	var slot model.Slot
	err := s.pool.QueryRow(ctx, `
		SELECT id, start_time, end_time, is_booked, created_at
		FROM slots
		WHERE id = $1
	`, id).Scan(&slot.ID, &slot.StartTime, &slot.EndTime, &slot.IsBooked, &slot.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Slot{}, model.ErrNotFound
		}
		return model.Slot{}, err
	}
	return slot, nil
}

func (s *Store) ListOpenSlots(ctx context.Context, from time.Time) ([]model.Slot, error) {
	return s.listSlots(ctx, from, true)
}

func (s *Store) ListSlotsFrom(ctx context.Context, from time.Time) ([]model.Slot, error) {
	return s.listSlots(ctx, from, false)
}

func (s *Store) listSlots(ctx context.Context, from time.Time, openOnly bool) ([]model.Slot, error) {
	query := `
		SELECT id, start_time, end_time, is_booked, created_at
		FROM slots
		WHERE start_time >= $1
		ORDER BY start_time ASC
	`
	if openOnly {
		query = `
		SELECT id, start_time, end_time, is_booked, created_at
		FROM slots
		WHERE start_time >= $1 AND NOT is_booked
		ORDER BY start_time ASC
	`
	}
	rows, err := s.pool.Query(ctx, query, from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		var slot model.Slot
		if err := rows.Scan(&slot.ID, &slot.StartTime, &slot.EndTime, &slot.IsBooked, &slot.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return slots, nil
}

// MarkBooked is the check-and-set that serializes concurrent confirmations:
// only the first caller flips is_booked, everyone else gets ErrSlotUnavailable.
func (s *Store) MarkBooked(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE slots
		SET is_booked = true
		WHERE id = $1 AND NOT is_booked
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSlotUnavailable
	}
	return nil
}
