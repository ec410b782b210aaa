package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/tutorlaunch/api/internal/model"
)

// CreateBooking inserts a pending booking iff the slot exists and is still
// open. The slot itself is not reserved; payment receipt does that.
func (s *Store) CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	b.ID = uuid.NewString()
	b.Status = model.StatusPending
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, slot_id, student_name, student_email, goal, amount_cents, status)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM slots WHERE id = $2 AND NOT is_booked)
		RETURNING created_at
	`, b.ID, b.SlotID, b.StudentName, b.StudentEmail, b.Goal, b.AmountCents, b.Status).Scan(&b.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Booking{}, model.ErrSlotUnavailable
		}
		return model.Booking{}, err
	}
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	var b model.Booking
	err := s.pool.QueryRow(ctx, `
		SELECT id, slot_id, student_name, student_email, goal, amount_cents, status,
			COALESCE(checkout_session_id, ''), COALESCE(payment_intent_id, ''), created_at
		FROM bookings
		WHERE id = $1
	`, id).Scan(&b.ID, &b.SlotID, &b.StudentName, &b.StudentEmail, &b.Goal, &b.AmountCents,
		&b.Status, &b.CheckoutSessionID, &b.PaymentIntentID, &b.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Booking{}, model.ErrNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

func (s *Store) AttachCheckoutSession(ctx context.Context, id, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET checkout_session_id = $2
		WHERE id = $1
	`, id, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Confirm moves a pending booking to confirmed. A replay carrying the same
// payment intent is a no-op; anything else on a terminal booking is an
// invalid transition.
func (s *Store) Confirm(ctx context.Context, id, paymentIntentID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET status = $2, payment_intent_id = $3
		WHERE id = $1 AND status = $4
	`, id, model.StatusConfirmed, paymentIntentID, model.StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == model.StatusConfirmed && b.PaymentIntentID == paymentIntentID {
		return nil
	}
	return model.ErrInvalidTransition
}

// Cancel moves a pending booking to cancelled. Cancelling an already
// cancelled booking is a no-op; a confirmed booking never regresses.
func (s *Store) Cancel(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE id = $1 AND status = $3
	`, id, model.StatusCancelled, model.StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == model.StatusCancelled {
		return nil
	}
	return model.ErrInvalidTransition
}

// FlagConflict marks a booking that paid but lost the slot race. Terminal;
// surfaced in the admin console for manual refund review.
func (s *Store) FlagConflict(ctx context.Context, id, paymentIntentID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET status = $2, payment_intent_id = $3
		WHERE id = $1 AND status = $4
	`, id, model.StatusConfirmedConflict, paymentIntentID, model.StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == model.StatusConfirmedConflict && b.PaymentIntentID == paymentIntentID {
		return nil
	}
	return model.ErrInvalidTransition
}

func (s *Store) ListBookings(ctx context.Context, limit int) ([]AdminBooking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.slot_id, b.student_name, b.student_email, b.goal, b.amount_cents, b.status,
			COALESCE(b.checkout_session_id, ''), COALESCE(b.payment_intent_id, ''), b.created_at,
			s.start_time, s.end_time
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		ORDER BY s.start_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminBooking
	for rows.Next() {
		var ab AdminBooking
		b := &ab.Booking
		if err := rows.Scan(&b.ID, &b.SlotID, &b.StudentName, &b.StudentEmail, &b.Goal, &b.AmountCents,
			&b.Status, &b.CheckoutSessionID, &b.PaymentIntentID, &b.CreatedAt,
			&ab.SlotStart, &ab.SlotEnd); err != nil {
			return nil, err
		}
		out = append(out, ab)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
