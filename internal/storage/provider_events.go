package storage

import "context"

// RecordProviderEvent returns false when the payment processor already
// delivered this event ID. First delivery wins the insert.
func (s *Store) RecordProviderEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) ForgetProviderEvent(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM provider_events WHERE event_id = $1`, eventID)
	return err
}
