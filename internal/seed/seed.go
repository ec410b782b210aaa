// Package seed keeps a minimum pool of future availability on the books so
// the public slot list never comes up empty. Seeding is idempotent: existing
// slots (booked or not) are treated as busy intervals and never duplicated.
package seed

import (
	"context"
	"log/slog"
	"time"

	"github.com/tutorlaunch/api/internal/storage"
)

type Config struct {
	MinOpenSlots int
	HorizonDays  int
	DayStartHour int // local business hours, inclusive
	DayEndHour   int // exclusive
	SlotLength   time.Duration
	Location     *time.Location
}

type Service struct {
	slots  storage.SlotStore
	logger *slog.Logger
	cfg    Config
}

func New(slots storage.SlotStore, logger *slog.Logger, cfg Config) *Service {
	if cfg.MinOpenSlots <= 0 {
		cfg.MinOpenSlots = 10
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 14
	}
	if cfg.DayStartHour <= 0 {
		cfg.DayStartHour = 9
	}
	if cfg.DayEndHour <= cfg.DayStartHour {
		cfg.DayEndHour = 17
	}
	if cfg.SlotLength <= 0 {
		cfg.SlotLength = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{slots: slots, logger: logger, cfg: cfg}
}

// EnsureMinimum tops the pool up to MinOpenSlots open future slots, walking
// weekday business hours over the horizon and skipping any window that
// overlaps an existing slot.
func (s *Service) EnsureMinimum(ctx context.Context, now time.Time) error {
	open, err := s.slots.ListOpenSlots(ctx, now)
	if err != nil {
		return err
	}
	missing := s.cfg.MinOpenSlots - len(open)
	if missing <= 0 {
		return nil
	}

	existing, err := s.slots.ListSlotsFrom(ctx, now)
	if err != nil {
		return err
	}
	busy := make([]interval, 0, len(existing))
	for _, slot := range existing {
		busy = append(busy, interval{start: slot.StartTime, end: slot.EndTime})
	}

	for _, start := range s.candidates(now, busy, missing) {
		if _, err := s.slots.CreateSlot(ctx, start, start.Add(s.cfg.SlotLength)); err != nil {
			return err
		}
		s.logger.Debug("seeded slot", "start", start.Format(time.RFC3339))
	}
	return nil
}

type interval struct {
	start time.Time
	end   time.Time
}

func (s *Service) candidates(now time.Time, busy []interval, want int) []time.Time {
	local := now.In(s.cfg.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)

	var out []time.Time
	for d := 0; d <= s.cfg.HorizonDays && len(out) < want; d++ {
		cur := day.AddDate(0, 0, d)
		if wd := cur.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for h := s.cfg.DayStartHour; h < s.cfg.DayEndHour && len(out) < want; h++ {
			// Built from wall-clock components so business hours stay 9-17
			// local across a DST transition.
			start := time.Date(cur.Year(), cur.Month(), cur.Day(), h, 0, 0, 0, s.cfg.Location)
			end := start.Add(s.cfg.SlotLength)
			if !start.After(now) {
				continue
			}
			if overlapsAny(start, end, busy) {
				continue
			}
			out = append(out, start)
			busy = append(busy, interval{start: start, end: end})
		}
	}
	return out
}

func overlapsAny(start, end time.Time, busy []interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.start,b.end) iff start < b.end && b.start < end.
		if start.Before(b.end) && b.start.Before(end) {
			return true
		}
	}
	return false
}
