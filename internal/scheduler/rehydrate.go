package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gorkbot/gork/internal/domain"
)

// ReminderSource lists reminders that have neither fired nor been cancelled.
type ReminderSource interface {
	PendingReminders(ctx context.Context) ([]domain.Reminder, error)
}

// ReminderJobID is the job id used for a reminder row.
func ReminderJobID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Rehydrate schedules every pending reminder from src, including ones whose
// time already passed. build returns the callback for a reminder. Reminders
// that are already scheduled are skipped. It returns how many were added.
func Rehydrate(ctx context.Context, s *Scheduler, src ReminderSource, build func(domain.Reminder) Func) (int, error) {
	reminders, err := src.PendingReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending reminders: %w", err)
	}

	added := 0
	for _, r := range reminders {
		err := s.Schedule(ReminderJobID(r.ID), r.RemindAt, build(r))
		if errors.Is(err, ErrDuplicateJob) {
			continue
		}
		if err != nil {
			return added, err
		}
		added++
	}
	s.log.Info().Int("count", added).Msg("reminders rehydrated")
	return added, nil
}
