// services/history_service.go
package services

import (
	"context"
	"iter"
	"time"

	"recycle-rewards-system/models"
	"recycle-rewards-system/store"

	"go.uber.org/zap"
)

// HistoryService appends and reads the ledger audit trail.
type HistoryService struct {
	Store   store.Store
	Log     *zap.SugaredLogger
	Metrics *Metrics
	Now     func() time.Time
}

func NewHistoryService(st store.Store, log *zap.SugaredLogger, m *Metrics) *HistoryService {
	return &HistoryService{
		Store:   st,
		Log:     loggerOrNop(log),
		Metrics: metricsOrDefault(m),
		Now:     time.Now,
	}
}

// Record appends an event. It never fails the caller: by the time it runs
// the balance change is already committed, so a write failure is only
// logged and counted.
func (s *HistoryService) Record(ctx context.Context, userID string, action models.LedgerAction, detail string) {
	ts := s.Now().UTC()
	ev := &models.LedgerEvent{
		UserID:     userID,
		Action:     action,
		Detail:     detail,
		OccurredAt: &ts,
	}
	if err := s.Store.AppendEvent(ctx, ev); err != nil {
		s.Metrics.HistoryWriteFailures.Inc()
		s.Log.Errorw("❌ Failed to record ledger event",
			"user_id", userID, "action", action, "detail", detail, "error", err)
	}
}

// HistoryFor yields the user's events newest first. The store is read when
// iteration starts, so every range over the sequence sees a fresh snapshot.
// A read failure is yielded once as the error value.
func (s *HistoryService) HistoryFor(ctx context.Context, userID string) iter.Seq2[models.LedgerEvent, error] {
	userID = NormalizeUserID(userID)
	return func(yield func(models.LedgerEvent, error) bool) {
		events, err := s.Store.EventsFor(ctx, userID)
		if err != nil {
			yield(models.LedgerEvent{}, err)
			return
		}
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Collect drains a history sequence into a slice.
func Collect(seq iter.Seq2[models.LedgerEvent, error]) ([]models.LedgerEvent, error) {
	out := []models.LedgerEvent{}
	for ev, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
