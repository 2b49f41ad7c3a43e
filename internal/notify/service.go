package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/storage"
)

// MetricsInterface defines the metrics methods the notification service
// reports to.
type MetricsInterface interface {
	NotificationsCreatedInc()
	NotificationsSuppressedInc()
	RecordWriteFailuresInc()
}

// Service looks up preferences, applies the policy, and persists the
// resulting notifications. Writes are fire-and-forget relative to the
// prediction response: failures are logged and counted, never propagated.
type Service struct {
	store   storage.RecordStore
	metrics MetricsInterface
}

// NewService wires the policy engine to a record store.
func NewService(store storage.RecordStore, metrics MetricsInterface) *Service {
	return &Service{store: store, metrics: metrics}
}

// LoadPreference fetches a user's stored preference document. A missing
// document or a read failure yields nil, which Decide treats as
// default-permissive.
func (s *Service) LoadPreference(ctx context.Context, userID string) *Preference {
	if userID == "" || s.store == nil {
		return nil
	}
	var prefs Preference
	found, err := s.store.Get(ctx, storage.CollectionPreferences, userID, &prefs)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("preference lookup failed, using defaults")
		return nil
	}
	if !found {
		return nil
	}
	return &prefs
}

// CreateAlert runs the policy for a single prediction and persists the
// notification when it passes. Returns the notification id and whether one
// was created.
func (s *Service) CreateAlert(ctx context.Context, alert Alert) (string, bool) {
	notification, ok := Decide(alert, s.LoadPreference(ctx, alert.UserID))
	if !ok {
		if s.metrics != nil {
			s.metrics.NotificationsSuppressedInc()
		}
		return "", false
	}
	return s.persist(ctx, notification)
}

// CreateBatchSummary persists the aggregate notification for a grid
// analysis, subject to the same best-effort write semantics.
func (s *Service) CreateBatchSummary(ctx context.Context, userID string, counts ClassCounts, centerLat, centerLon float64) (string, bool) {
	notification, ok := BatchSummary(userID, counts, centerLat, centerLon)
	if !ok {
		return "", false
	}
	return s.persist(ctx, notification)
}

func (s *Service) persist(ctx context.Context, n Notification) (string, bool) {
	if s.store == nil {
		return "", false
	}
	if err := s.store.Put(ctx, storage.CollectionNotifications, n.NotificationID, n); err != nil {
		log.Warn().Err(err).Str("notification_id", n.NotificationID).Msg("notification write failed")
		if s.metrics != nil {
			s.metrics.RecordWriteFailuresInc()
		}
		return "", false
	}
	if s.metrics != nil {
		s.metrics.NotificationsCreatedInc()
	}
	log.Debug().
		Str("notification_id", n.NotificationID).
		Str("severity", n.Severity).
		Str("user_id", n.UserID).
		Msg("notification created")
	return n.NotificationID, true
}
