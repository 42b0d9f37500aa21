package notify

import (
	"context"

	"safesphere/internal/ids"
	"safesphere/internal/model"
	"safesphere/internal/store"
)

// Service appends to and reads the notification feed.
type Service struct {
	st    *store.Store
	clock ids.Clock
}

func NewService(st *store.Store, clock ids.Clock) *Service {
	if clock == nil {
		clock = ids.SystemClock
	}
	return &Service{st: st, clock: clock}
}

// Add appends a notification and persists immediately.
func (s *Service) Add(ctx context.Context, message string, typ model.NotificationType) error {
	d := s.st.Data()
	d.Notifications = append(d.Notifications, model.Notification{
		Message:   message,
		Type:      typ,
		Timestamp: s.clock().UTC(),
	})
	return s.st.Save(ctx)
}

// All returns every notification, newest first.
func (s *Service) All() []model.Notification {
	src := s.st.Data().Notifications
	out := make([]model.Notification, len(src))
	for i, n := range src {
		out[len(src)-1-i] = n
	}
	return out
}
