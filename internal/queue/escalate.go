package queue

import (
	"context"

	"github.com/rs/zerolog"
)

// Escalate consumes q until ctx is done, writing one log line per alert.
// SOS alerts are logged at error level so they stand out on the desk.
func Escalate(ctx context.Context, q Queue, log zerolog.Logger) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		inc, err := msg.Incident()
		if err != nil {
			log.Error().Err(err).Str("type", msg.Type).Msg("undecodable alert dropped")
			continue
		}
		ev := log.Warn()
		if msg.Type == TypeSOS {
			ev = log.Error()
		}
		ev.Str("type", msg.Type).
			Str("incident_id", inc.ID).
			Str("incident_type", inc.Type).
			Str("location", inc.Location).
			Str("reported_by", inc.ReportedBy).
			Str("user_id", inc.UserID).
			Time("at", inc.Timestamp).
			Msg(inc.Description)
	}
	return nil
}
