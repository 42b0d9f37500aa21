package registry

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"safesphere/internal/apperr"
	"safesphere/internal/auth"
	"safesphere/internal/ids"
	"safesphere/internal/metrics"
	"safesphere/internal/model"
	"safesphere/internal/notify"
	"safesphere/internal/queue"
	"safesphere/internal/store"
	"safesphere/internal/validate"
)

const (
	DefaultIncidentLimit = 10

	SOSPrompt = "EMERGENCY ALERT\n\nAre you sure you want to send an SOS alert?\n\nThis will notify campus security and emergency services immediately."
)

// VisitorInput is the visitor registration form. IDType is optional.
type VisitorInput struct {
	Name    string `json:"name" validate:"required"`
	Purpose string `json:"purpose" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Meeting string `json:"meeting" validate:"required"`
	IDType  string `json:"idType"`
}

// IncidentInput is the incident report form.
type IncidentInput struct {
	Type        string `json:"type" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// Service holds the visitor and incident registries.
type Service struct {
	st       *store.Store
	notify   *notify.Service
	session  func() *model.User
	ids      ids.Generator
	clock    ids.Clock
	alerts   queue.Queue
	validate *validator.Validate
	log      zerolog.Logger
}

// NewService wires the registries. alerts may be nil.
func NewService(st *store.Store, n *notify.Service, session func() *model.User, gen ids.Generator, clock ids.Clock, alerts queue.Queue, log zerolog.Logger) *Service {
	if gen == nil {
		gen = ids.Random{}
	}
	if clock == nil {
		clock = ids.SystemClock
	}
	return &Service{
		st:       st,
		notify:   n,
		session:  session,
		ids:      gen,
		clock:    clock,
		alerts:   alerts,
		validate: validate.New(),
		log:      log.With().Str("component", "registry").Logger(),
	}
}

// RegisterVisitor appends an active visitor.
func (s *Service) RegisterVisitor(ctx context.Context, in VisitorInput) (model.Visitor, error) {
	validate.Trim(&in.Name, &in.Purpose, &in.Phone, &in.Meeting, &in.IDType)
	if err := s.validate.Struct(in); err != nil {
		return model.Visitor{}, apperr.Validation("Please fill in all required fields")
	}
	now := s.clock()
	v := model.Visitor{
		ID:        s.ids.RecordID("V"),
		Name:      in.Name,
		Purpose:   in.Purpose,
		Phone:     in.Phone,
		Meeting:   in.Meeting,
		IDType:    in.IDType,
		Timestamp: now.UTC(),
		Status:    model.VisitorActive,
		Date:      model.DateOf(now),
	}
	d := s.st.Data()
	d.Visitors = append(d.Visitors, v)
	if err := s.st.Save(ctx); err != nil {
		return v, err
	}
	s.log.Info().Str("visitor_id", v.ID).Msg("visitor registered")
	return v, s.notify.Add(ctx, "Visitor registered: "+v.Name, model.NotifySuccess)
}

// TodaysVisitors returns visitors registered today, newest first.
func (s *Service) TodaysVisitors() []model.Visitor {
	today := model.DateOf(s.clock())
	src := s.st.Data().Visitors
	out := []model.Visitor{}
	for i := len(src) - 1; i >= 0; i-- {
		if src[i].Date == today {
			out = append(out, src[i])
		}
	}
	return out
}

// SubmitIncident appends an open incident attributed to the session user.
func (s *Service) SubmitIncident(ctx context.Context, in IncidentInput) (model.Incident, error) {
	validate.Trim(&in.Type, &in.Location, &in.Description)
	if err := s.validate.Struct(in); err != nil {
		return model.Incident{}, apperr.Validation("Please fill in all required fields")
	}
	user, err := s.requireSession()
	if err != nil {
		return model.Incident{}, err
	}
	inc := model.Incident{
		ID:          s.ids.RecordID("I"),
		Type:        in.Type,
		Location:    in.Location,
		Description: in.Description,
		ReportedBy:  user.Name,
		UserID:      user.UserID,
		Timestamp:   s.clock().UTC(),
		Status:      model.IncidentOpen,
	}
	if err := s.appendIncident(ctx, inc); err != nil {
		return inc, err
	}
	return inc, s.notify.Add(ctx, "Incident reported: "+inc.Type, model.NotifyWarning)
}

// RecentIncidents returns up to limit incidents, newest first. A
// non-positive limit means DefaultIncidentLimit.
func (s *Service) RecentIncidents(limit int) []model.Incident {
	if limit <= 0 {
		limit = DefaultIncidentLimit
	}
	src := s.st.Data().Incidents
	out := make([]model.Incident, 0, min(limit, len(src)))
	for i := len(src) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, src[i])
	}
	return out
}

// TriggerSOS raises a critical SOS incident if confirm agrees. It returns
// nil when the operator declined.
func (s *Service) TriggerSOS(ctx context.Context, confirm auth.Confirm) (*model.Incident, error) {
	user, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	if confirm == nil || !confirm(SOSPrompt) {
		return nil, nil
	}
	inc := model.Incident{
		ID:          s.ids.RecordID("SOS"),
		Type:        model.SOSType,
		Location:    model.SOSLocation,
		Description: "SOS button pressed by " + user.Name,
		ReportedBy:  user.Name,
		UserID:      user.UserID,
		Timestamp:   s.clock().UTC(),
		Status:      model.IncidentCritical,
	}
	if err := s.appendIncident(ctx, inc); err != nil {
		return &inc, err
	}
	s.log.Warn().Str("user_id", user.UserID).Str("incident_id", inc.ID).Msg("SOS alert raised")
	return &inc, s.notify.Add(ctx, "SOS ALERT SENT", model.NotifyError)
}

func (s *Service) requireSession() (*model.User, error) {
	var user *model.User
	if s.session != nil {
		user = s.session()
	}
	if user == nil {
		return nil, apperr.Auth("Please log in first.")
	}
	return user, nil
}

func (s *Service) appendIncident(ctx context.Context, inc model.Incident) error {
	d := s.st.Data()
	d.Incidents = append(d.Incidents, inc)
	if err := s.st.Save(ctx); err != nil {
		return err
	}
	metrics.Incidents.WithLabelValues(inc.Status).Inc()
	s.publish(ctx, inc)
	return nil
}

// publish forwards the incident to the alert queue. Failures are logged only;
// the incident is already persisted.
func (s *Service) publish(ctx context.Context, inc model.Incident) {
	if s.alerts == nil {
		return
	}
	msg, err := queue.IncidentMessage(inc)
	if err == nil {
		err = s.alerts.Publish(ctx, msg)
	}
	if err != nil {
		s.log.Error().Err(err).Str("incident_id", inc.ID).Msg("alert publish failed")
	}
}
