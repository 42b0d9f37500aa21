package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"safesphere/internal/apperr"
	"safesphere/internal/metrics"
	"safesphere/internal/model"
)

// Persisted keys, one blob per collection plus the remembered session.
const (
	UsersKey         = "safesphere_users"
	CurrentUserKey   = "safesphere_current_user"
	LogsKey          = "safesphere_logs"
	VisitorsKey      = "safesphere_visitors"
	AttendanceKey    = "safesphere_attendance"
	IncidentsKey     = "safesphere_incidents"
	NotificationsKey = "safesphere_notifications"
)

// Data is the full in-memory state of one workspace.
type Data struct {
	Users         map[string]model.User               // keyed by email
	Attendance    map[string][]model.AttendanceRecord // keyed by userId
	Logs          []model.LogEntry
	Visitors      []model.Visitor
	Incidents     []model.Incident
	Notifications []model.Notification
}

// NewData returns empty collections.
func NewData() *Data {
	return &Data{
		Users:         map[string]model.User{},
		Attendance:    map[string][]model.AttendanceRecord{},
		Logs:          []model.LogEntry{},
		Visitors:      []model.Visitor{},
		Incidents:     []model.Incident{},
		Notifications: []model.Notification{},
	}
}

// Store loads and saves Data through a KV backend. It is not safe for
// concurrent use; the controller serializes access.
type Store struct {
	kv   KV
	log  zerolog.Logger
	data *Data
}

// New creates a store with empty data. Call Load to read persisted state.
func New(kv KV, log zerolog.Logger) *Store {
	return &Store{kv: kv, log: log.With().Str("component", "store").Logger(), data: NewData()}
}

// Data returns the live collections.
func (s *Store) Data() *Data { return s.data }

// Load reads all six collections. Missing keys load as empty. A key whose
// blob cannot be decoded also loads as empty, and the failure is logged and
// returned as a StorageError; the remaining keys still load.
func (s *Store) Load(ctx context.Context) error {
	d := NewData()
	var errs []error
	load := func(key string, dst any) bool {
		raw, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			errs = append(errs, s.corrupt(key, "read", err))
			return false
		}
		if !ok || raw == "" {
			return false
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			errs = append(errs, s.corrupt(key, "decode", err))
			return false
		}
		return true
	}
	decodeInto(load, UsersKey, &d.Users)
	decodeInto(load, LogsKey, &d.Logs)
	decodeInto(load, VisitorsKey, &d.Visitors)
	decodeInto(load, AttendanceKey, &d.Attendance)
	decodeInto(load, IncidentsKey, &d.Incidents)
	decodeInto(load, NotificationsKey, &d.Notifications)
	normalize(d)
	s.data = d
	return errors.Join(errs...)
}

// decodeInto assigns dst only after the whole blob decoded. Unmarshal keeps
// going past type mismatches, so a failed decode may leave a partial value.
func decodeInto[T any](load func(string, any) bool, key string, dst *T) {
	var v T
	if load(key, &v) {
		*dst = v
	}
}

func (s *Store) corrupt(key, op string, err error) error {
	metrics.StorageErrors.WithLabelValues("load").Inc()
	s.log.Error().Err(err).Str("key", key).Str("op", op).Msg("collection reset to empty")
	return apperr.Storage(op+" "+key, err)
}

// normalize replaces collections that decoded to null.
func normalize(d *Data) {
	if d.Users == nil {
		d.Users = map[string]model.User{}
	}
	if d.Attendance == nil {
		d.Attendance = map[string][]model.AttendanceRecord{}
	}
	if d.Logs == nil {
		d.Logs = []model.LogEntry{}
	}
	if d.Visitors == nil {
		d.Visitors = []model.Visitor{}
	}
	if d.Incidents == nil {
		d.Incidents = []model.Incident{}
	}
	if d.Notifications == nil {
		d.Notifications = []model.Notification{}
	}
}

// Save writes every collection. There is no transaction across keys.
func (s *Store) Save(ctx context.Context) error {
	blobs := []struct {
		key string
		v   any
	}{
		{UsersKey, s.data.Users},
		{LogsKey, s.data.Logs},
		{VisitorsKey, s.data.Visitors},
		{AttendanceKey, s.data.Attendance},
		{IncidentsKey, s.data.Incidents},
		{NotificationsKey, s.data.Notifications},
	}
	for _, b := range blobs {
		raw, err := json.Marshal(b.v)
		if err != nil {
			return s.saveFailed(b.key, err)
		}
		if err := s.kv.Set(ctx, b.key, string(raw)); err != nil {
			return s.saveFailed(b.key, err)
		}
	}
	return nil
}

func (s *Store) saveFailed(key string, err error) error {
	metrics.StorageErrors.WithLabelValues("save").Inc()
	s.log.Error().Err(err).Str("key", key).Msg("save failed")
	return apperr.Storage("save "+key, err)
}

// RememberSession stores the email used for auto-login.
func (s *Store) RememberSession(ctx context.Context, email string) error {
	if err := s.kv.Set(ctx, CurrentUserKey, email); err != nil {
		return apperr.Storage("remember session", err)
	}
	return nil
}

// RememberedSession returns the remembered email, or "" if none.
func (s *Store) RememberedSession(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, CurrentUserKey)
	if err != nil {
		return "", apperr.Storage("read session", err)
	}
	return v, nil
}

// ForgetSession removes the remembered email.
func (s *Store) ForgetSession(ctx context.Context) error {
	if err := s.kv.Delete(ctx, CurrentUserKey); err != nil {
		return apperr.Storage("forget session", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error { return s.kv.Close() }
