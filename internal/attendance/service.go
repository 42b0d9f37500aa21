package attendance

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"safesphere/internal/apperr"
	"safesphere/internal/auth"
	"safesphere/internal/ids"
	"safesphere/internal/metrics"
	"safesphere/internal/model"
	"safesphere/internal/notify"
	"safesphere/internal/store"
)

// Summary is the derived attendance percentage for one user.
type Summary struct {
	TotalDays   int `json:"totalDays"`
	PresentDays int `json:"presentDays"`
	Percentage  int `json:"percentage"`
}

// Service records entry/exit scans and maintains daily attendance.
type Service struct {
	st     *store.Store
	notify *notify.Service
	clock  ids.Clock
	log    zerolog.Logger
}

// NewService creates a service backed by the store.
func NewService(st *store.Store, n *notify.Service, clock ids.Clock, log zerolog.Logger) *Service {
	if clock == nil {
		clock = ids.SystemClock
	}
	return &Service{st: st, notify: n, clock: clock, log: log.With().Str("component", "attendance").Logger()}
}

// RecordEntry logs an entry scan. Only the first entry of the day creates
// the attendance record; later entries are logged but change nothing else.
func (s *Service) RecordEntry(ctx context.Context, scannedID string) (model.LogEntry, error) {
	return s.record(ctx, scannedID, model.ScanEntry)
}

// RecordExit logs an exit scan. The exit time is set on today's record only
// if an entry exists and no exit has been set yet.
func (s *Service) RecordExit(ctx context.Context, scannedID string) (model.LogEntry, error) {
	return s.record(ctx, scannedID, model.ScanExit)
}

func (s *Service) record(ctx context.Context, scannedID string, typ model.ScanType) (model.LogEntry, error) {
	userID := strings.ToUpper(strings.TrimSpace(scannedID))
	if userID == "" {
		return model.LogEntry{}, apperr.Validation("Please enter a User ID")
	}
	d := s.st.Data()
	user, err := auth.FindByUserID(d, userID)
	if err != nil {
		return model.LogEntry{}, err
	}

	now := s.clock()
	today := model.DateOf(now)
	entry := model.LogEntry{
		UserID:    user.UserID,
		UserName:  user.Name,
		Type:      typ,
		Timestamp: now.UTC(),
		Date:      today,
	}
	d.Logs = append(d.Logs, entry)

	records := d.Attendance[user.UserID]
	idx := -1
	for i := range records {
		if records[i].Date == today {
			idx = i
			break
		}
	}
	at := now.Format(model.TimeLayout)
	switch typ {
	case model.ScanEntry:
		if idx < 0 {
			records = append(records, model.AttendanceRecord{Date: today, Entry: at})
		}
	case model.ScanExit:
		if idx >= 0 && records[idx].Entry != "" && records[idx].Exit == nil {
			records[idx].Exit = &at
		}
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	d.Attendance[user.UserID] = records

	if err := s.st.Save(ctx); err != nil {
		return entry, err
	}
	metrics.Scans.WithLabelValues(string(typ)).Inc()
	s.log.Info().Str("user_id", user.UserID).Str("type", string(typ)).Msg("scan recorded")

	msg := "Entry logged: "
	if typ == model.ScanExit {
		msg = "Exit logged: "
	}
	if err := s.notify.Add(ctx, msg+user.Name, model.NotifySuccess); err != nil {
		return entry, err
	}
	return entry, nil
}

// Summary computes attendance totals for userID.
func (s *Service) Summary(userID string) Summary {
	records := s.st.Data().Attendance[userID]
	sum := Summary{TotalDays: len(records)}
	for _, r := range records {
		if r.Entry != "" {
			sum.PresentDays++
		}
	}
	if sum.TotalDays > 0 {
		sum.Percentage = int(math.Round(float64(sum.PresentDays) / float64(sum.TotalDays) * 100))
	}
	return sum
}

// Records returns the attendance history of userID, most recent first.
func (s *Service) Records(userID string) []model.AttendanceRecord {
	src := s.st.Data().Attendance[userID]
	out := make([]model.AttendanceRecord, len(src))
	for i, r := range src {
		if r.Exit != nil {
			exit := *r.Exit
			r.Exit = &exit
		}
		out[len(src)-1-i] = r
	}
	return out
}

// FilterLogsByDate returns logs whose timestamp falls on date's calendar day
// (in the service's local zone), or all logs when date is nil. The result is
// in reverse append order.
func (s *Service) FilterLogsByDate(date *time.Time) []model.LogEntry {
	logs := s.st.Data().Logs
	var want string
	if date != nil {
		want = model.DateOf(*date)
	}
	loc := s.clock().Location()
	out := make([]model.LogEntry, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		if date != nil && model.DateOf(logs[i].Timestamp.In(loc)) != want {
			continue
		}
		out = append(out, logs[i])
	}
	return out
}
