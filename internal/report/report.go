package report

import (
	"time"

	"safesphere/internal/ids"
	"safesphere/internal/model"
	"safesphere/internal/store"
)

// Daily holds today's scan and visitor counts.
type Daily struct {
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
	// CurrentlyInside is Entries minus Exits. It is not clamped and goes
	// negative when more exits than entries were scanned today.
	CurrentlyInside int `json:"currentlyInside"`
	VisitorsToday   int `json:"visitorsToday"`
}

// Summary holds all-time totals.
type Summary struct {
	TotalUsers      int       `json:"totalUsers"`
	TotalLogEntries int       `json:"totalLogEntries"`
	TotalVisitors   int       `json:"totalVisitors"`
	TotalIncidents  int       `json:"totalIncidents"`
	GeneratedAt     time.Time `json:"generatedAt"`
	GeneratedBy     string    `json:"generatedBy"`
}

// Service computes reports on demand from the store.
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

// DailyCounts aggregates today's logs and visitors.
func (s *Service) DailyCounts() Daily {
	today := model.DateOf(s.clock())
	d := s.st.Data()
	var out Daily
	for _, l := range d.Logs {
		if l.Date != today {
			continue
		}
		switch l.Type {
		case model.ScanEntry:
			out.Entries++
		case model.ScanExit:
			out.Exits++
		}
	}
	out.CurrentlyInside = out.Entries - out.Exits
	for _, v := range d.Visitors {
		if v.Date == today {
			out.VisitorsToday++
		}
	}
	return out
}

// Summary returns all-time totals stamped with the generating user's name.
func (s *Service) Summary(generatedBy string) Summary {
	d := s.st.Data()
	return Summary{
		TotalUsers:      len(d.Users),
		TotalLogEntries: len(d.Logs),
		TotalVisitors:   len(d.Visitors),
		TotalIncidents:  len(d.Incidents),
		GeneratedAt:     s.clock().UTC(),
		GeneratedBy:     generatedBy,
	}
}
