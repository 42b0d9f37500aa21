// Package app owns a workspace's state and serializes every operation on it.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"safesphere/internal/access"
	"safesphere/internal/apperr"
	"safesphere/internal/attendance"
	"safesphere/internal/auth"
	"safesphere/internal/ids"
	"safesphere/internal/model"
	"safesphere/internal/notify"
	"safesphere/internal/queue"
	"safesphere/internal/registry"
	"safesphere/internal/report"
	"safesphere/internal/store"
)

// Options overrides the controller's clock, identifier source and bcrypt cost.
type Options struct {
	Clock    ids.Clock
	IDs      ids.Generator
	HashCost int
}

// Controller is the single mutator of one workspace. All methods are safe
// for concurrent use; they run one at a time.
type Controller struct {
	mu sync.Mutex

	st         *store.Store
	notify     *notify.Service
	auth       *auth.Service
	attendance *attendance.Service
	registry   *registry.Service
	report     *report.Service
	log        zerolog.Logger
}

// New wires the services over st. alerts may be nil.
func New(st *store.Store, alerts queue.Queue, log zerolog.Logger, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = ids.SystemClock
	}
	if opts.IDs == nil {
		opts.IDs = ids.Random{}
	}
	n := notify.NewService(st, opts.Clock)
	a := auth.NewService(st, n, opts.IDs, opts.Clock, log)
	if opts.HashCost > 0 {
		a.HashCost = opts.HashCost
	}
	return &Controller{
		st:         st,
		notify:     n,
		auth:       a,
		attendance: attendance.NewService(st, n, opts.Clock, log),
		registry:   registry.NewService(st, n, a.Current, opts.IDs, opts.Clock, alerts, log),
		report:     report.NewService(st, opts.Clock),
		log:        log,
	}
}

// Start loads persisted state and restores a remembered session. A storage
// error is returned for display but the controller stays usable with empty
// collections in place of unreadable ones.
func (c *Controller) Start(ctx context.Context) (*model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loadErr := c.st.Load(ctx)
	if loadErr != nil {
		c.log.Warn().Err(loadErr).Msg("persisted state partially reset")
	}
	user, err := c.auth.AutoLogin(ctx)
	if err != nil {
		return nil, errors.Join(loadErr, err)
	}
	return user, loadErr
}

func (c *Controller) Signup(ctx context.Context, in auth.SignupInput) (model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.Signup(ctx, in)
}

func (c *Controller) Login(ctx context.Context, emailOrID, password string) (model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.Login(ctx, emailOrID, password)
}

func (c *Controller) Logout(ctx context.Context, confirm auth.Confirm) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.Logout(ctx, confirm)
}

// Current returns the session user, or nil.
func (c *Controller) Current() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.Current()
}

// Areas returns the functional areas visible to the session user.
func (c *Controller) Areas() []access.Area {
	u := c.Current()
	if u == nil {
		return nil
	}
	return access.Areas(u.Role)
}

func (c *Controller) RecordEntry(ctx context.Context, scannedID string) (model.LogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attendance.RecordEntry(ctx, scannedID)
}

func (c *Controller) RecordExit(ctx context.Context, scannedID string) (model.LogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attendance.RecordExit(ctx, scannedID)
}

// AttendanceSummary computes the attendance totals of userID.
func (c *Controller) AttendanceSummary(userID string) attendance.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attendance.Summary(userID)
}

// MyAttendance returns the session user's summary and records, newest first.
func (c *Controller) MyAttendance() (attendance.Summary, []model.AttendanceRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.auth.Current()
	if u == nil {
		return attendance.Summary{}, nil, apperr.Auth("Please log in first.")
	}
	return c.attendance.Summary(u.UserID), c.attendance.Records(u.UserID), nil
}

// Logs returns scan logs, optionally limited to one calendar date.
func (c *Controller) Logs(date *time.Time) []model.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attendance.FilterLogsByDate(date)
}

func (c *Controller) RegisterVisitor(ctx context.Context, in registry.VisitorInput) (model.Visitor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.RegisterVisitor(ctx, in)
}

func (c *Controller) TodaysVisitors() []model.Visitor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.TodaysVisitors()
}

func (c *Controller) SubmitIncident(ctx context.Context, in registry.IncidentInput) (model.Incident, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.SubmitIncident(ctx, in)
}

func (c *Controller) RecentIncidents(limit int) []model.Incident {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.RecentIncidents(limit)
}

// TriggerSOS raises an SOS alert. confirm runs while the controller is
// locked, so it must not call back into the controller.
func (c *Controller) TriggerSOS(ctx context.Context, confirm auth.Confirm) (*model.Incident, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.TriggerSOS(ctx, confirm)
}

func (c *Controller) AddNotification(ctx context.Context, message string, typ model.NotificationType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify.Add(ctx, message, typ)
}

func (c *Controller) Notifications() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify.All()
}

func (c *Controller) DailyCounts() report.Daily {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report.DailyCounts()
}

// SummaryReport returns all-time totals generated by the session user.
func (c *Controller) SummaryReport() (report.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.auth.Current()
	if u == nil {
		return report.Summary{}, apperr.Auth("Please log in first.")
	}
	return c.report.Summary(u.Name), nil
}
