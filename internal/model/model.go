package model

import "time"

// Role is the account role chosen at signup.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSecurity Role = "security"
	RoleStudent  Role = "student"
)

// User represents a registered account. Users are keyed by email.
type User struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"` // bcrypt hash
	Role      Role      `json:"role"`
	IDNumber  string    `json:"idNumber"`
	CreatedAt time.Time `json:"createdAt"`
}

// AttendanceRecord is the first-entry/first-exit summary for one user on one day.
type AttendanceRecord struct {
	Date  string  `json:"date"`
	Entry string  `json:"entry"`
	Exit  *string `json:"exit"`
}

// ScanType distinguishes entry and exit scans.
type ScanType string

const (
	ScanEntry ScanType = "entry"
	ScanExit  ScanType = "exit"
)

// LogEntry is one immutable scan event in the audit trail.
type LogEntry struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Type      ScanType  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
}

const VisitorActive = "active"

// Visitor is a registered campus visitor.
type Visitor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Purpose   string    `json:"purpose"`
	Phone     string    `json:"phone"`
	Meeting   string    `json:"meeting"`
	IDType    string    `json:"idType"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Date      string    `json:"date"`
}

const (
	IncidentOpen     = "open"
	IncidentCritical = "critical"

	SOSType     = "SOS Emergency"
	SOSLocation = "Location sharing enabled"
)

// Incident is a reported safety event. SOS alerts are incidents with
// type SOSType and status IncidentCritical.
type Incident struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	ReportedBy  string    `json:"reportedBy"`
	UserID      string    `json:"userId"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
}

// IsSOS reports whether the incident was raised by the SOS button.
func (i Incident) IsSOS() bool {
	return i.Type == SOSType && i.Status == IncidentCritical
}

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is an entry in the notification feed.
type Notification struct {
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
}

// Date layouts used for persisted calendar values.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}
