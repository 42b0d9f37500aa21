package ids

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Generator produces identifiers for users and registry records.
type Generator interface {
	UserID() string
	RecordID(prefix string) string
}

// Random generates userIds from UUIDv4 and record ids from KSUIDs.
type Random struct{}

// UserID returns "SS" followed by 16 uppercase hex digits. Scanned ids are
// matched case-insensitively, so the alphabet stays single-case.
func (Random) UserID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "SS" + strings.ToUpper(hex[:16])
}

// RecordID returns prefix followed by a time-sortable KSUID.
func (Random) RecordID(prefix string) string {
	return prefix + ksuid.New().String()
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// SystemClock is the wall clock in the local zone.
func SystemClock() time.Time { return time.Now() }
