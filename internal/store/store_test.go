package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safesphere/internal/apperr"
	"safesphere/internal/model"
)

func TestLoad_EmptyBackendYieldsEmptyCollections(t *testing.T) {
	s := New(NewMemory(), zerolog.Nop())
	require.NoError(t, s.Load(context.Background()))

	d := s.Data()
	assert.Empty(t, d.Users)
	assert.Empty(t, d.Attendance)
	assert.NotNil(t, d.Logs)
	assert.NotNil(t, d.Visitors)
	assert.NotNil(t, d.Incidents)
	assert.NotNil(t, d.Notifications)
}

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	s := New(kv, zerolog.Nop())
	require.NoError(t, s.Load(ctx))

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d := s.Data()
	d.Users["a@x.com"] = model.User{UserID: "SS1", Name: "Alex", Email: "a@x.com", Role: model.RoleStudent, CreatedAt: now}
	d.Attendance["SS1"] = []model.AttendanceRecord{{Date: "2026-03-02", Entry: "09:00:00"}}
	d.Logs = append(d.Logs, model.LogEntry{UserID: "SS1", UserName: "Alex", Type: model.ScanEntry, Timestamp: now, Date: "2026-03-02"})
	require.NoError(t, s.Save(ctx))

	again := New(kv, zerolog.Nop())
	require.NoError(t, again.Load(ctx))
	assert.Equal(t, "Alex", again.Data().Users["a@x.com"].Name)
	require.Len(t, again.Data().Attendance["SS1"], 1)
	assert.Nil(t, again.Data().Attendance["SS1"][0].Exit)
	require.Len(t, again.Data().Logs, 1)
	assert.True(t, now.Equal(again.Data().Logs[0].Timestamp))
}

func TestLoad_CorruptKeyIsReportedAndOthersStillLoad(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Set(ctx, UsersKey, `{"a@x.com":{"userId":"SS1","name":"Alex"}}`))
	require.NoError(t, kv.Set(ctx, LogsKey, `[{not json`))

	s := New(kv, zerolog.Nop())
	err := s.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrStorage))
	assert.Contains(t, err.Error(), LogsKey)

	assert.Len(t, s.Data().Users, 1)
	assert.Empty(t, s.Data().Logs)
}

func TestLoad_TypeMismatchLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Set(ctx, UsersKey, `{"a@x.com":{"userId":"SS1","name":"Alex"},"b@x.com":7}`))
	require.NoError(t, kv.Set(ctx, LogsKey, `[{"userId":"SS1","type":"entry","date":"2026-03-02"},5]`))
	require.NoError(t, kv.Set(ctx, VisitorsKey, `[{"id":"V1","name":"Val"}]`))

	s := New(kv, zerolog.Nop())
	err := s.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrStorage))
	assert.Contains(t, err.Error(), UsersKey)
	assert.Contains(t, err.Error(), LogsKey)

	assert.Empty(t, s.Data().Users)
	assert.NotNil(t, s.Data().Users)
	assert.Empty(t, s.Data().Logs)
	assert.NotNil(t, s.Data().Logs)
	assert.Len(t, s.Data().Visitors, 1)
}

func TestLoad_NullBlobBecomesEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Set(ctx, VisitorsKey, "null"))

	s := New(kv, zerolog.Nop())
	require.NoError(t, s.Load(ctx))
	assert.NotNil(t, s.Data().Visitors)
}

func TestSessionMarker(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory(), zerolog.Nop())

	email, err := s.RememberedSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, s.RememberSession(ctx, "a@x.com"))
	email, err = s.RememberedSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)

	require.NoError(t, s.ForgetSession(ctx))
	email, err = s.RememberedSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)
}

type failingKV struct{ *Memory }

func (failingKV) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestSave_BackendFailureIsStorageError(t *testing.T) {
	s := New(failingKV{NewMemory()}, zerolog.Nop())
	err := s.Save(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrStorage))
	assert.Contains(t, err.Error(), "disk full")
}
