package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"safesphere/internal/apperr"
	"safesphere/internal/model"
	"safesphere/internal/notify"
	"safesphere/internal/store"
)

type seqIDs struct{ ids []string }

func (s *seqIDs) UserID() string {
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id
}

func (s *seqIDs) RecordID(prefix string) string { return prefix + "1" }

func newTestService(t *testing.T, gen *seqIDs) (*Service, *store.Store, store.KV) {
	t.Helper()
	kv := store.NewMemory()
	st := store.New(kv, zerolog.Nop())
	clock := func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	svc := NewService(st, notify.NewService(st, clock), gen, clock, zerolog.Nop())
	svc.HashCost = bcrypt.MinCost
	return svc, st, kv
}

func alex() SignupInput {
	return SignupInput{Name: "Alex", Email: "a@x.com", Password: "secret1", Role: "student", IDNumber: "ID1"}
}

func TestSignupThenLogin(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, &seqIDs{ids: []string{"SS00AA11"}})

	user, err := svc.Signup(ctx, alex())
	require.NoError(t, err)
	assert.Equal(t, "SS00AA11", user.UserID)
	assert.NotEqual(t, "secret1", user.Password)
	assert.Contains(t, st.Data().Attendance, "SS00AA11")
	assert.Empty(t, st.Data().Attendance["SS00AA11"])
	assert.Equal(t, "New user registered: Alex", st.Data().Notifications[0].Message)

	got, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)
	require.NotNil(t, svc.Current())
	assert.Equal(t, user.UserID, svc.Current().UserID)

	remembered, err := st.RememberedSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", remembered)
}

func TestSignup_LongPasswordRoundTrips(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &seqIDs{ids: []string{"SS00AA12"}})

	in := alex()
	in.Password = strings.Repeat("p", 80)
	_, err := svc.Signup(ctx, in)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@x.com", in.Password)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@x.com", strings.Repeat("p", 79)+"q")
	assert.True(t, errors.Is(err, apperr.ErrAuth))
}

func TestLogin_ByUserIDCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &seqIDs{ids: []string{"SS00AA11"}})
	_, err := svc.Signup(ctx, alex())
	require.NoError(t, err)

	got, err := svc.Login(ctx, "ss00aa11", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestSignup_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SignupInput)
		msg    string
	}{
		{"blank name", func(in *SignupInput) { in.Name = "   " }, "Please fill in all fields."},
		{"blank id", func(in *SignupInput) { in.IDNumber = "" }, "Please fill in all fields."},
		{"bad email", func(in *SignupInput) { in.Email = "a@x" }, "Please enter a valid email address."},
		{"short password", func(in *SignupInput) { in.Password = "12345" }, "Password must be at least 6 characters long."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, st, _ := newTestService(t, &seqIDs{ids: []string{"SS1"}})
			in := alex()
			tc.mutate(&in)
			_, err := svc.Signup(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			assert.Equal(t, tc.msg, apperr.Message(err))
			assert.Empty(t, st.Data().Users)
		})
	}
}

func TestSignup_DuplicateEmailLeavesUsersUntouched(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, &seqIDs{ids: []string{"SS1", "SS2"}})
	first, err := svc.Signup(ctx, alex())
	require.NoError(t, err)

	dup := alex()
	dup.Name = "Other"
	_, err = svc.Signup(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	require.Len(t, st.Data().Users, 1)
	assert.Equal(t, first, st.Data().Users["a@x.com"])
}

func TestSignup_RetriesOnUserIDCollision(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &seqIDs{ids: []string{"SS1", "SS1", "SS2"}})
	_, err := svc.Signup(ctx, alex())
	require.NoError(t, err)

	other := alex()
	other.Email = "b@x.com"
	u, err := svc.Signup(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "SS2", u.UserID)
}

func TestLogin_Errors(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, &seqIDs{ids: []string{"SS1"}})
	_, err := svc.Signup(ctx, alex())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "", "secret1")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Login(ctx, "nobody@x.com", "secret1")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	before := len(st.Data().Notifications)
	_, err = svc.Login(ctx, "a@x.com", "wrong-pass")
	assert.True(t, errors.Is(err, apperr.ErrAuth))
	require.Len(t, st.Data().Notifications, before+1)
	last := st.Data().Notifications[before]
	assert.Equal(t, model.NotifyWarning, last.Type)
	assert.Equal(t, "Failed login attempt detected", last.Message)
	assert.Nil(t, svc.Current())
}

func TestAutoLogin(t *testing.T) {
	ctx := context.Background()
	svc, st, kv := newTestService(t, &seqIDs{ids: []string{"SS1"}})
	_, err := svc.Signup(ctx, alex())
	require.NoError(t, err)
	_, err = svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	// a fresh service over the same storage restores the session
	st2 := store.New(kv, zerolog.Nop())
	require.NoError(t, st2.Load(ctx))
	svc2 := NewService(st2, notify.NewService(st2, nil), nil, nil, zerolog.Nop())
	u, err := svc2.AutoLogin(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "SS1", u.UserID)

	// an unknown remembered email restores nothing
	require.NoError(t, st.RememberSession(ctx, "ghost@x.com"))
	svc3 := NewService(st, notify.NewService(st, nil), nil, nil, zerolog.Nop())
	u, err = svc3.AutoLogin(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLogout_RequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t, &seqIDs{ids: []string{"SS1"}})
	_, err := svc.Signup(ctx, alex())
	require.NoError(t, err)
	_, err = svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	var asked string
	done, err := svc.Logout(ctx, func(p string) bool { asked = p; return false })
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, LogoutPrompt, asked)
	assert.NotNil(t, svc.Current())

	done, err = svc.Logout(ctx, func(string) bool { return true })
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, svc.Current())
	remembered, err := st.RememberedSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, remembered)
}
