package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"safesphere/internal/apperr"
	"safesphere/internal/ids"
	"safesphere/internal/metrics"
	"safesphere/internal/model"
	"safesphere/internal/notify"
	"safesphere/internal/store"
	"safesphere/internal/validate"
)

// Confirm asks the operator a yes/no question.
type Confirm func(prompt string) bool

const LogoutPrompt = "Are you sure you want to logout?"

// SignupInput is the signup form.
type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,campusemail"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required"`
	IDNumber string `json:"idNumber" validate:"required"`
}

// Service owns the single active session of a workspace.
type Service struct {
	st       *store.Store
	notify   *notify.Service
	ids      ids.Generator
	clock    ids.Clock
	validate *validator.Validate
	log      zerolog.Logger

	// HashCost is the bcrypt cost used at signup.
	HashCost int

	current *model.User
}

func NewService(st *store.Store, n *notify.Service, gen ids.Generator, clock ids.Clock, log zerolog.Logger) *Service {
	if gen == nil {
		gen = ids.Random{}
	}
	if clock == nil {
		clock = ids.SystemClock
	}
	return &Service{
		st:       st,
		notify:   n,
		ids:      gen,
		clock:    clock,
		validate: validate.New(),
		log:      log.With().Str("component", "auth").Logger(),
		HashCost: bcrypt.DefaultCost,
	}
}

// Current returns the session user, or nil when logged out.
func (s *Service) Current() *model.User {
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// Signup registers a new account and an empty attendance history for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (model.User, error) {
	validate.Trim(&in.Name, &in.Email, &in.Role, &in.IDNumber)
	if err := s.validate.Struct(in); err != nil {
		switch {
		case validate.HasTag(err, "required"):
			return model.User{}, apperr.Validation("Please fill in all fields.")
		case validate.HasTag(err, "campusemail"):
			return model.User{}, apperr.Validation("Please enter a valid email address.")
		case validate.HasTag(err, "min"):
			return model.User{}, apperr.Validation("Password must be at least 6 characters long.")
		default:
			return model.User{}, apperr.Validation(err.Error())
		}
	}

	d := s.st.Data()
	if _, exists := d.Users[in.Email]; exists {
		return model.User{}, apperr.Validation("An account with this email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword(passwordKey(in.Password), s.HashCost)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		UserID:    s.uniqueUserID(d),
		Name:      in.Name,
		Email:     in.Email,
		Password:  string(hash),
		Role:      model.Role(in.Role),
		IDNumber:  in.IDNumber,
		CreatedAt: s.clock().UTC(),
	}
	d.Users[in.Email] = user
	d.Attendance[user.UserID] = []model.AttendanceRecord{}

	if err := s.st.Save(ctx); err != nil {
		return model.User{}, err
	}
	s.log.Info().Str("user_id", user.UserID).Str("role", string(user.Role)).Msg("user registered")
	if err := s.notify.Add(ctx, "New user registered: "+user.Name, model.NotifySuccess); err != nil {
		return user, err
	}
	return user, nil
}

// passwordKey digests the password so bcrypt never sees more than 72 bytes.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func (s *Service) uniqueUserID(d *store.Data) string {
	for {
		id := s.ids.UserID()
		if _, err := FindByUserID(d, id); errors.Is(err, apperr.ErrNotFound) {
			return id
		}
	}
}

// Login resolves emailOrID by exact email first, then by case-insensitive
// userId, and checks the password.
func (s *Service) Login(ctx context.Context, emailOrID, password string) (model.User, error) {
	emailOrID = strings.TrimSpace(emailOrID)
	if emailOrID == "" || password == "" {
		return model.User{}, apperr.Validation("Please enter both email/ID and password.")
	}

	d := s.st.Data()
	user, ok := d.Users[emailOrID]
	if !ok {
		var err error
		if user, err = FindByUserID(d, emailOrID); err != nil {
			return model.User{}, apperr.NotFound("No account found with this email or ID. Please sign up first.")
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), passwordKey(password)) != nil {
		metrics.LoginFailures.Inc()
		s.log.Warn().Str("user_id", user.UserID).Msg("failed login attempt")
		if err := s.notify.Add(ctx, "Failed login attempt detected", model.NotifyWarning); err != nil {
			return model.User{}, err
		}
		return model.User{}, apperr.Auth("Incorrect password. Please try again.")
	}

	s.current = &user
	if err := s.st.RememberSession(ctx, user.Email); err != nil {
		return user, err
	}
	if err := s.notify.Add(ctx, "Successfully logged in", model.NotifySuccess); err != nil {
		return user, err
	}
	return user, nil
}

// AutoLogin restores the session from the remembered email without a
// password check. It returns nil when nothing resolves.
func (s *Service) AutoLogin(ctx context.Context) (*model.User, error) {
	email, err := s.st.RememberedSession(ctx)
	if err != nil || email == "" {
		return nil, err
	}
	user, ok := s.st.Data().Users[email]
	if !ok {
		return nil, nil
	}
	s.current = &user
	s.log.Debug().Str("user_id", user.UserID).Msg("session restored")
	return s.Current(), nil
}

// Logout clears the session if confirm agrees. It reports whether the
// session was cleared.
func (s *Service) Logout(ctx context.Context, confirm Confirm) (bool, error) {
	if confirm == nil || !confirm(LogoutPrompt) {
		return false, nil
	}
	s.current = nil
	if err := s.st.ForgetSession(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// FindByUserID scans all users for a case-insensitive userId match.
func FindByUserID(d *store.Data, userID string) (model.User, error) {
	for _, u := range d.Users {
		if strings.EqualFold(u.UserID, userID) {
			return u, nil
		}
	}
	return model.User{}, apperr.NotFound("User not found")
}
