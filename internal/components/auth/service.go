package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/sweetshop/console/internal/backend"
	"github.com/sweetshop/console/internal/shared/config"
	"github.com/sweetshop/console/internal/shared/session"
)

type (
	servicer interface {
		Register(context.Context, SignupForm) (*backend.UserProfile, error)
		Login(context.Context, LoginForm) (*session.Session, error)
		Logout(uuid.UUID)
		GetSecretKey() []byte
	}
	service struct {
		api      *backend.Client
		sessions *session.Store
		secret   []byte
	}
)

func NewService(cfg *config.Config, api *backend.Client, sessions *session.Store) (servicer, error) {
	secret, err := cfg.Secret()
	if err != nil {
		return nil, err
	}
	return &service{
		api:      api,
		sessions: sessions,
		secret:   secret,
	}, nil
}

// Register relays a pre-validated signup to the backend. It touches no
// session state; a new account still has to log in.
func (s *service) Register(ctx context.Context, form SignupForm) (*backend.UserProfile, error) {
	return s.api.Register(ctx, form.Username, form.Email, form.Password)
}

// Login walks the session through authenticating into authenticated. A
// rejected or failed login clears the transient session, leaving the browser
// anonymous.
func (s *service) Login(ctx context.Context, form LoginForm) (*session.Session, error) {
	sess := s.sessions.Begin()

	creds, err := s.api.Login(ctx, form.Username, form.Password)
	if err != nil {
		s.sessions.Clear(sess.ID)
		return nil, err
	}

	committed, err := s.sessions.Commit(sess.ID, creds.AccessToken, &creds.User)
	if err != nil {
		s.sessions.Clear(sess.ID)
		return nil, err
	}
	return committed, nil
}

// Logout destroys the session locally. The upstream token is simply
// abandoned; the backend is not told.
func (s *service) Logout(id uuid.UUID) {
	s.sessions.Clear(id)
}

// GetSecretKey returns the secret key for cookie encryption
func (s *service) GetSecretKey() []byte {
	return s.secret
}
