package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sweetshop/console/internal/backend"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrNotAuthenticating = errors.New("session is not in the authenticating state")
	ErrAlreadyCommitted  = errors.New("session is already authenticated")
)

// State tracks where a session sits in the login lifecycle. Sessions cycle
// anonymous -> authenticating -> authenticated and back to anonymous on
// logout; there is no terminal state.
type State int

const (
	// StateAnonymous is the implicit state of any browser without a live
	// session; such sessions never appear in the store.
	StateAnonymous State = iota
	// StateAuthenticating spans the in-flight login request.
	StateAuthenticating
	// StateAuthenticated holds the token and profile snapshot for all
	// subsequent calls.
	StateAuthenticated
)

// fallbackTTL bounds sessions whose token carries no readable exp claim, so
// every session eventually leaves the store.
const fallbackTTL = 24 * time.Hour

// authenticatingTTL bounds sessions stuck mid-login, far beyond any request
// timeout.
const authenticatingTTL = time.Hour

type (
	// Session is the per-browser authentication state. Token and User are set
	// on commit and never refreshed until the next login.
	Session struct {
		ID        uuid.UUID
		State     State
		Token     string
		User      *backend.UserProfile
		CreatedAt time.Time
		ExpiresAt time.Time // zero until commit
	}

	// Store holds live sessions in memory only. Nothing survives a restart;
	// a restart simply logs everyone out.
	Store struct {
		mu       sync.RWMutex
		sessions map[uuid.UUID]*Session
		onEvict  []func(uuid.UUID)
		now      func() time.Time
	}
)

// IsAuthenticated reports whether the session holds a committed token.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.State == StateAuthenticated
}

// IsAdmin reports the role captured at login time.
func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.User != nil && s.User.IsAdmin
}

func (s *Session) expired(now time.Time) bool {
	if s.State == StateAuthenticating {
		return now.Sub(s.CreatedAt) > authenticatingTTL
	}
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		now:      time.Now,
	}
}

// OnEvict registers a hook invoked with the ID of every session that leaves
// the store, whether by logout, expiry, or replacement. Holders of
// per-session state use this to drop theirs in step.
func (st *Store) OnEvict(fn func(uuid.UUID)) {
	st.mu.Lock()
	st.onEvict = append(st.onEvict, fn)
	st.mu.Unlock()
}

// Begin creates a session in the authenticating state, covering the time the
// login request is in flight. Each login also sweeps expired sessions, so
// abandoned sessions do not rely on their own ID ever being looked up again.
func (st *Store) Begin() *Session {
	sess := &Session{
		ID:        uuid.New(),
		State:     StateAuthenticating,
		CreatedAt: st.now(),
	}

	st.mu.Lock()
	evicted := st.sweepLocked()
	st.sessions[sess.ID] = sess
	hooks := st.onEvict
	st.mu.Unlock()

	notify(hooks, evicted...)
	return sess
}

// Commit transitions an authenticating session to authenticated, attaching
// the bearer token and the profile snapshot from the login response.
func (st *Store) Commit(id uuid.UUID, token string, user *backend.UserProfile) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.State == StateAuthenticated {
		return nil, ErrAlreadyCommitted
	}
	if sess.State != StateAuthenticating {
		return nil, ErrNotAuthenticating
	}

	sess.State = StateAuthenticated
	sess.Token = token
	sess.User = user
	sess.ExpiresAt = tokenExpiry(token)
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = st.now().Add(fallbackTTL)
	}
	return sess, nil
}

// Get returns a live session. Expired sessions are evicted lazily and
// reported as absent, which sends the browser back to the login page.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if sess.expired(st.now()) {
		st.Clear(id)
		return nil, false
	}
	return sess, true
}

// Clear destroys a session: a synchronous local logout. No upstream call is
// made; the backend never learns the token was abandoned.
func (st *Store) Clear(id uuid.UUID) {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	hooks := st.onEvict
	st.mu.Unlock()

	if ok {
		notify(hooks, id)
	}
}

// sweepLocked removes every expired session. The caller holds the write lock
// and owes the eviction hooks for the returned IDs.
func (st *Store) sweepLocked() []uuid.UUID {
	now := st.now()
	var evicted []uuid.UUID
	for id, sess := range st.sessions {
		if sess.expired(now) {
			delete(st.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

func notify(hooks []func(uuid.UUID), ids ...uuid.UUID) {
	for _, id := range ids {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// tokenExpiry reads the exp claim from the token without verifying the
// signature; verification is the backend's job. Tokens that are not JWTs
// report zero and fall back to the store's TTL on commit.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
