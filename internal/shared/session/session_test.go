package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetshop/console/internal/backend"
)

func testProfile(admin bool) *backend.UserProfile {
	return &backend.UserProfile{
		UserID:   7,
		Username: "alice",
		Email:    "alice@example.com",
		IsAdmin:  admin,
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestBeginCommitGet(t *testing.T) {
	store := NewStore()

	sess := store.Begin()
	assert.Equal(t, StateAuthenticating, sess.State)
	assert.False(t, sess.IsAuthenticated())
	assert.Equal(t, 1, store.Len())

	committed, err := store.Commit(sess.ID, "tok", testProfile(false))
	require.NoError(t, err)
	assert.True(t, committed.IsAuthenticated())
	assert.Equal(t, "tok", committed.Token)
	assert.Equal(t, "alice", committed.User.Username)

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, committed, got)
}

func TestCommitUnknownSession(t *testing.T) {
	store := NewStore()

	_, err := store.Commit(uuid.New(), "tok", testProfile(false))
	assert.ErrorIs(t, err, ErrNotFound)
}

// Committing twice is an illegal transition; the first commit stands.
func TestCommitTwice(t *testing.T) {
	store := NewStore()
	sess := store.Begin()

	_, err := store.Commit(sess.ID, "first", testProfile(false))
	require.NoError(t, err)

	_, err = store.Commit(sess.ID, "second", testProfile(true))
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "first", got.Token)
	assert.False(t, got.IsAdmin())
}

func TestClearIsIdempotent(t *testing.T) {
	store := NewStore()
	sess := store.Begin()

	store.Clear(sess.ID)
	store.Clear(sess.ID)

	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestGetEvictsExpiredSessions(t *testing.T) {
	store := NewStore()
	sess := store.Begin()

	token := signedToken(t, time.Now().Add(time.Hour))
	_, err := store.Commit(sess.ID, token, testProfile(false))
	require.NoError(t, err)

	// Still live before the exp claim.
	_, ok := store.Get(sess.ID)
	require.True(t, ok)

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, ok = store.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(), "expired session should be evicted")
}

// Opaque tokens carry no exp claim; such sessions fall back to the store TTL
// instead of living forever.
func TestOpaqueTokenGetsFallbackExpiry(t *testing.T) {
	store := NewStore()
	sess := store.Begin()

	committed, err := store.Commit(sess.ID, "not-a-jwt", testProfile(false))
	require.NoError(t, err)
	assert.False(t, committed.ExpiresAt.IsZero())

	store.now = func() time.Time { return time.Now().Add(fallbackTTL / 2) }
	_, ok := store.Get(sess.ID)
	assert.True(t, ok)

	store.now = func() time.Time { return time.Now().Add(fallbackTTL + time.Hour) }
	_, ok = store.Get(sess.ID)
	assert.False(t, ok)
}

// A session abandoned by a browser is reclaimed by the sweep on the next
// login, without its own ID ever being looked up.
func TestBeginSweepsExpiredSessions(t *testing.T) {
	store := NewStore()

	abandoned := store.Begin()
	_, err := store.Commit(abandoned.ID, signedToken(t, time.Now().Add(time.Minute)), testProfile(false))
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	store.now = func() time.Time { return time.Now().Add(time.Hour) }

	fresh := store.Begin()
	assert.Equal(t, 1, store.Len(), "the expired session is swept, only the fresh one remains")

	_, ok := store.sessions[abandoned.ID]
	assert.False(t, ok)
	_, ok = store.sessions[fresh.ID]
	assert.True(t, ok)
}

// A login that never commits or clears is reclaimed once it is far past any
// request timeout.
func TestSweepReclaimsStaleAuthenticating(t *testing.T) {
	store := NewStore()
	stuck := store.Begin()

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	store.Begin()

	_, ok := store.sessions[stuck.ID]
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestOnEvictHooks(t *testing.T) {
	store := NewStore()

	var evicted []uuid.UUID
	store.OnEvict(func(id uuid.UUID) { evicted = append(evicted, id) })

	// Logout.
	cleared := store.Begin()
	store.Clear(cleared.ID)
	require.Equal(t, []uuid.UUID{cleared.ID}, evicted)

	// Clearing an unknown ID fires nothing.
	store.Clear(uuid.New())
	assert.Len(t, evicted, 1)

	// Lazy eviction on lookup.
	expired := store.Begin()
	_, err := store.Commit(expired.ID, signedToken(t, time.Now().Add(time.Minute)), testProfile(false))
	require.NoError(t, err)
	store.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, ok := store.Get(expired.ID)
	require.False(t, ok)
	assert.Contains(t, evicted, expired.ID)

	// Sweep on the next login.
	store.now = time.Now
	swept := store.Begin()
	_, err = store.Commit(swept.ID, signedToken(t, time.Now().Add(time.Minute)), testProfile(false))
	require.NoError(t, err)
	store.now = func() time.Time { return time.Now().Add(time.Hour) }

	store.Begin()
	assert.Contains(t, evicted, swept.ID)
}

func TestTokenExpiryReadsExpClaim(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	got := tokenExpiry(signedToken(t, exp))
	assert.Equal(t, exp.Unix(), got.Unix())

	assert.True(t, tokenExpiry("garbage").IsZero())
	assert.True(t, tokenExpiry("").IsZero())
}

func TestNilSessionHelpers(t *testing.T) {
	var sess *Session
	assert.False(t, sess.IsAuthenticated())
	assert.False(t, sess.IsAdmin())
}

func TestIsAdmin(t *testing.T) {
	store := NewStore()

	sess := store.Begin()
	assert.False(t, sess.IsAdmin(), "authenticating session has no role")

	committed, err := store.Commit(sess.ID, "tok", testProfile(true))
	require.NoError(t, err)
	assert.True(t, committed.IsAdmin())
}
