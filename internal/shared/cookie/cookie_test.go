package cookie

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret(t *testing.T) []byte {
	t.Helper()
	secret, err := hex.DecodeString("6368616e676520746869732064657620736563726574206b6579212121212121")
	require.NoError(t, err)
	require.Len(t, secret, 32)
	return secret
}

func TestSetGetRoundTrip(t *testing.T) {
	secret := testSecret(t)
	sessionID := uuid.New()

	rec := httptest.NewRecorder()
	require.NoError(t, SetCookie(rec, sessionID, secret))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "console_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	got, err := GetCookie(req, secret)
	require.NoError(t, err)
	assert.Equal(t, sessionID, *got)
}

func TestGetCookieMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := GetCookie(req, testSecret(t))
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestGetCookieRejectsTamperedValue(t *testing.T) {
	secret := testSecret(t)

	rec := httptest.NewRecorder()
	require.NoError(t, SetCookie(rec, uuid.New(), secret))
	cookie := rec.Result().Cookies()[0]

	// Flip a character in the encoded value.
	value := []byte(cookie.Value)
	if value[10] == 'A' {
		value[10] = 'B'
	} else {
		value[10] = 'A'
	}
	cookie.Value = string(value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	_, err := GetCookie(req, secret)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestGetCookieRejectsWrongKey(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, SetCookie(rec, uuid.New(), testSecret(t)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	otherKey := make([]byte, 32)
	_, err := GetCookie(req, otherKey)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestGetCookieRejectsGarbage(t *testing.T) {
	secret := testSecret(t)

	for _, value := range []string{"", "not-base64!!", "YWJj"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "console_session", Value: value})

		_, err := GetCookie(req, secret)
		assert.ErrorIs(t, err, ErrInvalidValue, "value %q", value)
	}
}

// The cookie name is sealed into the plaintext, so a value minted under a
// different name does not decrypt.
func TestDecryptBindsCookieName(t *testing.T) {
	secret := testSecret(t)
	sessionID := uuid.New()

	value, err := encrypt(sessionID, secret, "other_cookie")
	require.NoError(t, err)

	_, err = decrypt(*value, secret, cookieName)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestClearCookieExpires(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "console_session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
