package auth

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetshop/console/internal/backend"
	"github.com/sweetshop/console/internal/shared/middleware"
	"github.com/sweetshop/console/internal/shared/session"
)

type stubService struct {
	registerFn func(SignupForm) (*backend.UserProfile, error)
	loginFn    func(LoginForm) (*session.Session, error)
	loggedOut  []uuid.UUID
	secret     []byte
}

func (s *stubService) Register(_ context.Context, form SignupForm) (*backend.UserProfile, error) {
	return s.registerFn(form)
}

func (s *stubService) Login(_ context.Context, form LoginForm) (*session.Session, error) {
	return s.loginFn(form)
}

func (s *stubService) Logout(id uuid.UUID) {
	s.loggedOut = append(s.loggedOut, id)
}

func (s *stubService) GetSecretKey() []byte {
	return s.secret
}

func newStub(t *testing.T) *stubService {
	t.Helper()
	secret, err := hex.DecodeString("6368616e676520746869732064657620736563726574206b6579212121212121")
	require.NoError(t, err)
	return &stubService{secret: secret}
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleLogInFlowSuccess(t *testing.T) {
	stub := newStub(t)
	stub.loginFn = func(form LoginForm) (*session.Session, error) {
		assert.Equal(t, "alice", form.Username)
		return &session.Session{
			ID:    uuid.New(),
			State: session.StateAuthenticated,
			User:  &backend.UserProfile{Username: "alice"},
		}, nil
	}

	rec := postForm(NewRouter(stub), "/", url.Values{
		"username": {"alice"},
		"password": {"sweet123"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "console_session", cookies[0].Name)
}

// Logging in again from a browser that already holds a session replaces it;
// the old session is cleared rather than left behind in the store.
func TestHandleLogInFlowReplacesPreviousSession(t *testing.T) {
	oldID := uuid.New()
	newID := uuid.New()

	stub := newStub(t)
	stub.loginFn = func(LoginForm) (*session.Session, error) {
		return &session.Session{
			ID:    newID,
			State: session.StateAuthenticated,
			User:  &backend.UserProfile{Username: "alice"},
		}, nil
	}

	form := url.Values{"username": {"alice"}, "password": {"sweet123"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(middleware.WithSession(req.Context(), &session.Session{
		ID:    oldID,
		State: session.StateAuthenticated,
		User:  &backend.UserProfile{Username: "alice"},
	}))

	rec := httptest.NewRecorder()
	NewRouter(stub).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{oldID}, stub.loggedOut)
}

func TestHandleLogInFlowMissingFields(t *testing.T) {
	stub := newStub(t)
	stub.loginFn = func(LoginForm) (*session.Session, error) {
		t.Fatal("login should not be attempted with missing fields")
		return nil, nil
	}

	rec := postForm(NewRouter(stub), "/", url.Values{"username": {"alice"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username and password are required")
	assert.Empty(t, rec.Header().Get("HX-Redirect"))
}

// The rejection surfaces the backend's own message with the backend's status.
func TestHandleLogInFlowRejected(t *testing.T) {
	stub := newStub(t)
	stub.loginFn = func(LoginForm) (*session.Session, error) {
		return nil, &backend.APIError{StatusCode: http.StatusUnauthorized, Detail: "Invalid credentials"}
	}

	rec := postForm(NewRouter(stub), "/", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandleSignupValidationErrors(t *testing.T) {
	stub := newStub(t)
	stub.registerFn = func(SignupForm) (*backend.UserProfile, error) {
		t.Fatal("invalid forms must not reach the backend")
		return nil, nil
	}

	rec := postForm(NewRouter(stub), "/signup", url.Values{
		"username": {"x"},
		"email":    {"nope"},
		"password": {"short"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `data-field="email"`)
	assert.Contains(t, body, `data-field="password"`)
	assert.Contains(t, body, `data-field="username"`)
	// Fields render in a stable alphabetical order.
	assert.Less(t, strings.Index(body, `data-field="email"`), strings.Index(body, `data-field="password"`))
	assert.Less(t, strings.Index(body, `data-field="password"`), strings.Index(body, `data-field="username"`))
}

func TestHandleSignupSuccess(t *testing.T) {
	stub := newStub(t)
	stub.registerFn = func(form SignupForm) (*backend.UserProfile, error) {
		return &backend.UserProfile{UserID: 2, Username: form.Username}, nil
	}

	rec := postForm(NewRouter(stub), "/signup", url.Values{
		"username": {"bob_2"},
		"email":    {"bob@example.com"},
		"password": {"sweet123"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account created for bob_2")
}

func TestHandleSignupBackendRejection(t *testing.T) {
	stub := newStub(t)
	stub.registerFn = func(SignupForm) (*backend.UserProfile, error) {
		return nil, &backend.APIError{StatusCode: http.StatusConflict, Detail: "Username already taken"}
	}

	rec := postForm(NewRouter(stub), "/signup", url.Values{
		"username": {"bob_2"},
		"email":    {"bob@example.com"},
		"password": {"sweet123"},
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already taken")
}
