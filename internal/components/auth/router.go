package auth

import (
	"fmt"
	"html/template"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/sweetshop/console/internal/backend"
	"github.com/sweetshop/console/internal/shared/cookie"
	"github.com/sweetshop/console/internal/shared/middleware"
)

type (
	Router struct {
		service servicer
	}
)

func NewRouter(service servicer) chi.Router {
	router := &Router{service: service}
	return router.Routes()
}

func (r *Router) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.LoginPage)
	router.Post("/", r.HandleLogInFlow)
	router.Post("/signup", r.HandleSignup)
	return router
}

// LoginPage renders the login/signup tabs. Authenticated sessions are sent
// straight to their dashboard.
func (r *Router) LoginPage(w http.ResponseWriter, req *http.Request) {
	logger := hlog.FromRequest(req)

	if middleware.FromContext(req.Context()).IsAuthenticated() {
		http.Redirect(w, req, "/", http.StatusSeeOther)
		return
	}

	tmpl, err := template.ParseFiles("templates/login.html")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse login template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := tmpl.Execute(w, nil); err != nil {
		logger.Error().Err(err).Msg("Failed to execute login template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// HandleLogInFlow authenticates against the backend and commits the session.
// The only local check is that both fields are present.
func (r *Router) HandleLogInFlow(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)

	form := LoginForm{
		Username: req.FormValue("username"),
		Password: req.FormValue("password"),
	}

	logger.Debug().Str("username", form.Username).Msg("Login attempt")

	if form.Username == "" || form.Password == "" {
		writeMessage(w, http.StatusBadRequest, "error", "Username and password are required")
		return
	}

	sess, err := r.service.Login(ctx, form)
	if err != nil {
		logger.Warn().Err(err).Str("username", form.Username).Msg("Login failed")
		writeMessage(w, statusFor(err), "error", backend.ErrorMessage(err))
		return
	}

	if err := cookie.SetCookie(w, sess.ID, r.service.GetSecretKey()); err != nil {
		logger.Error().Err(err).Str("username", form.Username).Msg("Login failed: could not set cookie")
		r.service.Logout(sess.ID)
		writeMessage(w, http.StatusInternalServerError, "error", "Login failed. Please try again.")
		return
	}

	// The new cookie replaces any previous session for this browser; the
	// replaced one would otherwise linger until the store sweeps it.
	if old := middleware.FromContext(ctx); old != nil && old.ID != sess.ID {
		r.service.Logout(old.ID)
	}

	logger.Debug().
		Str("username", form.Username).
		Bool("is_admin", sess.IsAdmin()).
		Msg("Login successful")

	// The root handler routes admins and shoppers to their dashboards.
	w.Header().Set("HX-Redirect", "/")
	w.WriteHeader(http.StatusOK)
}

// HandleSignup validates the form locally and registers the account. Field
// errors block the submission; no request leaves the console.
func (r *Router) HandleSignup(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := hlog.FromRequest(req)

	form := SignupForm{
		Username: req.FormValue("username"),
		Email:    req.FormValue("email"),
		Password: req.FormValue("password"),
	}

	if errs := ValidateSignup(form); errs != nil {
		writeFieldErrors(w, errs)
		return
	}

	profile, err := r.service.Register(ctx, form)
	if err != nil {
		logger.Warn().Err(err).Str("username", form.Username).Msg("Signup failed")
		writeMessage(w, statusFor(err), "error", backend.ErrorMessage(err))
		return
	}

	logger.Debug().Str("username", profile.Username).Int("user_id", profile.UserID).Msg("Account created")
	writeMessage(w, http.StatusOK, "success", fmt.Sprintf("Account created for %s. You can now log in.", profile.Username))
}

func writeMessage(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<div id="message" class="message %s">%s</div>`, kind, template.HTMLEscapeString(msg))
}

// writeFieldErrors renders field-scoped validation errors in a stable order.
func writeFieldErrors(w http.ResponseWriter, errs ValidationErrors) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusUnprocessableEntity)
	fmt.Fprint(w, `<div id="message" class="message error"><ul>`)
	for _, field := range fields {
		fmt.Fprintf(w, `<li data-field="%s">%s</li>`, field, template.HTMLEscapeString(errs[field]))
	}
	fmt.Fprint(w, `</ul></div>`)
}

// statusFor mirrors the backend's status for rejections and maps transport
// failures to 502.
func statusFor(err error) int {
	if apiErr, ok := err.(*backend.APIError); ok {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
