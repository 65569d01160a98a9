package auth

import "regexp"

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	digitRe    = regexp.MustCompile(`[0-9]`)
)

// ValidationErrors maps field names to messages. A non-empty map blocks the
// signup submission before any network call is made.
type ValidationErrors map[string]string

// ValidateSignup applies the local form rules. Each field reports only its
// first failing rule; for passwords, length is checked before the digit rule.
func ValidateSignup(form SignupForm) ValidationErrors {
	errs := ValidationErrors{}

	switch {
	case len(form.Username) < 3:
		errs["username"] = "Username must be at least 3 characters"
	case !usernameRe.MatchString(form.Username):
		errs["username"] = "Username may only contain letters, numbers and underscores"
	}

	if !emailRe.MatchString(form.Email) {
		errs["email"] = "Enter a valid email address"
	}

	switch {
	case len(form.Password) < 6:
		errs["password"] = "Password must be at least 6 characters"
	case !digitRe.MatchString(form.Password):
		errs["password"] = "Password must contain at least one digit"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
