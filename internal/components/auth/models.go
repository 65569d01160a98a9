package auth

type (
	SignupForm struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginForm struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
)
