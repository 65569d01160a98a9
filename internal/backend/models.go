package backend

type (
	// UserProfile is the user snapshot returned by the auth endpoints.
	UserProfile struct {
		UserID   int    `json:"user_id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		IsAdmin  bool   `json:"is_admin"`
	}

	// Credentials is the login response: a bearer token plus the profile
	// snapshot taken at login time.
	Credentials struct {
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		User        UserProfile `json:"user"`
	}

	Sweet struct {
		SweetID         int     `json:"sweet_id"`
		Name            string  `json:"name"`
		Category        string  `json:"category"`
		Price           float64 `json:"price"`
		QuantityInStock int     `json:"quantity_in_stock"`
		ImageURL        string  `json:"image_url,omitempty"`
	}

	// SweetFields carries the full field set for creating a sweet.
	SweetFields struct {
		Name            string
		Category        string
		Price           float64
		QuantityInStock int
	}

	// SweetUpdate is a partial update; nil fields are left untouched upstream.
	SweetUpdate struct {
		Name            *string  `json:"name,omitempty"`
		Category        *string  `json:"category,omitempty"`
		Price           *float64 `json:"price,omitempty"`
		QuantityInStock *int     `json:"quantity_in_stock,omitempty"`
	}

	// Image is an in-memory image upload.
	Image struct {
		FileName string
		Data     []byte
	}
)
