package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sweetshop/console/internal/shared/config"
)

type (
	// Client is a typed client for the remote Sweet Shop API. All operations
	// take the bearer token explicitly; the client holds no session state.
	Client struct {
		baseURL string
		http    *http.Client
		logger  zerolog.Logger
	}
)

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BackendURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger.With().Str("component", "backend").Logger(),
	}
}

// Register creates a new account. Content validation happens before the call;
// the client only relays the fields.
func (c *Client) Register(ctx context.Context, username, email, password string) (*UserProfile, error) {
	body := map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	}

	profile := new(UserProfile)
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", "", body, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Login exchanges credentials for a bearer token and profile snapshot.
func (c *Client) Login(ctx context.Context, username, password string) (*Credentials, error) {
	body := map[string]any{
		"username": username,
		"password": password,
	}

	creds := new(Credentials)
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", body, creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// CurrentUser fetches the profile behind a token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*UserProfile, error) {
	profile := new(UserProfile)
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", token, nil, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) ListSweets(ctx context.Context, token string) ([]Sweet, error) {
	var sweets []Sweet
	if err := c.doJSON(ctx, http.MethodGet, "/api/sweets/", token, nil, &sweets); err != nil {
		return nil, err
	}
	return sweets, nil
}

func (c *Client) GetSweet(ctx context.Context, token string, id int) (*Sweet, error) {
	sweet := new(Sweet)
	path := fmt.Sprintf("/api/sweets/%d", id)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, sweet); err != nil {
		return nil, err
	}
	return sweet, nil
}

// SearchSweets filters server-side by name substring and category. Empty
// parameters are omitted from the query string.
func (c *Client) SearchSweets(ctx context.Context, token, query, category string) ([]Sweet, error) {
	values := url.Values{}
	if query != "" {
		values.Set("query", query)
	}
	if category != "" {
		values.Set("category", category)
	}

	path := "/api/sweets/search"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var sweets []Sweet
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &sweets); err != nil {
		return nil, err
	}
	return sweets, nil
}

// CreateSweet submits a multipart form; the image part is included only when
// an image is attached.
func (c *Client) CreateSweet(ctx context.Context, token string, fields SweetFields, image *Image) (*Sweet, error) {
	form := map[string]string{
		"name":              fields.Name,
		"category":          fields.Category,
		"price":             strconv.FormatFloat(fields.Price, 'f', 2, 64),
		"quantity_in_stock": strconv.Itoa(fields.QuantityInStock),
	}

	body, contentType, err := multipartBody(form, image)
	if err != nil {
		return nil, err
	}

	sweet := new(Sweet)
	if err := c.doMultipart(ctx, http.MethodPost, "/api/sweets/", token, body, contentType, sweet); err != nil {
		return nil, err
	}
	return sweet, nil
}

// UpdateSweet sends a partial field update. Updating the image is a separate,
// independent call; see UpdateSweetImage.
func (c *Client) UpdateSweet(ctx context.Context, token string, id int, update SweetUpdate) (*Sweet, error) {
	sweet := new(Sweet)
	path := fmt.Sprintf("/api/sweets/%d", id)
	if err := c.doJSON(ctx, http.MethodPut, path, token, update, sweet); err != nil {
		return nil, err
	}
	return sweet, nil
}

// UpdateSweetImage replaces a sweet's image. Not transactional with
// UpdateSweet: a failure here leaves previously updated fields in place.
func (c *Client) UpdateSweetImage(ctx context.Context, token string, id int, image Image) (*Sweet, error) {
	body, contentType, err := multipartBody(nil, &image)
	if err != nil {
		return nil, err
	}

	sweet := new(Sweet)
	path := fmt.Sprintf("/api/sweets/%d/image", id)
	if err := c.doMultipart(ctx, http.MethodPut, path, token, body, contentType, sweet); err != nil {
		return nil, err
	}
	return sweet, nil
}

func (c *Client) Restock(ctx context.Context, token string, id, quantity int) (*Sweet, error) {
	sweet := new(Sweet)
	path := fmt.Sprintf("/api/sweets/%d/restock", id)
	if err := c.doJSON(ctx, http.MethodPost, path, token, map[string]int{"quantity": quantity}, sweet); err != nil {
		return nil, err
	}
	return sweet, nil
}

func (c *Client) Purchase(ctx context.Context, token string, id, quantity int) (*Sweet, error) {
	sweet := new(Sweet)
	path := fmt.Sprintf("/api/sweets/%d/purchase", id)
	if err := c.doJSON(ctx, http.MethodPost, path, token, map[string]int{"quantity": quantity}, sweet); err != nil {
		return nil, err
	}
	return sweet, nil
}

func (c *Client) DeleteSweet(ctx context.Context, token string, id int) error {
	path := fmt.Sprintf("/api/sweets/%d", id)
	return c.doJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]UserProfile, error) {
	var users []UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int) error {
	path := fmt.Sprintf("/api/auth/%d", id)
	return c.doJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

// Ping reports whether the backend is reachable at the transport level. Any
// HTTP response counts as reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// doJSON runs a request with an optional JSON body and decodes a JSON
// response into out (skipped when out is nil or the response has no content).
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, token, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path, token string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("Request failed")
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		c.logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Str("detail", apiErr.Detail).
			Msg("Backend rejected request")
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError extracts the error text from a rejection body. The backend
// reports "detail"; older endpoints used "error". Falls back to the HTTP
// status text when neither parses.
func decodeAPIError(resp *http.Response) *APIError {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, &parsed)

	detail := parsed.Detail
	if detail == "" {
		detail = parsed.Error
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

func multipartBody(fields map[string]string, image *Image) (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if image != nil {
		part, err := w.CreateFormFile("image", image.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
