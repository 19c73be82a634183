package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"

	"boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/media"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultCacheTTL = 30 * time.Second

	// tokenLeeway is subtracted from a token's exp before it is reused.
	tokenLeeway = 30 * time.Second
	// opaqueTokenTTL applies to tokens that carry no readable exp claim.
	opaqueTokenTTL = 10 * time.Minute

	maxErrorBody = 512
)

type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
	// CacheTTL controls how long GET responses are reused. Negative
	// disables caching.
	CacheTTL time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// ContactForm is the payload of POST /api/contact.
type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Model   string `json:"model,omitempty"`
	Message string `json:"message"`
}

// Client talks to the catalog REST backend. GET responses are cached and
// every successful write flushes the cache. Failed requests are not retried.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *cache.Cache

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func New(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.cfg.BaseURL }

/* ---------- AUTH ---------- */

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	Data        *struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

func (r loginResponse) bearer() string {
	candidates := []string{r.Token, r.AccessToken}
	if r.Data != nil {
		candidates = append(candidates, r.Data.Token, r.Data.AccessToken)
	}
	for _, t := range candidates {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

// Login returns a bearer token for writes, reusing the cached one until
// shortly before it expires.
func (c *Client) Login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	if c.cfg.Email == "" || c.cfg.Password == "" {
		return "", ErrNoCredentials
	}

	body, err := json.Marshal(map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", err
	}

	raw, err := c.do(ctx, http.MethodPost, "/api/auth/login", "", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("login: decode response: %w", err)
	}
	token := resp.bearer()
	if token == "" {
		return "", ErrNoToken
	}

	c.token = token
	c.tokenExpiry = tokenExpiry(token, time.Now())
	log.Printf("backend_login ok expires_at=%s", c.tokenExpiry.Format(time.RFC3339))
	return token, nil
}

// tokenExpiry reads exp from the token without verifying it; the backend
// owns the signing key.
func tokenExpiry(token string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return now.Add(opaqueTokenTTL)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return now.Add(opaqueTokenTTL)
	}
	return exp.Add(-tokenLeeway)
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

/* ---------- MODELS ---------- */

func (c *Client) ListModels(ctx context.Context) ([]catalog.Model, error) {
	var out []catalog.Model
	if err := c.getJSON(ctx, "/api/models", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetModel(ctx context.Context, id catalog.EntityID) (*catalog.Model, error) {
	var out catalog.Model
	if err := c.getJSON(ctx, "/api/models/"+url.PathEscape(id.String()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateModel(ctx context.Context, m catalog.Model) (*catalog.Model, error) {
	var out catalog.Model
	if err := c.writeJSON(ctx, http.MethodPost, "/api/models", m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateModel(ctx context.Context, id catalog.EntityID, m catalog.Model) (*catalog.Model, error) {
	var out catalog.Model
	if err := c.writeJSON(ctx, http.MethodPut, "/api/models/"+url.PathEscape(id.String()), m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

/* ---------- CATEGORIES ---------- */

func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := c.getJSON(ctx, "/api/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, id catalog.EntityID) (*catalog.Category, error) {
	var out catalog.Category
	if err := c.getJSON(ctx, "/api/categories/"+url.PathEscape(id.String()), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCategory(ctx context.Context, cat catalog.Category) (*catalog.Category, error) {
	var out catalog.Category
	if err := c.writeJSON(ctx, http.MethodPost, "/api/categories", cat, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id catalog.EntityID, cat catalog.Category) (*catalog.Category, error) {
	var out catalog.Category
	if err := c.writeJSON(ctx, http.MethodPut, "/api/categories/"+url.PathEscape(id.String()), cat, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

/* ---------- PASS-THROUGH ---------- */

// ListEvents returns the backend's event records untouched.
func (c *Client) ListEvents(ctx context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.getJSON(ctx, "/api/events", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDealers returns the backend's dealer records untouched.
func (c *Client) ListDealers(ctx context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.getJSON(ctx, "/api/dealers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitContact(ctx context.Context, form ContactForm) error {
	body, err := json.Marshal(form)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/api/contact", "", "application/json", bytes.NewReader(body))
	return err
}

// Upload stores a file through the backend and returns the reference the
// backend assigned to it.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	token, err := c.Login(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := createFilePart(w, filename, contentType)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	raw, err := c.authorized(ctx, http.MethodPost, "/api/upload", token, w.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	return media.ExtractUploadRef(raw)
}

func createFilePart(w *multipart.Writer, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		return w.CreateFormFile("file", filename)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}

/* ---------- TRANSPORT ---------- */

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c.cache != nil {
		if cached, ok := c.cache.Get(path); ok {
			return decodeData(cached.([]byte), out)
		}
	}

	raw, err := c.do(ctx, http.MethodGet, path, "", "", nil)
	if err != nil {
		return err
	}
	if err := decodeData(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if c.cache != nil {
		c.cache.Set(path, raw, cache.DefaultExpiration)
	}
	return nil
}

func (c *Client) writeJSON(ctx context.Context, method, path string, in, out any) error {
	token, err := c.Login(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	raw, err := c.authorized(ctx, method, path, token, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeData(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// authorized performs a write and flushes cached reads on success. A 401
// drops the cached token so the next call logs in again.
func (c *Client) authorized(ctx context.Context, method, path, token, contentType string, body io.Reader) ([]byte, error) {
	raw, err := c.do(ctx, method, path, token, contentType, body)
	if err != nil {
		if StatusOf(err) == http.StatusUnauthorized {
			c.dropToken()
		}
		return nil, err
	}
	if c.cache != nil {
		c.cache.Flush()
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("backend_request_failed method=%s path=%s error=%q", method, path, err.Error())
		return nil, fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("backend_request_error method=%s path=%s status=%d latency=%s", method, path, resp.StatusCode, time.Since(start))
		return nil, &APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   truncate(strings.TrimSpace(string(raw)), maxErrorBody),
		}
	}
	return raw, nil
}

// decodeData accepts both a bare value and a {"data": value} envelope.
func decodeData(raw []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		data := bytes.TrimSpace(env.Data)
		if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
			return json.Unmarshal(data, out)
		}
	}
	return json.Unmarshal(raw, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
