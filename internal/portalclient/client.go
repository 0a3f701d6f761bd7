// Package portalclient talks to the portal API the way the browser does: a
// session cookie kept in a jar and JSON bodies.
package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"govportal/internal/autosave"
)

const (
	defaultTimeout    = 30 * time.Second
	SessionCookieName = "session"
)

// APIError is a non-2xx answer from the portal.
type APIError struct {
	Status      int
	Code        string   `json:"error"`
	Description string   `json:"error_description"`
	Missing     []string `json:"missing"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("portal: %d %s", e.Status, e.Code)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if len(e.Missing) > 0 {
		msg += " (missing " + strings.Join(e.Missing, ", ") + ")"
	}
	return msg
}

type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	Zip       *string `json:"zip"`
}

type SignupInput struct {
	Email     string  `json:"email" yaml:"email"`
	Password  string  `json:"password" yaml:"password"`
	FirstName string  `json:"firstName" yaml:"firstName"`
	LastName  string  `json:"lastName" yaml:"lastName"`
	Phone     string  `json:"phone" yaml:"phone"`
	Address   *string `json:"address,omitempty" yaml:"address"`
	City      *string `json:"city,omitempty" yaml:"city"`
	Zip       *string `json:"zip,omitempty" yaml:"zip"`
}

type UploadInput struct {
	ApplicationID string `json:"applicationId,omitempty"`
	Kind          string `json:"kind"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	SizeBytes     int64  `json:"sizeBytes"`
}

type Document struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId"`
	Kind          string `json:"kind"`
	FileName      string `json:"fileName"`
	Status        string `json:"status"`
}

type UploadTicket struct {
	Document  *Document `json:"document"`
	UploadURL string    `json:"uploadUrl"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Client is bound to one portal base URL and one session.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
	token  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithSessionToken resumes a session saved by an earlier process.
func WithSessionToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.token != "" {
		c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: SessionCookieName, Value: c.token, Path: "/"}})
	}
	return c, nil
}

// SessionToken returns the current session cookie value, or "" when signed out.
func (c *Client) SessionToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == SessionCookieName {
			return cookie.Value
		}
	}
	return ""
}

type authResponse struct {
	OK   bool  `json:"ok"`
	User *User `json:"user"`
}

func (c *Client) Signup(ctx context.Context, in SignupInput) (*User, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Me returns nil when the client has no valid session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// SaveDraft implements autosave.Saver.
func (c *Client) SaveDraft(ctx context.Context, step int, data map[string]any) error {
	body := map[string]any{"currentStep": step, "data": data}
	return c.do(ctx, http.MethodPost, "/api/application/draft", body, nil)
}

// LoadDraft implements autosave.Loader.
func (c *Client) LoadDraft(ctx context.Context) (*autosave.Draft, error) {
	var out struct {
		Draft *autosave.Draft `json:"draft"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/application/draft", nil, &out); err != nil {
		return nil, err
	}
	return out.Draft, nil
}

// Submit submits applicationID, or the latest draft when it is empty.
func (c *Client) Submit(ctx context.Context, applicationID string) (string, error) {
	body := map[string]string{}
	if applicationID != "" {
		body["applicationId"] = applicationID
	}
	var out struct {
		ApplicationID string `json:"applicationId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/application/submit", body, &out); err != nil {
		return "", err
	}
	return out.ApplicationID, nil
}

func (c *Client) RequestUpload(ctx context.Context, in UploadInput) (*UploadTicket, error) {
	var out UploadTicket
	if err := c.do(ctx, http.MethodPost, "/api/documents", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteUpload(ctx context.Context, documentID string) (*Document, error) {
	var out struct {
		Document *Document `json:"document"`
	}
	path := "/api/documents/" + url.PathEscape(documentID) + "/complete"
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Document, nil
}

// UploadFile requests a ticket, PUTs the file to the presigned URL and marks
// the document uploaded.
func (c *Client) UploadFile(ctx context.Context, applicationID, kind, path, contentType string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	ticket, err := c.RequestUpload(ctx, UploadInput{
		ApplicationID: applicationID,
		Kind:          kind,
		FileName:      info.Name(),
		ContentType:   contentType,
		SizeBytes:     info.Size(),
	})
	if err != nil {
		return nil, err
	}

	method := ticket.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, ticket.UploadURL, f)
	if err != nil {
		return nil, err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", info.Name(), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("uploading %s: storage answered %d", info.Name(), resp.StatusCode)
	}

	return c.CompleteUpload(ctx, ticket.Document.ID)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			c.logger.DebugContext(ctx, "undecodable error body", "path", path, "error", err)
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
