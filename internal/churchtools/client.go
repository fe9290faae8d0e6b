// Package churchtools uploads generated decks to a ChurchTools file store,
// replacing the remote copies of files that already exist there.
package churchtools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/internal/logging"
	"github.com/FocuswithJustin/PsalmSlides/internal/odp"
)

// Environment variables holding the login credentials.
const (
	EnvUser     = "CHURCHTOOLS_USER"
	EnvPassword = "CHURCHTOOLS_PASSWORD"
)

// Defaults for the congregation's wiki file store.
const (
	DefaultBaseURL    = "https://feg-guemligen.church.tools/api"
	DefaultDomainType = "wiki_39"
	DefaultDomainID   = "a879e45b-192e-494f-9724-7b83ac03deb3"
	DefaultTimeout    = 60 * time.Second
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 500

// File is a remote file entry.
type File struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// HTTPError represents an unexpected HTTP response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP error: %s", e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += " | response: " + e.Body
	}
	return msg
}

// IsUnauthorized returns true for a 401 response.
func (e *HTTPError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	DomainType string
	DomainID   string
	Username   string
	Password   string
	Timeout    time.Duration

	// RequestsPerSecond limits API calls; zero disables the limit.
	RequestsPerSecond float64

	Transport http.RoundTripper
}

// Client talks to the ChurchTools REST API with a cookie session.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	opts       Options
}

// NewClient returns a client, filling unset options with defaults.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.DomainType == "" {
		opts.DomainType = DefaultDomainType
	}
	if opts.DomainID == "" {
		opts.DomainID = DefaultDomainID
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Jar:       jar,
			Transport: logging.NewTransport(opts.Transport),
		},
		limiter: limiter,
		opts:    opts,
	}, nil
}

func (c *Client) filesURL() string {
	return fmt.Sprintf("%s/files/%s/%s", c.opts.BaseURL, c.opts.DomainType, c.opts.DomainID)
}

// Login starts a session with the configured credentials.
func (c *Client) Login(ctx context.Context) error {
	if c.opts.Username == "" || c.opts.Password == "" {
		return errors.NewValidation("credentials", fmt.Sprintf("set %s and %s", EnvUser, EnvPassword))
	}

	body, err := json.Marshal(map[string]string{
		"username": c.opts.Username,
		"password": c.opts.Password,
	})
	if err != nil {
		return errors.Wrap(err, "encode login")
	}

	resp, err := c.send(ctx, http.MethodPost, c.opts.BaseURL+"/login", body, "application/json")
	if err != nil {
		return errors.Wrap(err, "login")
	}
	resp.Body.Close()
	return nil
}

// Files lists the files of the configured domain.
func (c *Client) Files(ctx context.Context) ([]File, error) {
	resp, err := c.do(ctx, http.MethodGet, c.filesURL(), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Data []File `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.Wrap(err, "decode file list")
	}
	return envelope.Data, nil
}

// Delete removes a remote file.
func (c *Client) Delete(ctx context.Context, id int) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/files/%d", c.opts.BaseURL, id), nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Upload stores content under name in the configured domain.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[]"; filename=%q`, name))
	h.Set("Content-Type", contentType(name))
	part, err := mw.CreatePart(h)
	if err != nil {
		return errors.Wrap(err, "create upload part")
	}
	if _, err := io.Copy(part, content); err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	for _, field := range [][2]string{
		{"image_options", "{}"},
		{"max_height", ""},
		{"max_width", ""},
	} {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return errors.Wrap(err, "write upload field")
		}
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "finish upload body")
	}

	resp, err := c.do(ctx, http.MethodPost, c.filesURL(), buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do sends a request and, on 401, logs in again and retries once.
func (c *Client) do(ctx context.Context, method, url string, body []byte, ctype string) (*http.Response, error) {
	resp, err := c.send(ctx, method, url, body, ctype)
	var he *HTTPError
	if err == nil || !errors.As(err, &he) || !he.IsUnauthorized() {
		return resp, err
	}

	logging.WarnContext(ctx, "session expired, logging in again", "method", method, "url", url)
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, method, url, body, ctype)
}

func (c *Client) send(ctx context.Context, method, url string, body []byte, ctype string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "executing request")
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	return resp, nil
}

func contentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".odp":
		return odp.MimeType
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	default:
		return "application/octet-stream"
	}
}
