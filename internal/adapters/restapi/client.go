package restapi

// Package restapi implements the account backend port over its JSON REST API.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
	apperrors "github.com/serm-lab/admin-console/internal/errors"
	"github.com/serm-lab/admin-console/internal/ports"
)

// Account endpoint paths relative to the API base URL.
const (
	PathLogin              = "/account/login"
	PathMe                 = "/account/me"
	PathLogout             = "/account/logout"
	PathRegister           = "/account/register"
	PathActivate           = "/account/activate"
	PathStartResetPassword = "/account/start-reset-password"
	PathResetPassword      = "/account/reset-password"
)

// DefaultDetailPath locates the human readable message in backend error bodies.
const DefaultDetailPath = "detail"

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 64 << 10

// Config captures the backend client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// DetailPath is a JMESPath expression applied to JSON error bodies.
	DetailPath string
	// Client overrides the underlying HTTP client (tests, custom transports).
	Client *http.Client
	Logger *slog.Logger
}

// Client talks to the account backend. Safe for concurrent use.
type Client struct {
	base       *url.URL
	detailPath string
	client     *http.Client
	logger     *slog.Logger
}

var _ ports.AccountAPI = (*Client)(nil)

// NewClient builds a backend client. BaseURL must be an absolute http(s) URL.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("api base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("api base url must be absolute http(s): %q", raw)
	}

	detailPath := strings.TrimSpace(cfg.DetailPath)
	if detailPath == "" {
		detailPath = DefaultDetailPath
	}
	if _, compileErr := jmespath.Compile(detailPath); compileErr != nil {
		return nil, fmt.Errorf("compile detail path %q: %w", detailPath, compileErr)
	}

	hc := cfg.Client
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: base, detailPath: detailPath, client: hc, logger: logger}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Grant, error) {
	var grant domainauth.Grant
	err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   PathLogin,
		body:   loginRequest(creds),
		out:    &grant,
	})
	return grant, err
}

func (c *Client) Me(ctx context.Context, token string) (domainauth.User, error) {
	if token == "" {
		return domainauth.User{}, apperrors.InvalidCredential("no credential")
	}
	var user domainauth.User
	err := c.do(ctx, call{
		op:     "me",
		method: http.MethodGet,
		path:   PathMe,
		token:  token,
		out:    &user,
	})
	return user, err
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, call{
		op:     "logout",
		method: http.MethodPost,
		path:   PathLogout,
		token:  token,
	})
}

func (c *Client) StartResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, call{
		op:     "start_reset_password",
		method: http.MethodPost,
		path:   PathStartResetPassword,
		body:   emailRequest{Email: email},
	})
}

func (c *Client) ResetPassword(ctx context.Context, code, password string) (domainauth.Grant, error) {
	var grant domainauth.Grant
	err := c.do(ctx, call{
		op:     "reset_password",
		method: http.MethodPost,
		path:   PathResetPassword,
		body:   resetPasswordRequest{Code: code, Password: password},
		out:    &grant,
	})
	return grant, err
}

func (c *Client) Register(ctx context.Context, creds domainauth.Credentials) error {
	return c.do(ctx, call{
		op:     "register",
		method: http.MethodPost,
		path:   PathRegister,
		body:   loginRequest(creds),
	})
}

func (c *Client) Activate(ctx context.Context, code string) (domainauth.Grant, error) {
	var grant domainauth.Grant
	err := c.do(ctx, call{
		op:     "activate",
		method: http.MethodPost,
		path:   PathActivate,
		body:   codeRequest{Code: code},
		out:    &grant,
	})
	return grant, err
}

// call describes one backend round trip.
type call struct {
	op     string
	method string
	path   string
	token  string
	body   any
	out    any
}

func (c *Client) do(ctx context.Context, in call) error {
	req, err := c.newRequest(ctx, in)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, in.op+": build request")
	}

	start := time.Now()
	resp, err := c.httpClient(in.token).Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "account api request failed",
			"op", in.op, "request_id", req.Header.Get(RequestIDHeader), "error", err)
		return transportError(in.op, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.DebugContext(ctx, "close account api response", "op", in.op, "error", closeErr)
		}
	}()

	c.logger.DebugContext(ctx, "account api request",
		"op", in.op,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(RequestIDHeader),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(in.op, resp)
	}

	if in.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(in.out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnknown, in.op+": decode response")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, in call) (*http.Request, error) {
	endpoint := c.base.JoinPath(in.path)

	var body io.Reader
	if in.body != nil {
		buf, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// httpClient returns the base client, or one that attaches token as a bearer credential.
func (c *Client) httpClient(token string) *http.Client {
	if token == "" {
		return c.client
	}
	return &http.Client{
		Timeout:       c.client.Timeout,
		Jar:           c.client.Jar,
		CheckRedirect: c.client.CheckRedirect,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.client.Transport,
		},
	}
}

func (c *Client) errorFromResponse(op string, resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &apperrors.AppError{
			Code:    apperrors.ErrCodeUnknown,
			Message: op + ": read error response",
			Cause:   err,
			Status:  resp.StatusCode,
		}
	}

	detail := c.extractDetail(raw)
	appErr := Classify(op, resp.StatusCode, detail)
	if appErr.Code == apperrors.ErrCodeUnknown && detail == "" {
		appErr.Message = fmt.Sprintf("%s: unexpected status %s", op, resp.Status)
	}
	return appErr
}

// extractDetail evaluates the detail path against a JSON body. Non-JSON
// bodies yield their trimmed text.
func (c *Client) extractDetail(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return trimmed
	}
	v, err := jmespath.Search(c.detailPath, data)
	if err != nil || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}

func transportError(op string, err error) error {
	code := apperrors.ErrCodeUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = apperrors.ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		code = apperrors.ErrCodeCanceled
	default:
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			code = apperrors.ErrCodeTimeout
		}
	}
	return apperrors.Wrap(err, code, op+": request failed")
}
