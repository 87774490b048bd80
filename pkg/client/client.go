package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/moderation/model"
	"github.com/andmorefine/clay-community-site/internal/moderation/service"
	"github.com/andmorefine/clay-community-site/internal/spam"
	"github.com/andmorefine/clay-community-site/internal/users"
)

// Wire types shared with the server.
type (
	Report               = model.Report
	Appeal               = model.Appeal
	ModerationAction     = model.ModerationAction
	Resolution           = model.Resolution
	AppealResolution     = model.AppealResolution
	Overview             = model.Overview
	ResolveReportRequest = model.ResolveReportRequest
	ContentResult        = spam.ContentResult
	Verdict              = service.Verdict
	AuditEntry           = auditlog.Entry
	User                 = users.User
)

// UserHistory is a user's moderation record: actions taken against them and
// reports filed on their profile.
type UserHistory struct {
	Actions []*ModerationAction `json:"actions"`
	Reports []*Report           `json:"reports"`
}

// AuditStatus is the result of verifying the audit chain.
type AuditStatus struct {
	Valid   bool   `json:"valid"`
	Entries int    `json:"entries"`
	Error   string `json:"error,omitempty"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code back to the moderation error it came from.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusForbidden:
		return model.ErrForbidden
	case http.StatusConflict:
		return model.ErrConflict
	case http.StatusUnprocessableEntity:
		return &model.ErrValidation{Msg: e.Message}
	case http.StatusBadRequest:
		return model.ErrInvalidAction
	}
	return nil
}

// Client talks to the moderation API.
type Client struct {
	base       string
	httpClient *http.Client

	mu          sync.Mutex
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a previously issued user token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a Client for the server at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ── Scoring ──────────────────────────────────────────────────────────────────

// ScoreText runs the content scorer on text.
func (c *Client) ScoreText(ctx context.Context, text string) (*ContentResult, error) {
	var out struct {
		Content *ContentResult `json:"content"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/moderation/score", map[string]any{"text": text}, &out); err != nil {
		return nil, err
	}
	return out.Content, nil
}

// Verdict computes the full verdict for text as if userID had written it.
func (c *Client) Verdict(ctx context.Context, text string, userID uuid.UUID) (*Verdict, error) {
	var out Verdict
	body := map[string]any{"text": text, "user_id": userID}
	if err := c.call(ctx, http.MethodPost, "/api/v1/moderation/score", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Reports ──────────────────────────────────────────────────────────────────

// ListReports lists reports, optionally filtered by a comma-separated status.
func (c *Client) ListReports(ctx context.Context, status string, limit int) ([]*Report, error) {
	var out struct {
		Reports []*Report `json:"reports"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/reports"+listQuery(status, limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

// GetReport fetches one report.
func (c *Client) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	var out struct {
		Report *Report `json:"report"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/reports/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}

// ResolveReport applies a moderator action to a report.
func (c *Client) ResolveReport(ctx context.Context, id uuid.UUID, req *ResolveReportRequest) (*Resolution, error) {
	var out Resolution
	if err := c.call(ctx, http.MethodPatch, "/api/v1/admin/reports/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Appeals ──────────────────────────────────────────────────────────────────

// ListAppeals lists appeals, optionally filtered by a comma-separated status.
func (c *Client) ListAppeals(ctx context.Context, status string, limit int) ([]*Appeal, error) {
	var out struct {
		Appeals []*Appeal `json:"appeals"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/appeals"+listQuery(status, limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Appeals, nil
}

// ResolveAppeal approves or denies an appeal.
func (c *Client) ResolveAppeal(ctx context.Context, id uuid.UUID, decision string) (*AppealResolution, error) {
	var out AppealResolution
	body := map[string]string{"decision": decision}
	if err := c.call(ctx, http.MethodPatch, "/api/v1/admin/appeals/"+id.String(), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

// Suspend suspends a user for a duration code such as "1_week" or "permanent".
func (c *Client) Suspend(ctx context.Context, userID uuid.UUID, duration, reason string) (*ModerationAction, error) {
	body := map[string]string{"duration": duration, "reason": reason}
	return c.userAction(ctx, userID, "suspend", body)
}

// Unsuspend lifts a user's suspension.
func (c *Client) Unsuspend(ctx context.Context, userID uuid.UUID) (*ModerationAction, error) {
	return c.userAction(ctx, userID, "unsuspend", nil)
}

// Warn records a warning against a user.
func (c *Client) Warn(ctx context.Context, userID uuid.UUID, reason string) (*ModerationAction, error) {
	return c.userAction(ctx, userID, "warn", map[string]string{"reason": reason})
}

// ListUsers lists accounts. filter is "", "suspended" or "warned".
func (c *Client) ListUsers(ctx context.Context, filter string, limit int) ([]*User, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/v1/admin/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Users []*User `json:"users"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// UserActions returns a user's moderation history.
func (c *Client) UserActions(ctx context.Context, userID uuid.UUID) (*UserHistory, error) {
	var out UserHistory
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/users/"+userID.String()+"/actions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) userAction(ctx context.Context, userID uuid.UUID, verb string, body any) (*ModerationAction, error) {
	var out struct {
		Action *ModerationAction `json:"action"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/admin/users/"+userID.String()+"/"+verb, body, &out); err != nil {
		return nil, err
	}
	return out.Action, nil
}

// ── Dashboard ────────────────────────────────────────────────────────────────

// Overview fetches the moderation dashboard.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/overview", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyAudit asks the server to verify the audit chain.
func (c *Client) VerifyAudit(ctx context.Context) (*AuditStatus, error) {
	var out AuditStatus
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/audit/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Transport ────────────────────────────────────────────────────────────────

func (c *Client) call(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if respBody == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearerToken
}

func listQuery(status string, limit int) string {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
