package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/content"
	"github.com/andmorefine/clay-community-site/internal/identity"
	"github.com/andmorefine/clay-community-site/internal/moderation/handler"
	"github.com/andmorefine/clay-community-site/internal/moderation/repository"
	"github.com/andmorefine/clay-community-site/internal/moderation/service"
	"github.com/andmorefine/clay-community-site/internal/spam"
	"github.com/andmorefine/clay-community-site/internal/users"
)

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	router  *gin.Engine
	users   *users.MemoryRepository
	content *content.MemoryRepository
	actions *service.ActionService

	moderator, author, stranger *users.User
	modToken, authorToken       string
	strangerToken               string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	s := &testServer{users: users.NewMemoryRepository(), content: content.NewMemoryRepository()}
	system := &users.User{ID: uuid.New(), Email: "system@clay.local", Username: "system", Role: users.RoleAdmin}
	s.moderator = &users.User{Email: "mod@clay.local", Username: "mod", Role: users.RoleModerator}
	s.author = &users.User{Email: "potter@clay.local", Username: "potter"}
	s.stranger = &users.User{Email: "x@clay.local", Username: "stranger"}
	for _, u := range []*users.User{system, s.moderator, s.author, s.stranger} {
		require.NoError(t, s.users.Create(ctx, u))
	}

	tokens, err := identity.NewUserTokenIssuer("test-secret", "clay-test", time.Hour)
	require.NoError(t, err)
	issue := func(u *users.User) string {
		tok, err := tokens.Issue(u.ID.String(), u.Username, string(u.Role))
		require.NoError(t, err)
		return tok
	}
	s.modToken, s.authorToken, s.strangerToken = issue(s.moderator), issue(s.author), issue(s.stranger)

	reports := repository.NewMemoryReports()
	ledger := auditlog.NewMemoryLog()
	engine, err := service.NewDecisionEngine(reports, s.users, spam.NewBehaviorScorer(nil, logger), system.ID, logger)
	require.NoError(t, err)
	targets := service.NewTargetResolver(s.users, s.content)
	s.actions = service.NewActionService(repository.NewMemoryActions(), s.users, logger)
	s.actions.SetAuditLog(ledger)
	reportSvc := service.NewReportService(reports, s.users, targets, s.actions, logger)
	reportSvc.SetAuditLog(ledger)
	appealSvc := service.NewAppealService(repository.NewMemoryAppeals(), s.users, targets, s.actions, logger)
	overview := service.NewOverviewService(reportSvc, s.actions, appealSvc)

	s.router = gin.New()
	api := s.router.Group("/api/v1")
	user := api.Group("", identity.RequireUser(tokens))
	admin := api.Group("/admin", identity.RequireModerator(tokens))
	mod := api.Group("", identity.RequireModerator(tokens))

	handler.NewReportHandler(reportSvc, logger).Register(user, admin)
	handler.NewAppealHandler(appealSvc, logger).Register(user, admin)
	handler.NewAdminHandler(overview, s.actions, reportSvc, s.users, ledger, logger).Register(admin)
	handler.NewScoreHandler(engine, s.users, logger).Register(mod)
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) post(t *testing.T) *content.Post {
	t.Helper()
	p := &content.Post{UserID: s.author.ID, Title: "mug", Description: "cheap mugs buy now", Published: true}
	require.NoError(t, s.content.CreatePost(context.Background(), p))
	return p
}

func (s *testServer) report(t *testing.T, p *content.Post) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/reports", s.strangerToken, map[string]any{
		"target_type": "Post", "target_id": p.ID, "reason": "spam", "description": "selling mugs",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["report"].(map[string]any)["id"].(string)
}

func TestCreateReport(t *testing.T) {
	s := newTestServer(t)
	p := s.post(t)
	s.report(t, p)

	cases := []struct {
		name  string
		token string
		body  map[string]any
		want  int
	}{
		{"no token", "", map[string]any{}, http.StatusUnauthorized},
		{"bad json", s.authorToken, map[string]any{"reason": "x"}, http.StatusBadRequest},
		{"unknown kind", s.authorToken, map[string]any{
			"target_type": "like", "target_id": p.ID, "reason": "spam", "description": "d",
		}, http.StatusUnprocessableEntity},
		{"missing target", s.authorToken, map[string]any{
			"target_type": "comment", "target_id": uuid.New(), "reason": "spam", "description": "d",
		}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/reports", tc.token, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestAdminRoutesRequireModerator(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/admin/reports", s.authorToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResolveReport(t *testing.T) {
	s := newTestServer(t)
	p := s.post(t)
	id := s.report(t, p)

	w := s.do(t, http.MethodGet, "/api/v1/admin/reports?status=pending", s.modToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = s.do(t, http.MethodPatch, "/api/v1/admin/reports/"+id, s.modToken, map[string]any{"action": "explode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/reports/"+id, s.modToken, map[string]any{
		"action": "approve", "content_action": "remove",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Report resolved and content removed", body["message"])
	assert.Equal(t, "content_removal", body["action"].(map[string]any)["action_type"])

	got, err := s.content.GetPost(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, got.Published)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/reports/"+id, s.modToken, map[string]any{"action": "dismiss"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/reports/"+uuid.NewString(), s.modToken, map[string]any{"action": "dismiss"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/admin/reports?status=bogus", s.modToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAppealFlow(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/admin/users/"+s.author.ID.String()+"/suspend", s.modToken, map[string]any{
		"duration": "1_week", "reason": "spam",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	actionID := decode(t, w)["action"].(map[string]any)["id"].(string)

	w = s.do(t, http.MethodPost, "/api/v1/appeals", s.strangerToken, map[string]any{
		"moderation_action_id": actionID, "reason": "not mine",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/appeals", s.authorToken, map[string]any{
		"moderation_action_id": actionID, "reason": "it was a misunderstanding",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	appealID := decode(t, w)["appeal"].(map[string]any)["id"].(string)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/appeals/"+appealID, s.strangerToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/appeals/"+appealID, s.authorToken, nil).Code)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/appeals/"+appealID, s.modToken, map[string]any{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/appeals/"+appealID, s.modToken, map[string]any{"decision": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Appeal approved and action reversed", body["message"])
	assert.Equal(t, "Suspension lifted", body["action"].(map[string]any)["reason"])

	u, err := s.users.GetByID(context.Background(), s.author.ID)
	require.NoError(t, err)
	assert.False(t, u.Suspended)

	w = s.do(t, http.MethodPatch, "/api/v1/admin/appeals/"+appealID, s.modToken, map[string]any{"decision": "deny"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScore(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/moderation/score", s.modToken, map[string]any{
		"text": "Buy now! Click here for free money!",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode(t, w)["content"].(map[string]any)
	assert.Equal(t, true, res["spam"])

	w = s.do(t, http.MethodPost, "/api/v1/moderation/score", s.modToken, map[string]any{
		"text": "casino lottery viagra", "user_id": s.author.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	v := decode(t, w)
	assert.Equal(t, "flagged", v["action"])
	assert.Nil(t, v["report_id"])

	w = s.do(t, http.MethodPost, "/api/v1/moderation/score", s.authorToken, map[string]any{"text": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOverviewAndAudit(t *testing.T) {
	s := newTestServer(t)
	s.report(t, s.post(t))
	w := s.do(t, http.MethodPost, "/api/v1/admin/users/"+s.author.ID.String()+"/warn", s.modToken, map[string]any{"reason": "tone"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/admin/overview", s.modToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ov := decode(t, w)
	assert.Len(t, ov["pending_reports"], 1)
	assert.Len(t, ov["recent_actions"], 1)

	w = s.do(t, http.MethodGet, "/api/v1/admin/audit/verify", s.modToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode(t, w)
	assert.Equal(t, true, v["valid"])
	assert.EqualValues(t, 2, v["entries"])

	w = s.do(t, http.MethodGet, "/api/v1/admin/users/"+s.author.ID.String()+"/actions", s.modToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])
}

func TestListUsers_filters(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/admin/users/"+s.author.ID.String()+"/warn", s.modToken, map[string]any{"reason": "tone"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/v1/admin/users/"+s.stranger.ID.String()+"/suspend", s.modToken, map[string]any{"duration": "1_day", "reason": "spam"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	usernames := func(filter string) []string {
		w := s.do(t, http.MethodGet, "/api/v1/admin/users?filter="+filter, s.modToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []string
		for _, u := range decode(t, w)["users"].([]any) {
			out = append(out, u.(map[string]any)["username"].(string))
		}
		return out
	}
	assert.Equal(t, []string{"potter"}, usernames("warned"))
	assert.Equal(t, []string{"stranger"}, usernames("suspended"))
	assert.Len(t, usernames(""), 4)

	w = s.do(t, http.MethodGet, "/api/v1/admin/users?filter=banned", s.modToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/admin/users", s.authorToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListUserActions_includesReportsAgainstUser(t *testing.T) {
	s := newTestServer(t)
	s.report(t, s.post(t))
	w := s.do(t, http.MethodPost, "/api/v1/reports", s.strangerToken, map[string]any{
		"target_type": "User", "target_id": s.author.ID, "reason": "harassment", "description": "rude profile",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	for _, path := range []string{"/warn", "/suspend"} {
		w = s.do(t, http.MethodPost, "/api/v1/admin/users/"+s.author.ID.String()+path, s.modToken,
			map[string]any{"duration": "3_days", "reason": "rude"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/admin/users/"+s.author.ID.String()+"/actions", s.modToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 2, out["count"])
	reports := out["reports"].([]any)
	require.Len(t, reports, 1, "only the profile report, not the post report")
	assert.Equal(t, "harassment", reports[0].(map[string]any)["reason"])

	w = s.do(t, http.MethodGet, "/api/v1/admin/users/"+s.author.ID.String()+"/actions?type=warning", s.modToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	actions := decode(t, w)["actions"].([]any)
	require.Len(t, actions, 1)
	assert.Equal(t, "warning", actions[0].(map[string]any)["action_type"])

	w = s.do(t, http.MethodGet, "/api/v1/admin/users/"+s.author.ID.String()+"/actions?type=ban", s.modToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := gin.New()
	r.Use(handler.RateLimiter(ctx, 1, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
