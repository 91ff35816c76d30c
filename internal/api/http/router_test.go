package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/api/http/handlers"
	"github.com/spec-kit/codefinder/internal/auth"
	"github.com/spec-kit/codefinder/internal/domain"
	"github.com/spec-kit/codefinder/internal/observability"
	"github.com/spec-kit/codefinder/internal/service"
	apperrors "github.com/spec-kit/codefinder/pkg/util"
)

type fakeSearches struct {
	submitted []string
	submitErr error
	results   map[string][]domain.DiscountCode
}

func (f *fakeSearches) Submit(_ context.Context, userID, query string) (*service.SubmitResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, query)
	return &service.SubmitResult{
		Search:    &domain.Search{ID: "s1", UserID: userID, Query: query, Status: domain.SearchStatusPending, CreatedAt: time.Now()},
		Remaining: 14,
		Limit:     15,
	}, nil
}

func (f *fakeSearches) GetResults(_ context.Context, _, searchID string) (*domain.Search, []domain.DiscountCode, error) {
	codes, ok := f.results[searchID]
	if !ok {
		return nil, nil, apperrors.NewNotFound("search", nil)
	}
	return &domain.Search{ID: searchID, Status: domain.SearchStatusCompleted}, codes, nil
}

func (f *fakeSearches) ListHistory(context.Context, string, int) ([]domain.Search, error) {
	return []domain.Search{{ID: "s1", Query: "shoes"}}, nil
}

func (f *fakeSearches) GetLimit(context.Context, string) (service.QuotaStatus, error) {
	return service.QuotaStatus{Allowed: true, Remaining: 12, Limit: 15}, nil
}

type fakeInbox struct {
	read []string
}

func (f *fakeInbox) ListMessages(context.Context, string) ([]domain.InboxEntry, error) {
	return []domain.InboxEntry{{Message: domain.InboxMessage{ID: "m1"}, Query: "shoes", Code: domain.DiscountCode{Code: "SAVE10"}}}, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, _, messageID string) error {
	if messageID != "m1" {
		return apperrors.NewNotFound("inbox message", nil)
	}
	f.read = append(f.read, messageID)
	return nil
}

type pingerFunc func(context.Context) error

func (p pingerFunc) Ping(ctx context.Context) error { return p(ctx) }

func newTestApp(searches *fakeSearches, inbox *fakeInbox, redisErr error) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), time.Second)

	fakeAuth := func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return apperrors.NewUnauthorized("missing authorization header")
		}
		auth.WithPrincipal(c, &auth.Principal{SubjectType: domain.SubjectTypeUser, User: &domain.User{ID: "u1"}})
		return c.Next()
	}

	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("codefinder", "test", map[string]handlers.Pinger{
			"postgres": pingerFunc(func(context.Context) error { return nil }),
			"redis":    pingerFunc(func(context.Context) error { return redisErr }),
		}),
		Users:          handlers.NewUsersHandler(nil),
		Searches:       handlers.NewSearchesHandler(searches),
		Inbox:          handlers.NewInboxHandler(inbox),
		AuthMiddleware: fakeAuth,
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestCreateSearch(t *testing.T) {
	searches := &fakeSearches{}
	app := newTestApp(searches, &fakeInbox{}, nil)

	status, body := doRequest(t, app, fiber.MethodPost, "/searches", `{"query":"running shoes"}`)
	assert.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 14, data["remaining_searches"])
	assert.Equal(t, "pending", data["search"].(map[string]any)["status"])
	assert.Equal(t, []string{"running shoes"}, searches.submitted)
}

func TestCreateSearchQuotaExhausted(t *testing.T) {
	searches := &fakeSearches{submitErr: apperrors.NewSearchLimitReached(15, true)}
	app := newTestApp(searches, &fakeInbox{}, nil)

	status, body := doRequest(t, app, fiber.MethodPost, "/searches", `{"query":"shoes"}`)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "SEARCH_LIMIT_REACHED", errBody["code"])
	assert.Contains(t, errBody["message"], "Upgrade")
}

func TestSearchResultsAndLimit(t *testing.T) {
	searches := &fakeSearches{results: map[string][]domain.DiscountCode{
		"s1": {{ID: "c1", Code: "SAVE10", MerchantName: "Shop", Verified: true}},
	}}
	app := newTestApp(searches, &fakeInbox{}, nil)

	status, body := doRequest(t, app, fiber.MethodGet, "/searches/s1/results", "")
	assert.Equal(t, fiber.StatusOK, status)
	codes := body["data"].(map[string]any)["codes"].([]any)
	require.Len(t, codes, 1)
	assert.Equal(t, "SAVE10", codes[0].(map[string]any)["code"])

	status, body = doRequest(t, app, fiber.MethodGet, "/searches/missing/results", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	status, body = doRequest(t, app, fiber.MethodGet, "/searches/limit", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["can_search"])
	assert.EqualValues(t, 15, body["data"].(map[string]any)["daily_limit"])
}

func TestInboxEndpoints(t *testing.T) {
	inbox := &fakeInbox{}
	app := newTestApp(&fakeSearches{}, inbox, nil)

	status, body := doRequest(t, app, fiber.MethodGet, "/inbox", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"].([]any), 1)

	status, _ = doRequest(t, app, fiber.MethodPost, "/inbox/m1/read", "")
	assert.Equal(t, fiber.StatusNoContent, status)
	assert.Equal(t, []string{"m1"}, inbox.read)

	status, _ = doRequest(t, app, fiber.MethodPost, "/inbox/other/read", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	app := newTestApp(&fakeSearches{}, &fakeInbox{}, nil)
	req := httptest.NewRequest(fiber.MethodGet, "/searches", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestReadiness(t *testing.T) {
	status, _ := doRequest(t, newTestApp(&fakeSearches{}, &fakeInbox{}, nil), fiber.MethodGet, "/health/ready", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body := doRequest(t, newTestApp(&fakeSearches{}, &fakeInbox{}, errors.New("connection refused")), fiber.MethodGet, "/health/ready", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.Equal(t, "connection refused", details["redis"])
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	status, body := doRequest(t, newTestApp(&fakeSearches{}, &fakeInbox{}, nil), fiber.MethodGet, "/nope", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}
