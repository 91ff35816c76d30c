package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/codefinder/internal/api/dto"
	"github.com/spec-kit/codefinder/internal/auth"
	"github.com/spec-kit/codefinder/internal/domain"
	"github.com/spec-kit/codefinder/internal/service"
	apperrors "github.com/spec-kit/codefinder/pkg/util"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// SearchAPI is what the search endpoints need from the search service.
type SearchAPI interface {
	Submit(ctx context.Context, userID, query string) (*service.SubmitResult, error)
	GetResults(ctx context.Context, userID, searchID string) (*domain.Search, []domain.DiscountCode, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]domain.Search, error)
	GetLimit(ctx context.Context, userID string) (service.QuotaStatus, error)
}

// SearchesHandler manages discount code searches.
type SearchesHandler struct {
	searches SearchAPI
}

// NewSearchesHandler constructs handler.
func NewSearchesHandler(searches SearchAPI) *SearchesHandler {
	return &SearchesHandler{searches: searches}
}

// Create POST /searches.
func (h *SearchesHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.searches.Submit(c.UserContext(), user.ID, req.Query)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SearchCreatedResponse{
		Search:            dto.NewSearchResponse(result.Search),
		RemainingSearches: result.Remaining,
		DailyLimit:        result.Limit,
	}})
}

// List GET /searches.
func (h *SearchesHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	searches, err := h.searches.ListHistory(c.UserContext(), user.ID, limit)
	if err != nil {
		return err
	}
	items := make([]dto.SearchResponse, 0, len(searches))
	for i := range searches {
		items = append(items, dto.NewSearchResponse(&searches[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Limit GET /searches/limit.
func (h *SearchesHandler) Limit(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	status, err := h.searches.GetLimit(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SearchLimitResponse{
		CanSearch:         status.Allowed,
		RemainingSearches: status.Remaining,
		DailyLimit:        status.Limit,
	}})
}

// Results GET /searches/:id/results.
func (h *SearchesHandler) Results(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	search, codes, err := h.searches.GetResults(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.DiscountCodeResponse, 0, len(codes))
	for i := range codes {
		items = append(items, dto.NewDiscountCodeResponse(&codes[i]))
	}
	return c.JSON(fiber.Map{"data": dto.SearchResultsResponse{
		Search: dto.NewSearchResponse(search),
		Codes:  items,
	}})
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}
