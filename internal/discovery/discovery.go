package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/codefinder/internal/domain"
)

const defaultSource = "AI search"

// Service turns a free-text query into candidate discount codes.
type Service struct {
	llm      LLMClient
	validate *validator.Validate
	logger   *zap.Logger
	timeout  time.Duration
}

// NewService wires the model client. A zero timeout leaves the caller's deadline in charge.
func NewService(llm LLMClient, logger *zap.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		llm:      llm,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
	}
}

const (
	maxTextLen   = 255
	maxAmountLen = 100
)

// rawCandidate is one model item. Only code and merchant name are required; any other
// field that is malformed is cleaned up or cleared without dropping the candidate.
type rawCandidate struct {
	Code           string  `json:"code" validate:"required"`
	MerchantName   string  `json:"merchantName" validate:"required"`
	MerchantURL    string  `json:"merchantUrl"`
	Description    string  `json:"description"`
	DiscountAmount string  `json:"discountAmount"`
	ExpiryDate     *string `json:"expiryDate"`
	Source         string  `json:"source"`
}

// Discover makes one model call. A failed call is returned as an error; a response
// that does not match the expected shape yields no candidates.
func (s *Service) Discover(ctx context.Context, query string) ([]domain.Candidate, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err := s.llm.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt(query)},
		},
		SchemaName: "discount_codes",
		Schema:     codesSchema(),
	})
	if err != nil {
		// Transport failures fail the search; only bad payloads degrade to zero candidates.
		return nil, fmt.Errorf("discovery model call: %w", err)
	}

	candidates := s.parse(content)
	s.logger.Info("discovery finished", zap.String("query", query), zap.Int("candidates", len(candidates)))
	return candidates, nil
}

func (s *Service) parse(content string) []domain.Candidate {
	items, ok := decodeItems(content)
	if !ok {
		s.logger.Warn("discovery response not in expected format", zap.Int("length", len(content)))
		return nil
	}

	candidates := make([]domain.Candidate, 0, len(items))
	for i, item := range items {
		item.Code = strings.TrimSpace(item.Code)
		item.MerchantName = strings.TrimSpace(item.MerchantName)
		if err := s.validate.Struct(item); err != nil {
			s.logger.Debug("dropping malformed candidate", zap.Int("index", i), zap.Error(err))
			continue
		}
		source := clip(strings.TrimSpace(item.Source), maxTextLen)
		if source == "" {
			source = defaultSource
		}
		candidates = append(candidates, domain.Candidate{
			Code:           clip(item.Code, maxTextLen),
			MerchantName:   clip(item.MerchantName, maxTextLen),
			MerchantURL:    normalizeURL(item.MerchantURL),
			Description:    strings.TrimSpace(item.Description),
			DiscountAmount: clip(strings.TrimSpace(item.DiscountAmount), maxAmountLen),
			ExpiryDate:     parseExpiry(item.ExpiryDate),
			Source:         source,
		})
	}
	return candidates
}

// normalizeURL adds https to scheme-less values such as "acme.com/checkout". Anything
// still unusable is left for verification to report.
func normalizeURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || strings.Contains(value, "://") {
		return value
	}
	return "https://" + strings.TrimPrefix(value, "//")
}

func clip(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

// decodeItems accepts a bare array or an object carrying a "codes" array.
func decodeItems(content string) ([]rawCandidate, bool) {
	body := bytes.TrimSpace([]byte(stripFence(content)))
	if len(body) == 0 {
		return nil, false
	}

	if body[0] == '[' {
		var items []rawCandidate
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, false
		}
		return items, true
	}

	var wrapped struct {
		Codes *[]rawCandidate `json:"codes"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Codes == nil {
		return nil, false
	}
	return *wrapped.Codes, true
}

func stripFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	return strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
}

var expiryLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "01/02/2006"}

// parseExpiry returns nil for absent or unparseable dates; the rest of the candidate survives.
func parseExpiry(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" || strings.EqualFold(value, "null") {
		return nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
