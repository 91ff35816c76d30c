package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/codefinder/internal/domain"
)

// DiscountCodeRepository stores candidates found for a search.
type DiscountCodeRepository interface {
	Create(ctx context.Context, code *domain.DiscountCode) error
	ListBySearch(ctx context.Context, searchID string) ([]domain.DiscountCode, error)
	ListVerifiedBySearch(ctx context.Context, searchID string) ([]domain.DiscountCode, error)
	MarkVerified(ctx context.Context, id string, verifiedAt time.Time) error
}

type discountCodeRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountCodeRepository builds repository.
func NewDiscountCodeRepository(pool *pgxpool.Pool) DiscountCodeRepository {
	return &discountCodeRepository{pool: pool}
}

const discountCodeColumns = `id, search_id, code, merchant_name, merchant_url, description,
               discount_amount, expiry_date, source, verified, verified_at, created_at`

func (r *discountCodeRepository) Create(ctx context.Context, code *domain.DiscountCode) error {
	const query = `
        INSERT INTO discount_codes (search_id, code, merchant_name, merchant_url, description,
            discount_amount, expiry_date, source, verified)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		code.SearchID,
		code.Code,
		code.MerchantName,
		code.MerchantURL,
		code.Description,
		code.DiscountAmount,
		code.ExpiryDate,
		code.Source,
	).Scan(&code.ID, &code.CreatedAt)
}

func (r *discountCodeRepository) ListBySearch(ctx context.Context, searchID string) ([]domain.DiscountCode, error) {
	query := `SELECT ` + discountCodeColumns + ` FROM discount_codes WHERE search_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, searchID)
}

func (r *discountCodeRepository) ListVerifiedBySearch(ctx context.Context, searchID string) ([]domain.DiscountCode, error) {
	query := `SELECT ` + discountCodeColumns + ` FROM discount_codes
        WHERE search_id=$1 AND verified=TRUE ORDER BY created_at ASC`
	return r.list(ctx, query, searchID)
}

// MarkVerified flips verified once; a second call finds no unverified row.
func (r *discountCodeRepository) MarkVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	const query = `
        UPDATE discount_codes SET verified=TRUE, verified_at=$1
        WHERE id=$2 AND verified=FALSE`
	return execOne(ctx, r.pool, query, verifiedAt, id)
}

func (r *discountCodeRepository) list(ctx context.Context, query string, args ...any) ([]domain.DiscountCode, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DiscountCode
	for rows.Next() {
		code, err := scanDiscountCode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *code)
	}
	return result, rows.Err()
}

func scanDiscountCode(row pgx.Row) (*domain.DiscountCode, error) {
	var code domain.DiscountCode
	if err := row.Scan(
		&code.ID,
		&code.SearchID,
		&code.Code,
		&code.MerchantName,
		&code.MerchantURL,
		&code.Description,
		&code.DiscountAmount,
		&code.ExpiryDate,
		&code.Source,
		&code.Verified,
		&code.VerifiedAt,
		&code.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &code, nil
}
