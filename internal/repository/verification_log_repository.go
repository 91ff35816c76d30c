package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/codefinder/internal/domain"
)

// VerificationLogRepository stores append-only verification attempts.
type VerificationLogRepository interface {
	Create(ctx context.Context, log *domain.VerificationLog) error
	ListByCode(ctx context.Context, discountCodeID string) ([]domain.VerificationLog, error)
}

type verificationLogRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationLogRepository builds repository.
func NewVerificationLogRepository(pool *pgxpool.Pool) VerificationLogRepository {
	return &verificationLogRepository{pool: pool}
}

func (r *verificationLogRepository) Create(ctx context.Context, log *domain.VerificationLog) error {
	const query = `
        INSERT INTO verification_logs (discount_code_id, success, error_message, verification_details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		log.DiscountCodeID,
		log.Success,
		log.ErrorMessage,
		log.VerificationDetails,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *verificationLogRepository) ListByCode(ctx context.Context, discountCodeID string) ([]domain.VerificationLog, error) {
	const query = `
        SELECT id, discount_code_id, success, error_message, verification_details, created_at
        FROM verification_logs WHERE discount_code_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, discountCodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.VerificationLog
	for rows.Next() {
		var log domain.VerificationLog
		if err := rows.Scan(
			&log.ID,
			&log.DiscountCodeID,
			&log.Success,
			&log.ErrorMessage,
			&log.VerificationDetails,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}
