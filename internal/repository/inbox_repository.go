package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/codefinder/internal/domain"
)

// InboxRepository stores delivered codes.
type InboxRepository interface {
	Create(ctx context.Context, msg *domain.InboxMessage) error
	GetByID(ctx context.Context, id string) (*domain.InboxMessage, error)
	ListByUser(ctx context.Context, userID string) ([]domain.InboxEntry, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) (bool, error)
}

type inboxRepository struct {
	pool *pgxpool.Pool
}

// NewInboxRepository builds repository.
func NewInboxRepository(pool *pgxpool.Pool) InboxRepository {
	return &inboxRepository{pool: pool}
}

func (r *inboxRepository) Create(ctx context.Context, msg *domain.InboxMessage) error {
	const query = `
        INSERT INTO inbox_messages (user_id, search_id, discount_code_id, is_read)
        VALUES ($1,$2,$3,FALSE)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.UserID,
		msg.SearchID,
		msg.DiscountCodeID,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *inboxRepository) GetByID(ctx context.Context, id string) (*domain.InboxMessage, error) {
	const query = `
        SELECT id, user_id, search_id, discount_code_id, is_read, created_at, read_at
        FROM inbox_messages WHERE id=$1`
	var msg domain.InboxMessage
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.UserID,
		&msg.SearchID,
		&msg.DiscountCodeID,
		&msg.IsRead,
		&msg.CreatedAt,
		&msg.ReadAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *inboxRepository) ListByUser(ctx context.Context, userID string) ([]domain.InboxEntry, error) {
	const query = `
        SELECT m.id, m.user_id, m.search_id, m.discount_code_id, m.is_read, m.created_at, m.read_at,
               s.query,
               c.id, c.search_id, c.code, c.merchant_name, c.merchant_url, c.description,
               c.discount_amount, c.expiry_date, c.source, c.verified, c.verified_at, c.created_at
        FROM inbox_messages m
        JOIN searches s ON s.id = m.search_id
        JOIN discount_codes c ON c.id = m.discount_code_id
        WHERE m.user_id=$1
        ORDER BY m.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.InboxEntry
	for rows.Next() {
		var entry domain.InboxEntry
		msg := &entry.Message
		code := &entry.Code
		if err := rows.Scan(
			&msg.ID, &msg.UserID, &msg.SearchID, &msg.DiscountCodeID, &msg.IsRead, &msg.CreatedAt, &msg.ReadAt,
			&entry.Query,
			&code.ID, &code.SearchID, &code.Code, &code.MerchantName, &code.MerchantURL, &code.Description,
			&code.DiscountAmount, &code.ExpiryDate, &code.Source, &code.Verified, &code.VerifiedAt, &code.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// MarkRead stamps read_at once. It reports false when the message was already read.
func (r *inboxRepository) MarkRead(ctx context.Context, id string, readAt time.Time) (bool, error) {
	const query = `UPDATE inbox_messages SET is_read=TRUE, read_at=$1 WHERE id=$2 AND is_read=FALSE`
	cmd, err := r.pool.Exec(ctx, query, readAt, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
