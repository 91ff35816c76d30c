package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/codefinder/internal/domain"
)

// ErrStaleTransition is returned when a status update would move a search backwards
// or out of a terminal state.
var ErrStaleTransition = errors.New("search status transition not allowed")

// SearchRepository encapsulates search persistence.
type SearchRepository interface {
	Create(ctx context.Context, search *domain.Search) error
	GetByID(ctx context.Context, id string) (*domain.Search, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Search, error)
	UpdateStatus(ctx context.Context, id string, status domain.SearchStatus, completedAt *time.Time) error
}

type searchRepository struct {
	pool *pgxpool.Pool
}

// NewSearchRepository instantiates repository.
func NewSearchRepository(pool *pgxpool.Pool) SearchRepository {
	return &searchRepository{pool: pool}
}

func (r *searchRepository) Create(ctx context.Context, search *domain.Search) error {
	const query = `
        INSERT INTO searches (user_id, query, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		search.UserID,
		search.Query,
		search.Status,
	).Scan(&search.ID, &search.CreatedAt)
}

func (r *searchRepository) GetByID(ctx context.Context, id string) (*domain.Search, error) {
	const query = `
        SELECT id, user_id, query, status, created_at, completed_at
        FROM searches WHERE id=$1`
	var search domain.Search
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&search.ID,
		&search.UserID,
		&search.Query,
		&search.Status,
		&search.CreatedAt,
		&search.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &search, nil
}

func (r *searchRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Search, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, user_id, query, status, created_at, completed_at
        FROM searches WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Search
	for rows.Next() {
		var search domain.Search
		if err := rows.Scan(
			&search.ID,
			&search.UserID,
			&search.Query,
			&search.Status,
			&search.CreatedAt,
			&search.CompletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, search)
	}
	return result, rows.Err()
}

// UpdateStatus moves a search forward. The WHERE clause only matches rows whose
// current status may legally precede the new one.
func (r *searchRepository) UpdateStatus(ctx context.Context, id string, status domain.SearchStatus, completedAt *time.Time) error {
	from := domain.PreviousStatuses(status)
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	const query = `
        UPDATE searches SET status=$1, completed_at=COALESCE($2, completed_at)
        WHERE id=$3 AND status = ANY($4)`
	cmd, err := r.pool.Exec(ctx, query, status, completedAt, id, allowed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return ErrStaleTransition
	}
	return nil
}
