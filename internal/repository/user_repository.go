package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/codefinder/internal/domain"
)

// UserRepository defines persistence access for subscribers and their quota fields.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ResetDailyQuota(ctx context.Context, id string, previous, resetAt time.Time) (bool, error)
	IncrementSearchCount(ctx context.Context, id string) error
	ClaimSearchLimitWarning(ctx context.Context, id string) (bool, error)
	ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]domain.User, error)
	MarkTrialExpiryWarningSent(ctx context.Context, id string) error
	ListEndedTrials(ctx context.Context, now time.Time) ([]domain.User, error)
	UpdateSubscriptionStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, subscription_status, trial_ends_at,
               daily_search_count, last_search_reset_date, search_limit_warning_today,
               trial_expiry_warning_sent, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, subscription_status, trial_ends_at, last_search_reset_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.SubscriptionStatus,
		user.TrialEndsAt,
		user.LastSearchResetDate,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// ResetDailyQuota starts a new quota day; the warning budget resets with it. The reset only
// applies while last_search_reset_date still equals previous, so a request holding a stale
// read cannot wipe increments made after a concurrent reset.
func (r *userRepository) ResetDailyQuota(ctx context.Context, id string, previous, resetAt time.Time) (bool, error) {
	const query = `
        UPDATE users SET daily_search_count=0, last_search_reset_date=$1,
            search_limit_warning_today=FALSE, updated_at=NOW()
        WHERE id=$2 AND last_search_reset_date=$3`
	cmd, err := r.pool.Exec(ctx, query, resetAt, id, previous)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *userRepository) IncrementSearchCount(ctx context.Context, id string) error {
	const query = `
        UPDATE users SET daily_search_count=daily_search_count+1, updated_at=NOW()
        WHERE id=$1`
	return execOne(ctx, r.pool, query, id)
}

// ClaimSearchLimitWarning sets the per-day warning flag and reports whether this
// call was the one that set it.
func (r *userRepository) ClaimSearchLimitWarning(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE users SET search_limit_warning_today=TRUE, updated_at=NOW()
        WHERE id=$1 AND search_limit_warning_today=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *userRepository) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
        WHERE subscription_status='trial' AND trial_expiry_warning_sent=FALSE
          AND trial_ends_at > $1 AND trial_ends_at <= $2
        ORDER BY trial_ends_at ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) MarkTrialExpiryWarningSent(ctx context.Context, id string) error {
	const query = `UPDATE users SET trial_expiry_warning_sent=TRUE, updated_at=NOW() WHERE id=$1`
	return execOne(ctx, r.pool, query, id)
}

func (r *userRepository) ListEndedTrials(ctx context.Context, now time.Time) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
        WHERE subscription_status='trial' AND trial_ends_at IS NOT NULL AND trial_ends_at <= $1
        ORDER BY trial_ends_at ASC`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) UpdateSubscriptionStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error {
	const query = `UPDATE users SET subscription_status=$1, updated_at=NOW() WHERE id=$2`
	return execOne(ctx, r.pool, query, status, id)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.SubscriptionStatus,
		&user.TrialEndsAt,
		&user.DailySearchCount,
		&user.LastSearchResetDate,
		&user.SearchLimitWarningToday,
		&user.TrialExpiryWarningSent,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func execOne(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	cmd, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
