package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dreamreel/internal/domain"
)

// AccountDirectoryPG resolves accounts from the identity/billing tables that
// the excluded systems maintain. This service only ever reads them.
type AccountDirectoryPG struct {
	pool *pgxpool.Pool
}

// NewAccountDirectory constructs a new account directory instance.
func NewAccountDirectory(pool *pgxpool.Pool) *AccountDirectoryPG {
	return &AccountDirectoryPG{pool: pool}
}

func (r *AccountDirectoryPG) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var acc domain.Account
	err := r.pool.QueryRow(ctx, `
SELECT id, tier FROM accounts WHERE id = $1;
`, accountID).Scan(&acc.ID, &acc.Tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		// 53300 too_many_connections / 53400 configuration_limit_exceeded are
		// surfaced as a rate-limit condition so the concurrency guard backs off.
		if errors.As(err, &pgErr) && (pgErr.Code == "53300" || pgErr.Code == "53400") {
			return nil, domain.ErrRateLimited
		}
		return nil, err
	}
	return &acc, nil
}

var _ domain.AccountDirectory = (*AccountDirectoryPG)(nil)
