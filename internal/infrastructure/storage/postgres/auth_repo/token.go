package auth_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/domain/auth"
	"inventra/internal/infrastructure/storage/postgres"
)

// TokenRepo implements auth.TokenRepository. Refresh tokens are looked
// up by their random hash, so no tenant predicate is needed.
type TokenRepo struct{}

// NewTokenRepo creates a new token repository.
func NewTokenRepo() *TokenRepo {
	return &TokenRepo{}
}

var _ auth.TokenRepository = (*TokenRepo)(nil)

func (r *TokenRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

func (r *TokenRepo) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.querier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SaveRefreshToken persists a new refresh token.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::inet)`

	return r.exec(ctx, "save refresh token", query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt,
		token.CreatedAt, token.UserAgent, token.IPAddress,
	)
}

// GetRefreshToken retrieves a refresh token by hash.
func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	const query = `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at, revoked_reason
		FROM refresh_tokens WHERE token_hash = $1`

	var token auth.RefreshToken
	err := r.querier(ctx).QueryRow(ctx, query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt,
		&token.CreatedAt, &token.RevokedAt, &token.RevokedReason,
	)
	switch {
	case err == pgx.ErrNoRows:
		return nil, apperror.NewNotFound("token", "")
	case err != nil:
		return nil, fmt.Errorf("query token: %w", err)
	}
	return &token, nil
}

// RevokeRefreshToken marks a single token revoked.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	return r.exec(ctx, "revoke token",
		`UPDATE refresh_tokens SET revoked_at = now(), revoked_reason = $2 WHERE id = $1`,
		tokenID, reason)
}

// RevokeAllUserTokens revokes every live token of a user. Used on
// logout and on password change.
func (r *TokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	return r.exec(ctx, "revoke all tokens",
		`UPDATE refresh_tokens SET revoked_at = now(), revoked_reason = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, reason)
}

// CleanupExpiredTokens deletes expired tokens and tokens revoked more
// than a week ago. Returns the number of rows removed.
func (r *TokenRepo) CleanupExpiredTokens(ctx context.Context) (int, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < now() OR revoked_at < now() - INTERVAL '7 days'`

	result, err := r.querier(ctx).Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("cleanup tokens: %w", err)
	}
	return int(result.RowsAffected()), nil
}
