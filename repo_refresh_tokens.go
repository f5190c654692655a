package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens is the durable refresh credential store: one live value per
// user, keyed by user but looked up by value. It is the sole source of
// revocation truth; reads observe the latest committed write.
type RefreshTokens interface {
	Upsert(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error)
	FindByValue(ctx context.Context, token string) (*RefreshToken, error)
	DeleteByValue(ctx context.Context, token string) (*RefreshToken, error)
	Rotate(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(r *RefreshToken) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RefreshToken, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

// Upsert writes the user's slot, replacing whatever value was there.
func (r *refreshTokens) Upsert(ctx context.Context, userID uuid.UUID, token string) (*RefreshToken, error) {
	now := time.Now()
	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *refreshTokens) FindByValue(ctx context.Context, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

// DeleteByValue returns (nil, nil) when the value is already gone, which
// keeps logout idempotent.
func (r *refreshTokens) DeleteByValue(ctx context.Context, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if _, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("token = ?", token).
		Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

// Rotate swaps the slot only if it still holds oldToken. The single UPDATE
// is the compare-and-swap that lets exactly one of two concurrent refreshes
// win; the loser sees zero rows and gets ErrRefreshTokenRevoked.
func (r *refreshTokens) Rotate(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	res, err := r.db.NewUpdate().
		Model((*RefreshToken)(nil)).
		Set("token = ?", newToken).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("token = ?", oldToken).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrRefreshTokenRevoked
	}

	return nil
}
