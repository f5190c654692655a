package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// fakeUsers is an in-memory Users. The embedded interface panics on any
// method the tests do not exercise.
type fakeUsers struct {
	accounts.Users

	mu   sync.Mutex
	byID map[string]*accounts.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*accounts.User{}}
}

func (f *fakeUsers) add(user *accounts.User) *accounts.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byID[user.ID.String()] = user
	return user
}

func (f *fakeUsers) Register(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	return f.add(user), nil
}

func (f *fakeUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *accounts.User) (*accounts.User, error) {
	return f.add(user), nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.byID[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return user, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) Update(ctx context.Context, record *accounts.User, criteria ...repository.UpdateCriteria) (*accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byID[record.ID.String()] = record
	return record, nil
}

func (f *fakeUsers) ListAll(ctx context.Context) ([]*accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*accounts.User, 0, len(f.byID))
	for _, user := range f.byID {
		out = append(out, user)
	}
	return out, nil
}

func (f *fakeUsers) DeleteByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.byID[id.String()]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	delete(f.byID, id.String())
	return user, nil
}

// fakeRepoManager wires the fakes into the RepositoryManager shape.
type fakeRepoManager struct {
	users  accounts.Users
	tokens accounts.RefreshTokens
}

func (f fakeRepoManager) Validate() error { return nil }

func (f fakeRepoManager) MustValidate() {}

func (f fakeRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (f fakeRepoManager) Users() accounts.Users { return f.users }

func (f fakeRepoManager) RefreshTokens() accounts.RefreshTokens { return f.tokens }

// countingRefreshStore records how often each store method runs.
type countingRefreshStore struct {
	inner accounts.RefreshTokens

	mu      sync.Mutex
	upserts int
	finds   int
	deletes int
	rotates int
}

func newCountingRefreshStore(inner accounts.RefreshTokens) *countingRefreshStore {
	return &countingRefreshStore{inner: inner}
}

func (c *countingRefreshStore) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upserts + c.finds + c.deletes + c.rotates
}

func (c *countingRefreshStore) Upsert(ctx context.Context, userID uuid.UUID, token string) (*accounts.RefreshToken, error) {
	c.mu.Lock()
	c.upserts++
	c.mu.Unlock()
	return c.inner.Upsert(ctx, userID, token)
}

func (c *countingRefreshStore) FindByValue(ctx context.Context, token string) (*accounts.RefreshToken, error) {
	c.mu.Lock()
	c.finds++
	c.mu.Unlock()
	return c.inner.FindByValue(ctx, token)
}

func (c *countingRefreshStore) DeleteByValue(ctx context.Context, token string) (*accounts.RefreshToken, error) {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.inner.DeleteByValue(ctx, token)
}

func (c *countingRefreshStore) Rotate(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	c.mu.Lock()
	c.rotates++
	c.mu.Unlock()
	return c.inner.Rotate(ctx, userID, oldToken, newToken)
}

func newTestSigner(accessTTL, refreshTTL time.Duration) accounts.CredentialSigner {
	return accounts.NewCredentialSigner(
		accounts.SigningProfile{Secret: []byte("access-secret-for-tests"), TTL: accessTTL},
		accounts.SigningProfile{Secret: []byte("refresh-secret-for-tests"), TTL: refreshTTL},
		"accounts-test",
		[]string{"accounts-test"},
		nil,
	)
}

func newTestUser() *accounts.User {
	return &accounts.User{
		ID:    uuid.New(),
		Email: "ada@example.com",
		Name:  "Ada",
		Age:   36,
	}
}
