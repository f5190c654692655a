package accounts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLifecycle(t *testing.T) (*accounts.TokenLifecycle, *fakeUsers, *accounts.MemoryRefreshTokens) {
	t.Helper()

	users := newFakeUsers()
	store := accounts.NewMemoryRefreshTokens()
	lifecycle := accounts.NewTokenLifecycle(newTestSigner(time.Minute*30, time.Hour*24*30), store, users)

	return lifecycle, users, store
}

func TestTokenLifecycle_IssuePair(t *testing.T) {
	lifecycle, users, store := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := lifecycle.Authenticate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, user.Email, claims.UserEmail())

	record, err := store.FindByValue(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, record.UserID)
}

func TestTokenLifecycle_IssuePairReplacesSlot(t *testing.T) {
	lifecycle, users, store := newTestLifecycle(t)
	user := users.add(newTestUser())

	first, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	second, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	// A fresh signin overwrites the slot; the earlier refresh token is dead.
	_, err = store.FindByValue(context.Background(), first.RefreshToken)
	require.Error(t, err)

	_, err = store.FindByValue(context.Background(), second.RefreshToken)
	require.NoError(t, err)
}

func TestTokenLifecycle_Authenticate(t *testing.T) {
	lifecycle, users, _ := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid access token", token: pair.AccessToken},
		{name: "empty token", token: "", wantErr: true},
		{name: "garbage token", token: "garbage", wantErr: true},
		{name: "refresh token is not an access token", token: pair.RefreshToken, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := lifecycle.Authenticate(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID.String(), claims.UserID())
		})
	}
}

func TestTokenLifecycle_RefreshRotates(t *testing.T) {
	lifecycle, users, store := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	next, refreshed, err := lifecycle.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, refreshed.ID)

	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The slot now holds the successor only.
	_, err = store.FindByValue(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	_, err = store.FindByValue(context.Background(), next.RefreshToken)
	require.NoError(t, err)
}

func TestTokenLifecycle_RefreshIsSingleUse(t *testing.T) {
	lifecycle, users, _ := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, _, err = lifecycle.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	_, _, err = lifecycle.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, accounts.ErrRefreshTokenRevoked)
}

func TestTokenLifecycle_RefreshSeesProfileChanges(t *testing.T) {
	lifecycle, users, _ := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	user.Name = "Ada Lovelace"
	user.Age = 37

	next, _, err := lifecycle.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	claims, err := lifecycle.Authenticate(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", claims.UserName())
	assert.Equal(t, 37, claims.UserAge())
}

func TestTokenLifecycle_RefreshFailsBeforeStoreAccess(t *testing.T) {
	users := newFakeUsers()
	store := newCountingRefreshStore(accounts.NewMemoryRefreshTokens())
	lifecycle := accounts.NewTokenLifecycle(newTestSigner(time.Minute*30, time.Hour), store, users)

	_, _, err := lifecycle.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, accounts.ErrMissingRefreshToken)
	assert.Equal(t, 0, store.calls(), "empty token must not touch the store")

	_, _, err = lifecycle.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, 0, store.calls(), "unverifiable token must not touch the store")
}

func TestTokenLifecycle_LogoutIsIdempotent(t *testing.T) {
	lifecycle, users, _ := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	record, err := lifecycle.Logout(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, pair.RefreshToken, record.Token)

	record, err = lifecycle.Logout(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = lifecycle.Logout(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestTokenLifecycle_RefreshAfterLogoutFails(t *testing.T) {
	lifecycle, users, _ := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, err = lifecycle.Logout(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	_, _, err = lifecycle.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, accounts.ErrRefreshTokenRevoked)
}

func TestTokenLifecycle_AccessTokenSurvivesLogout(t *testing.T) {
	lifecycle, users, _ := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	_, err = lifecycle.Logout(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	// Access tokens carry no revocation state: still valid until expiry.
	claims, err := lifecycle.Authenticate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
}

func TestTokenLifecycle_ConcurrentRefreshSingleWinner(t *testing.T) {
	lifecycle, users, _ := newTestLifecycle(t)
	user := users.add(newTestUser())

	pair, err := lifecycle.IssuePair(context.Background(), user)
	require.NoError(t, err)

	const attempts = 8

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, results[i] = lifecycle.Refresh(context.Background(), pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, accounts.ErrRefreshTokenRevoked)
		}
	}

	assert.Equal(t, 1, winners, "exactly one concurrent refresh may succeed")
}
