package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

// memStore is an in-memory Store with the same atomicity contract as the
// Firestore implementation.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[string]*Account)}
}

func (m *memStore) Get(_ context.Context, userID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return nil, apperr.NotFound("user %s", userID)
	}
	cp := *acct
	return &cp, nil
}

func (m *memStore) Set(_ context.Context, userID string, acct *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *acct
	m.accounts[userID] = &cp
	return nil
}

func (m *memStore) Increment(_ context.Context, userID, field string, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return apperr.NotFound("user %s", userID)
	}
	if field == "modelsUsed" {
		acct.ModelsUsed += count
	} else {
		acct.ImagesUsed += count
	}
	return nil
}

func TestEnsureAccount(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	t.Run("creates account with default quotas", func(t *testing.T) {
		acct, err := ledger.EnsureAccount(ctx, "user-1", "a@example.com", false)
		require.NoError(t, err)

		assert.EqualValues(t, DefaultImagesQuota, acct.ImagesQuota)
		assert.EqualValues(t, DefaultModelsQuota, acct.ModelsQuota)
		assert.EqualValues(t, 0, acct.ImagesUsed)
		assert.EqualValues(t, 0, acct.ModelsUsed)
		assert.Equal(t, "a@example.com", acct.Email)
		assert.False(t, acct.IsAnonymous)
		assert.False(t, acct.CreatedAt.IsZero())
	})

	t.Run("is idempotent for existing accounts", func(t *testing.T) {
		require.NoError(t, ledger.Commit(ctx, "user-1", ResourceImage, 3))

		acct, err := ledger.EnsureAccount(ctx, "user-1", "a@example.com", false)
		require.NoError(t, err)
		assert.EqualValues(t, 3, acct.ImagesUsed, "existing usage must survive")
	})

	t.Run("records anonymous sign-ins", func(t *testing.T) {
		acct, err := ledger.EnsureAccount(ctx, "anon-1", "", true)
		require.NoError(t, err)
		assert.True(t, acct.IsAnonymous)
	})
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store)

	_, err := ledger.EnsureAccount(ctx, "user-1", "", false)
	require.NoError(t, err)

	t.Run("returns remaining without mutating", func(t *testing.T) {
		remaining, err := ledger.Check(ctx, "user-1", ResourceImage)
		require.NoError(t, err)
		assert.EqualValues(t, DefaultImagesQuota, remaining)

		again, err := ledger.Check(ctx, "user-1", ResourceImage)
		require.NoError(t, err)
		assert.Equal(t, remaining, again)
	})

	t.Run("fails when quota is exhausted", func(t *testing.T) {
		require.NoError(t, ledger.Commit(ctx, "user-1", ResourceModel, DefaultModelsQuota))

		_, err := ledger.Check(ctx, "user-1", ResourceModel)
		assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)

		// Image quota is independent of model quota.
		_, err = ledger.Check(ctx, "user-1", ResourceImage)
		assert.NoError(t, err)
	})

	t.Run("fails for unknown users", func(t *testing.T) {
		_, err := ledger.Check(ctx, "nobody", ResourceImage)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	_, err := ledger.EnsureAccount(ctx, "user-1", "", false)
	require.NoError(t, err)

	require.NoError(t, ledger.Commit(ctx, "user-1", ResourceImage, 2))
	require.NoError(t, ledger.Commit(ctx, "user-1", ResourceImage, 1))
	require.NoError(t, ledger.Commit(ctx, "user-1", ResourceModel, 1))

	acct, err := ledger.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, acct.ImagesUsed)
	assert.EqualValues(t, 1, acct.ModelsUsed)
}

func TestRemaining(t *testing.T) {
	acct := &Account{ImagesQuota: 10, ImagesUsed: 4, ModelsQuota: 5, ModelsUsed: 5}

	assert.EqualValues(t, 6, acct.Remaining(ResourceImage))
	assert.EqualValues(t, 0, acct.Remaining(ResourceModel))
}
