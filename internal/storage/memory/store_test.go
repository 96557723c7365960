package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maildrop/backend/internal/domain"
	"maildrop/backend/internal/storage"
)

func newAccount(prefix, token string) *domain.Account {
	return &domain.Account{
		Prefix:    prefix,
		AccountID: "id-" + prefix,
		Token:     token,
		Address:   prefix + "@punkproof.com",
		CreatedAt: time.Now(),
	}
}

func TestMemoryStore_AccountOperations(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	has, err := store.Has(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.Set(ctx, newAccount("test_user", "token-1")))

	got, err := store.Get(ctx, "test_user")
	require.NoError(t, err)
	assert.Equal(t, "id-test_user", got.AccountID)
	assert.Equal(t, "token-1", got.Token)
	assert.Equal(t, "test_user@punkproof.com", got.Address)

	has, err = store.Has(ctx, "test_user")
	require.NoError(t, err)
	assert.True(t, has)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NoError(t, store.Health())
	assert.NoError(t, store.Close())
}

func TestMemoryStore_OverwriteKeepsSingleKey(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)

	require.NoError(t, store.Set(ctx, newAccount("dup", "old")))
	require.NoError(t, store.Set(ctx, newAccount("dup", "new")))

	got, err := store.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Token)

	count, _ := store.Count(ctx)
	assert.Equal(t, 1, count)
}

func TestMemoryStore_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)
	require.NoError(t, store.Set(ctx, newAccount("copy", "secret")))

	got, err := store.Get(ctx, "copy")
	require.NoError(t, err)
	got.Token = "mutated"

	again, err := store.Get(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, "secret", again.Token)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	store := NewStore(time.Minute)

	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, newAccount("short", "t")))

	has, _ := store.Has(ctx, "short")
	assert.True(t, has)

	now = now.Add(2 * time.Minute)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	count, _ := store.Count(ctx)
	assert.Equal(t, 0, count)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prefix := fmt.Sprintf("user%03d", i%10)
			_ = store.Set(ctx, newAccount(prefix, fmt.Sprintf("t%d", i)))
			_, _ = store.Get(ctx, prefix)
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}
