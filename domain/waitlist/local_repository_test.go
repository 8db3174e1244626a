package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/models"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/akeren/waitlist-foundry/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSlot = "waitlist_entries"

type flakyStore struct {
	kvstore.Store
	getErr error
	setErr error
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

func newTestLocalRepository(store kvstore.Store, now func() time.Time) *localWaitlistRepository {
	repo := NewLocalWaitlistRepository(store, testSlot, log.NewLoggerWithJSONOutput()).(*localWaitlistRepository)
	if now != nil {
		repo.now = now
	}
	return repo
}

func readSlot(t *testing.T, store kvstore.Store) []models.WaitlistEntry {
	t.Helper()

	raw, err := store.Get(context.Background(), testSlot)
	require.NoError(t, err)

	var entries []models.WaitlistEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))
	return entries
}

func boolPtr(b bool) *bool { return &b }

func TestLocalRepository_CreatesEntry(t *testing.T) {
	store := kvstore.NewMemoryStore()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestLocalRepository(store, func() time.Time { return fixed })

	entry, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: "a@x.io", CompletedSignup: boolPtr(false)})
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "a@x.io", entry.Email)
	assert.False(t, entry.CompletedSignup)
	assert.Equal(t, fixed, entry.CreatedAt)
	assert.Equal(t, fixed, entry.UpdatedAt)

	stored := readSlot(t, store)
	require.Len(t, stored, 1)
	assert.Equal(t, entry.ID, stored[0].ID)
}

func TestLocalRepository_RepeatSubmissionKeepsIdentityAndAdvancesUpdatedAt(t *testing.T) {
	store := kvstore.NewMemoryStore()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestLocalRepository(store, func() time.Time { return fixed })
	ctx := context.Background()

	first, err := repo.UpsertEntry(ctx, EntryPatch{Email: "a@x.io", CompletedSignup: boolPtr(false)})
	require.NoError(t, err)

	second, err := repo.UpsertEntry(ctx, EntryPatch{Email: "a@x.io", CompletedSignup: boolPtr(false)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Len(t, readSlot(t, store), 1)
}

func TestLocalRepository_NormalizesEmailKey(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := newTestLocalRepository(store, nil)
	ctx := context.Background()

	first, err := repo.UpsertEntry(ctx, EntryPatch{Email: " Jane@Example.com "})
	require.NoError(t, err)
	second, err := repo.UpsertEntry(ctx, EntryPatch{Email: "jane@example.com"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "jane@example.com", second.Email)
	assert.Len(t, readSlot(t, store), 1)
}

func TestLocalRepository_CompletionWithoutPriorEntryCreatesIt(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := newTestLocalRepository(store, nil)

	entry, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: "new@x.io", CompletedSignup: boolPtr(true)})
	require.NoError(t, err)

	assert.True(t, entry.CompletedSignup)
	stored := readSlot(t, store)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].CompletedSignup)
}

func TestLocalRepository_NilCompletedLeavesStoredValue(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := newTestLocalRepository(store, nil)
	ctx := context.Background()

	_, err := repo.UpsertEntry(ctx, EntryPatch{Email: "a@x.io", CompletedSignup: boolPtr(true)})
	require.NoError(t, err)

	entry, err := repo.UpsertEntry(ctx, EntryPatch{Email: "a@x.io"})
	require.NoError(t, err)
	assert.True(t, entry.CompletedSignup)
}

func TestLocalRepository_KeepsOtherEntries(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := newTestLocalRepository(store, nil)
	ctx := context.Background()

	for _, email := range []string{"a@x.io", "b@x.io", "a@x.io", "c@x.io"} {
		_, err := repo.UpsertEntry(ctx, EntryPatch{Email: email})
		require.NoError(t, err)
	}

	entries, err := repo.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a@x.io", entries[0].Email)
	assert.Equal(t, "b@x.io", entries[1].Email)
	assert.Equal(t, "c@x.io", entries[2].Email)
}

func TestLocalRepository_CorruptSlotReadsAsEmpty(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), testSlot, "{not json"))
	repo := newTestLocalRepository(store, nil)

	entry, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: "a@x.io"})
	require.NoError(t, err)

	stored := readSlot(t, store)
	require.Len(t, stored, 1)
	assert.Equal(t, entry.ID, stored[0].ID)
}

func TestLocalRepository_WriteFailureLeavesSlotUntouched(t *testing.T) {
	backing := kvstore.NewMemoryStore()
	repo := newTestLocalRepository(backing, nil)
	ctx := context.Background()

	_, err := repo.UpsertEntry(ctx, EntryPatch{Email: "a@x.io"})
	require.NoError(t, err)
	before, err := backing.Get(ctx, testSlot)
	require.NoError(t, err)

	repo.store = &flakyStore{Store: backing, setErr: errors.New("quota exceeded")}

	entry, err := repo.UpsertEntry(ctx, EntryPatch{Email: "b@x.io"})
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, apperrors.ErrorTypeStoreError, apperrors.GetErrorType(err))

	after, err := backing.Get(ctx, testSlot)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLocalRepository_ReadFailureIsStoreError(t *testing.T) {
	store := &flakyStore{Store: kvstore.NewMemoryStore(), getErr: errors.New("disk gone")}
	repo := newTestLocalRepository(store, nil)

	_, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: "a@x.io"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeStoreError, apperrors.GetErrorType(err))
}

func TestLocalRepository_RejectsBlankEmail(t *testing.T) {
	repo := newTestLocalRepository(kvstore.NewMemoryStore(), nil)

	_, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: "  "})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestLocalRepository_ConcurrentUpsertsProduceOneEntry(t *testing.T) {
	store := kvstore.NewFileStore(t.TempDir())
	repo := newTestLocalRepository(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpsertEntry(ctx, EntryPatch{Email: "same@x.io"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, readSlot(t, store), 1)
}
