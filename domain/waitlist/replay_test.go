package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akeren/waitlist-foundry/internal/log"
	"github.com/akeren/waitlist-foundry/internal/models"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/akeren/waitlist-foundry/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func seedLocal(t *testing.T, emails map[string]bool) *localWaitlistRepository {
	t.Helper()

	local := newTestLocalRepository(kvstore.NewMemoryStore(), nil)
	for email, completed := range emails {
		_, err := local.UpsertEntry(context.Background(), EntryPatch{Email: email, CompletedSignup: boolPtr(completed)})
		require.NoError(t, err)
	}
	return local
}

func TestReplayer_PushesLocalEntriesToRemote(t *testing.T) {
	local := seedLocal(t, map[string]bool{"a@x.io": false, "b@x.io": true})
	remote := NewWaitlistRepository(newTestDB(t))

	report, err := NewReplayer(local, remote, log.NewLoggerWithJSONOutput()).Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReplayReport{Total: 2, Replayed: 2}, report)

	entries, err := remote.(EntryLister).ListEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byEmail := map[string]models.WaitlistEntry{}
	for _, e := range entries {
		byEmail[e.Email] = e
	}
	assert.False(t, byEmail["a@x.io"].CompletedSignup)
	assert.True(t, byEmail["b@x.io"].CompletedSignup)
}

func TestReplayer_DoesNotUndoRemoteCompletion(t *testing.T) {
	local := seedLocal(t, map[string]bool{"a@x.io": false})
	remote := NewWaitlistRepository(newTestDB(t))
	_, err := remote.UpsertEntry(context.Background(), EntryPatch{Email: "a@x.io", CompletedSignup: boolPtr(true)})
	require.NoError(t, err)

	_, err = NewReplayer(local, remote, log.NewLoggerWithJSONOutput()).Replay(context.Background())
	require.NoError(t, err)

	entries, err := remote.(EntryLister).ListEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].CompletedSignup)
}

func TestReplayer_KeepsRemoteTimestampsForward(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	clock := base
	local := newTestLocalRepository(kvstore.NewMemoryStore(), func() time.Time { return clock })
	_, err := local.UpsertEntry(ctx, EntryPatch{Email: "seen@x.io"})
	require.NoError(t, err)
	_, err = local.UpsertEntry(ctx, EntryPatch{Email: "fresh@x.io"})
	require.NoError(t, err)
	clock = base.Add(20 * time.Millisecond)
	_, err = local.UpsertEntry(ctx, EntryPatch{Email: "seen@x.io", CompletedSignup: boolPtr(true)})
	require.NoError(t, err)

	remoteWrite := base.Add(30 * time.Millisecond)
	remote := NewWaitlistRepository(newTestDB(t)).(*waitlistRepository)
	_, err = remote.UpsertEntry(ctx, EntryPatch{Email: "seen@x.io", UpdatedAt: remoteWrite})
	require.NoError(t, err)

	replayedAt := base.Add(time.Hour)
	remote.now = func() time.Time { return replayedAt }

	_, err = NewReplayer(local, remote, log.NewLoggerWithJSONOutput()).Replay(ctx)
	require.NoError(t, err)

	entries, err := remote.ListEntries(ctx)
	require.NoError(t, err)
	byEmail := map[string]models.WaitlistEntry{}
	for _, e := range entries {
		byEmail[e.Email] = e
	}

	seen := byEmail["seen@x.io"]
	assert.False(t, seen.UpdatedAt.Before(remoteWrite), "updated_at went back to %s", seen.UpdatedAt)
	assert.True(t, seen.CreatedAt.Equal(remoteWrite), "created_at of an existing row changed to %s", seen.CreatedAt)
	assert.True(t, seen.CompletedSignup)

	fresh := byEmail["fresh@x.io"]
	assert.True(t, fresh.CreatedAt.Equal(base), "fresh row created_at = %s", fresh.CreatedAt)
	assert.True(t, fresh.UpdatedAt.Equal(replayedAt))
}

func TestReplayer_CountsFailuresAndKeepsGoing(t *testing.T) {
	ctrl := gomock.NewController(t)
	local := seedLocal(t, map[string]bool{"a@x.io": false, "b@x.io": false, "c@x.io": false})

	remote := NewMockWaitlistRepository(ctrl)
	remote.EXPECT().Backend().Return(BackendREST).AnyTimes()
	gomock.InOrder(
		remote.EXPECT().UpsertEntry(gomock.Any(), gomock.Any()).Return(&models.WaitlistEntry{}, nil),
		remote.EXPECT().UpsertEntry(gomock.Any(), gomock.Any()).Return(nil, apperrors.NewBackendUnavailableError("503", nil)),
		remote.EXPECT().UpsertEntry(gomock.Any(), gomock.Any()).Return(&models.WaitlistEntry{}, nil),
	)

	report, err := NewReplayer(local, remote, log.NewLoggerWithJSONOutput()).Replay(context.Background())
	require.Error(t, err)
	assert.Equal(t, ReplayReport{Total: 3, Replayed: 2, Failed: 1}, report)
	assert.Equal(t, apperrors.ErrorTypeBackendUnavailable, apperrors.GetErrorType(err))
}

func TestReplayer_ListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := NewMockEntryLister(ctrl)
	lister.EXPECT().ListEntries(gomock.Any()).Return(nil, errors.New("slot unreadable"))

	_, err := NewReplayer(lister, NewMockWaitlistRepository(ctrl), log.NewLoggerWithJSONOutput()).Replay(context.Background())
	assert.ErrorContains(t, err, "list local entries")
}

func TestReplayer_StopsOnCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	local := seedLocal(t, map[string]bool{"a@x.io": false})
	remote := NewMockWaitlistRepository(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReplayer(local, remote, log.NewLoggerWithJSONOutput()).Replay(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
