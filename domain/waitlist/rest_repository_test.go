package waitlist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
	"github.com/akeren/waitlist-foundry/pkg/postgrest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRESTRepository(t *testing.T, handler http.HandlerFunc) WaitlistRepository {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := postgrest.NewClient(server.URL, "anon-key", time.Second)
	require.NoError(t, err)

	return NewRESTWaitlistRepository(client)
}

func TestRESTRepository_SendsUpsertRequest(t *testing.T) {
	var received []map[string]any

	repo := newRESTRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/waitlist", r.URL.Path)
		assert.Equal(t, "email", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"7d1c5d2e-0000-4000-8000-000000000001","email":"a@x.io","completed_signup":false,"created_at":"2025-03-01T12:00:00+00:00","updated_at":"2025-03-01T12:00:00+00:00"}]`))
	})

	entry, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: " A@x.io", CompletedSignup: boolPtr(false)})
	require.NoError(t, err)

	assert.Equal(t, "7d1c5d2e-0000-4000-8000-000000000001", entry.ID)
	assert.Equal(t, "a@x.io", entry.Email)

	require.Len(t, received, 1)
	assert.Equal(t, "a@x.io", received[0]["email"])
	assert.Equal(t, false, received[0]["completed_signup"])
	assert.NotEmpty(t, received[0]["updated_at"])
	_, sentCreated := received[0]["created_at"]
	assert.False(t, sentCreated)
}

func TestRESTRepository_OmitsCompletedWhenNil(t *testing.T) {
	var received []map[string]any

	repo := newRESTRepository(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		_, _ = w.Write([]byte(`[{"id":"x","email":"a@x.io","completed_signup":true}]`))
	})

	_, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: "a@x.io"})
	require.NoError(t, err)

	require.Len(t, received, 1)
	_, present := received[0]["completed_signup"]
	assert.False(t, present)
}

func TestRESTRepository_ErrorsAreBackendUnavailable(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantMessage string
	}{
		{
			name: "constraint violation",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
			},
			wantMessage: "waitlist endpoint reported a constraint violation",
		},
		{
			name: "bad key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
			},
			wantMessage: "waitlist endpoint rejected upsert: Invalid API key",
		},
		{
			name: "empty representation",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`[]`))
			},
			wantMessage: "waitlist endpoint returned no representation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRESTRepository(t, tt.handler)

			entry, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: "a@x.io"})
			require.Error(t, err)
			assert.Nil(t, entry)
			assert.Equal(t, apperrors.ErrorTypeBackendUnavailable, apperrors.GetErrorType(err))

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Message, tt.wantMessage)
		})
	}
}

func TestRESTRepository_UnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := postgrest.NewClient(url, "k", 200*time.Millisecond)
	require.NoError(t, err)

	_, err = NewRESTWaitlistRepository(client).UpsertEntry(context.Background(), EntryPatch{Email: "a@x.io"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeBackendUnavailable, apperrors.GetErrorType(err))
}

func TestBreakerRepository_OpensAfterFailures(t *testing.T) {
	var calls atomic.Int32

	inner := newRESTRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	repo := WithCircuitBreaker(inner, nil, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.UpsertEntry(ctx, EntryPatch{Email: "a@x.io"})
		require.Error(t, err)
	}

	_, err := repo.UpsertEntry(ctx, EntryPatch{Email: "a@x.io"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeBackendUnavailable, apperrors.GetErrorType(err))
	assert.EqualValues(t, 5, calls.Load())
	assert.Equal(t, BackendREST, repo.Backend())
}

func TestBreakerRepository_InvalidInputDoesNotTrip(t *testing.T) {
	inner := newRESTRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("blank email must not reach the endpoint")
	})

	repo := WithCircuitBreaker(inner, nil, nil)
	for i := 0; i < 10; i++ {
		_, err := repo.UpsertEntry(context.Background(), EntryPatch{Email: " "})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
	}
}
