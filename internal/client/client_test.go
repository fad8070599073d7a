package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/oracle"
)

func mockBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(oracle.MockResponse())
	require.NoError(t, err)
	return body
}

func TestSubmitRejectsBlankTextWithoutNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	b := New(server.URL)
	for _, text := range []string{"", "  ", "\n"} {
		_, err := b.Submit(context.Background(), analysis.Request{Text: text})
		require.Error(t, err)
		assert.True(t, errors.Is(err, analysis.ErrValidation))
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSubmitOmitsEmptyMetadata(t *testing.T) {
	body := mockBody(t)
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		bodies = append(bodies, got)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	b := New(server.URL, WithToken("anon-key"))
	_, err := b.Submit(context.Background(), analysis.Request{
		Text: "  He forgot our anniversary again and I feel invisible ",
		Meta: analysis.UserMeta{RelationshipRole: "spouse", PreferredTone: " "},
	})
	require.NoError(t, err)
	_, err = b.Submit(context.Background(), analysis.Request{Text: "second"})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{
		"userText": "He forgot our anniversary again and I feel invisible",
		"userMeta": map[string]any{"relationship_role": "spouse"},
	}, bodies[0])
	assert.Equal(t, map[string]any{"userText": "second"}, bodies[1])
}

func TestSubmitSendsBearerToken(t *testing.T) {
	body := mockBody(t)
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	_, err := New(server.URL, WithToken(" tok ")).Submit(context.Background(), analysis.Request{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
}

func TestSubmitMapsErrorStatuses(t *testing.T) {
	cases := []struct {
		status   int
		sentinel error
	}{
		{status: http.StatusBadRequest, sentinel: analysis.ErrValidation},
		{status: http.StatusTooManyRequests, sentinel: analysis.ErrRateLimited},
		{status: http.StatusPaymentRequired, sentinel: analysis.ErrBilling},
		{status: http.StatusInternalServerError, sentinel: analysis.ErrUpstream},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":"server said no"}`))
		}))

		_, err := New(server.URL).Submit(context.Background(), analysis.Request{Text: "hi"})
		server.Close()

		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.sentinel), "status %d gave %v", tc.status, err)
		assert.Contains(t, err.Error(), "server said no")
	}
}

func TestSubmitRejectsIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"emotion":{"primary_emotion":"hurt"}}`))
	}))
	defer server.Close()

	resp, err := New(server.URL).Submit(context.Background(), analysis.Request{Text: "hi"})
	assert.True(t, errors.Is(err, analysis.ErrParse))
	assert.Equal(t, analysis.Response{}, resp)
}

func TestSubmitGuardsAgainstConcurrentSubmission(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	body := mockBody(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(entered) })
		<-release
		_, _ = w.Write(body)
	}))
	defer server.Close()

	b := New(server.URL, WithTimeout(5*time.Second))
	done := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), analysis.Request{Text: "first"})
		done <- err
	}()

	<-entered
	_, err := b.Submit(context.Background(), analysis.Request{Text: "second"})
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-done)

	_, err = b.Submit(context.Background(), analysis.Request{Text: "third"})
	assert.NoError(t, err)
}
