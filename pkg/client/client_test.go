package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/memfs/internal/api"
	"github.com/fruitsalade/memfs/internal/events"
	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/protocol"
	"github.com/fruitsalade/memfs/pkg/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     time.Millisecond,
	}
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(Config{BaseURL: ts.URL, RetryConfig: fastRetry()})
}

func testServer(t *testing.T) (*Client, *namespace.Manager) {
	t.Helper()
	bc := events.NewBroadcaster()
	ns := namespace.New(namespace.WithObserver(bc.Observer()))
	return testClient(t, api.NewServer(ns, bc).Handler()), ns
}

func TestClientRoundTrip(t *testing.T) {
	c, ns := testServer(t)
	ctx := context.Background()

	health, err := c.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	_, err = c.Create(ctx, entity.KindDrive, "C", "")
	require.NoError(t, err)
	_, err = c.Create(ctx, entity.KindFolder, "Docs", "C")
	require.NoError(t, err)
	resp, err := c.Create(ctx, entity.KindTextFile, "a.txt", `C\Docs`)
	require.NoError(t, err)
	assert.Equal(t, `C\Docs\a.txt`, resp.Path)

	_, err = c.WriteFile(ctx, `C\Docs\a.txt`, "hello\nworld")
	require.NoError(t, err)
	content, err := c.ReadFile(ctx, `C\Docs\a.txt`)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", content)

	info, err := c.Stat(ctx, `C\Docs\a.txt`)
	require.NoError(t, err)
	assert.EqualValues(t, 11, info.Size)

	_, err = c.Copy(ctx, `C\Docs\a.txt`, "C")
	require.NoError(t, err)
	_, err = c.Rename(ctx, `C\a.txt`, "b.txt")
	require.NoError(t, err)
	_, err = c.Move(ctx, `C\b.txt`, `C\Docs`)
	require.NoError(t, err)

	children, err := c.List(ctx, `C\Docs`)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "b.txt", children[1].Name)

	paths, err := c.Search(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{`C\Docs\b.txt`}, paths)

	drives, err := c.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, drives, 1)

	del, err := c.Delete(ctx, `C\Docs`)
	require.NoError(t, err)
	assert.Equal(t, 1, del.Entities)
	assert.Equal(t, 1, ns.Len())
}

func TestClientErrorsUnwrapToKinds(t *testing.T) {
	c, _ := testServer(t)
	ctx := context.Background()

	_, err := c.Stat(ctx, `Q\missing`)
	assert.ErrorIs(t, err, namespace.ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)

	_, err = c.Create(ctx, entity.KindDrive, "C", "")
	require.NoError(t, err)
	_, err = c.Create(ctx, entity.KindDrive, "C", "")
	assert.ErrorIs(t, err, namespace.ErrAlreadyExists)

	_, err = c.SaveSnapshot(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestClientRetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(protocol.SearchResponse{Name: "x", Paths: []string{`C\x`}})
	}))

	paths, err := c.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{`C\x`}, paths)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryMutations(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Move(context.Background(), `C\a`, `C\b`)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientOffline(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(Config{BaseURL: url, RetryConfig: fastRetry()})
	_, err := c.Ping(context.Background())
	assert.ErrorIs(t, err, ErrOffline)
	assert.False(t, c.IsOnline())
}

func TestSubscribe(t *testing.T) {
	bc := events.NewBroadcaster()
	ns := namespace.New(namespace.WithObserver(bc.Observer()))
	c := testClient(t, api.NewServer(ns, bc).Handler())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, _ := c.Subscribe(ctx)

	require.Eventually(t, func() bool { return bc.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, ns.Create(entity.KindDrive, "C", ""))
	require.Error(t, ns.WriteToFile("C", "x"))
	require.NoError(t, ns.Create(entity.KindFolder, "Docs", "C"))

	var got []protocol.SSEEvent
	for len(got) < 2 {
		select {
		case ev := <-stream:
			got = append(got, ev)
		case <-ctx.Done():
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, events.EventCreate, got[0].Type)
	assert.Equal(t, "C", got[0].Path)
	assert.Equal(t, "drive", got[0].Kind)
	assert.Equal(t, `C\Docs`, got[1].Target)

	cancel()
	for range stream {
	}
}
