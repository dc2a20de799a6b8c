package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilhq/vigil/pkg/log"
	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/ports"
)

func newTestFetcher() *HTTPFetcher {
	f := NewHTTPFetcher(log.NewDiscard())
	f.client.RetryMax = 0
	f.client.RetryWaitMin = time.Millisecond
	f.client.RetryWaitMax = time.Millisecond

	return f
}

func testTarget(url string) *models.Target {
	return &models.Target{ID: "target-1", URL: url}
}

func TestHTTPFetcher_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("profile body"))
	}))
	defer server.Close()

	result, err := newTestFetcher().Fetch(context.Background(), testTarget(server.URL))
	require.NoError(t, err)

	assert.Equal(t, []byte("profile body"), result.Content)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.WithinDuration(t, time.Now(), result.FetchedAt, 5*time.Second)
}

func TestHTTPFetcher_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), testTarget(server.URL))
	require.Error(t, err)

	assert.True(t, ports.IsTransient(err))
	assert.False(t, ports.IsPermanent(err))
}

func TestHTTPFetcher_GoneIsPermanent(t *testing.T) {
	for _, status := range []int{
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusGone,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestFetcher().Fetch(context.Background(), testTarget(server.URL))
		server.Close()

		require.Error(t, err, "status %d", status)
		assert.True(t, ports.IsPermanent(err), "status %d should be permanent", status)
	}
}

func TestHTTPFetcher_UnreachableHostIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), testTarget(url))
	require.Error(t, err)

	assert.True(t, ports.IsTransient(err))
}

func TestHTTPFetcher_InvalidURLIsPermanent(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), testTarget("://not-a-url"))
	require.Error(t, err)

	assert.True(t, ports.IsPermanent(err))
}
