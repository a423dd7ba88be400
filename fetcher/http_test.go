package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/models"
)

func TestFetch_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(Options{})
	res, err := f.Fetch(context.Background(), &Request{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, config.DefaultUserAgent, gotUA)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "<html><body>ok</body></html>", string(res.Body))
}

func TestFetch_CustomHeadersOverride(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(Options{UserAgent: "base-agent"})
	_, err := f.Fetch(context.Background(), &Request{URL: srv.URL, Headers: map[string]string{"User-Agent": "override"}})
	require.NoError(t, err)
	assert.Equal(t, "override", gotUA)
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusNotModified} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := NewHTTPFetcher(Options{}).Fetch(context.Background(), &Request{URL: srv.URL})
		srv.Close()

		require.Error(t, err, "status %d", status)
		assert.Equal(t, models.ErrCodeHTTPStatus, models.CodeOf(err))
		assert.True(t, models.IsNetworkFailure(err))
	}
}

func TestFetch_FollowsRedirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("final"))
	}))
	t.Cleanup(final.Close)
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/landing", http.StatusMovedPermanently)
	}))
	t.Cleanup(redirect.Close)

	res, err := NewHTTPFetcher(Options{}).Fetch(context.Background(), &Request{URL: redirect.URL})
	require.NoError(t, err)
	assert.Equal(t, final.URL+"/landing", res.FinalURL)
	assert.Equal(t, "final", string(res.Body))
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPFetcher(Options{}).Fetch(context.Background(), &Request{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(Options{}).Fetch(context.Background(), &Request{URL: addr, Timeout: time.Second})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeNetwork, models.CodeOf(err))
}

func TestFetch_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	t.Cleanup(srv.Close)

	res, err := NewHTTPFetcher(Options{MaxBodyBytes: 4}).Fetch(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "0123", string(res.Body))
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := NewHTTPFetcher(Options{}).Fetch(context.Background(), &Request{URL: "://bad"})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}
