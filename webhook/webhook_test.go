package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_SignsBody(t *testing.T) {
	var gotSig, gotUA string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotUA = r.Header.Get("User-Agent")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ev := &Event{Type: EventCompleted, JobID: "crawl-1", Timestamp: 42, Data: map[string]int{"total": 3}}
	require.NoError(t, Deliver(context.Background(), srv.URL, "s3cret", ev))

	assert.Equal(t, "Pagecrawl-Webhook/1.0", gotUA)
	assert.Equal(t, Sign("s3cret", gotBody), gotSig)

	var decoded Event
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, EventCompleted, decoded.Type)
	assert.Equal(t, "crawl-1", decoded.JobID)
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	var hasSig bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSig = r.Header[SignatureHeader]
	}))
	defer srv.Close()

	require.NoError(t, Deliver(context.Background(), srv.URL, "", &Event{Type: EventPage}))
	assert.False(t, hasSig)
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := Deliver(context.Background(), srv.URL, "", &Event{Type: EventPage})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDeliverAsync_Retries(t *testing.T) {
	orig := retryDelays
	retryDelays = []time.Duration{0, 10 * time.Millisecond, 10 * time.Millisecond}
	defer func() { retryDelays = orig }()

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	DeliverAsync(srv.URL, "", &Event{Type: EventCompleted})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSign(t *testing.T) {
	a := Sign("k", []byte("body"))
	assert.Equal(t, a, Sign("k", []byte("body")))
	assert.NotEqual(t, a, Sign("other", []byte("body")))
	assert.Len(t, a, len("sha256=")+64)
}
