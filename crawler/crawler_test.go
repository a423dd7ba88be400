package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/extractor"
	"github.com/use-agent/pagecrawl/fetcher"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/robots"
)

// site serves robots.txt and a handful of pages keyed by path.
type site struct {
	robots string
	pages  map[string]string
	hits   sync.Map
	total  atomic.Int32
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/robots.txt" {
		if s.robots == "" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, s.robots)
		return
	}
	s.total.Add(1)
	n, _ := s.hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
	n.(*atomic.Int32).Add(1)

	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, body)
}

func (s *site) hitCount(path string) int {
	n, ok := s.hits.Load(path)
	if !ok {
		return 0
	}
	return int(n.(*atomic.Int32).Load())
}

func newCrawler(t *testing.T, opts Options) *Crawler {
	t.Helper()
	f := fetcher.NewHTTPFetcher(fetcher.Options{})
	if opts.Gate == nil {
		opts.Gate = robots.NewGate(f, robots.GateOptions{Timeout: time.Second})
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	return New(f, opts)
}

func mustRule(t *testing.T, mode, tag, class string) extractor.Rule {
	t.Helper()
	r, err := extractor.ParseRule(mode, tag, class)
	require.NoError(t, err)
	return r
}

func data(records []models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r[models.FieldData])
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Report(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestRun_PolicyDenied(t *testing.T) {
	s := &site{
		robots: "User-agent: *\nDisallow: /\n",
		pages:  map[string]string{"/": `<h1>Home</h1>`},
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	rec := &recorder{}
	c := newCrawler(t, Options{Reporter: rec})
	res, err := c.Run(context.Background(), Job{URL: srv.URL, Rule: mustRule(t, "headings", "", "")})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrPolicyDenied))
	assert.Equal(t, models.ErrCodePolicyDenied, models.CodeOf(err))
	assert.Equal(t, int32(0), s.total.Load(), "no page may be fetched after a denial")
	assert.Equal(t, []EventType{EventPolicyChecked}, rec.types())
}

func TestRun_FollowsNextUntilNone(t *testing.T) {
	s := &site{
		robots: "User-agent: *\nDisallow: /private\n",
		pages: map[string]string{
			"/list/1": `<h2>A</h2><h3>B</h3><a href="/list/2">Next</a>`,
			"/list/2": `<h2>C</h2><a href="3">Next</a>`,
			"/list/3": `<h1>D</h1><a href="/list/1">Previous</a>`,
		},
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	rec := &recorder{}
	c := newCrawler(t, Options{Reporter: rec})
	res, err := c.Run(context.Background(), Job{URL: srv.URL + "/list/1", Rule: mustRule(t, "2", "", "")})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, data(res.Records))
	assert.Equal(t, models.DataFields, res.Fields)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, StopNoNextPage, res.StopReason)
	assert.NoError(t, res.LastError)
	for _, p := range []string{"/list/1", "/list/2", "/list/3"} {
		assert.Equal(t, 1, s.hitCount(p), p)
	}

	assert.Equal(t, []EventType{
		EventPolicyChecked,
		EventPageFetched, EventRecordsExtracted, EventNextDiscovered,
		EventPageFetched, EventRecordsExtracted, EventNextDiscovered,
		EventPageFetched, EventRecordsExtracted,
		EventDone,
	}, rec.types())
}

func TestRun_FetchFailureKeepsPartialRecords(t *testing.T) {
	s := &site{
		pages: map[string]string{
			"/": `<a href="/a">one</a><a href="/missing">Next</a>`,
		},
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	rec := &recorder{}
	c := newCrawler(t, Options{Reporter: rec})
	res, err := c.Run(context.Background(), Job{URL: srv.URL + "/", Rule: mustRule(t, "links", "", "")})

	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/missing"}, data(res.Records))
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, StopFetchFailed, res.StopReason)
	require.Error(t, res.LastError)
	assert.Equal(t, models.ErrCodeHTTPStatus, models.CodeOf(res.LastError))
	require.Len(t, res.Failures, 1)
	assert.Equal(t, srv.URL+"/missing", res.Failures[0].URL)

	types := rec.types()
	assert.Equal(t, EventPageFailed, types[len(types)-2])
	assert.Equal(t, EventDone, types[len(types)-1])
}

func TestRun_FirstPageFailsYieldsNoRecords(t *testing.T) {
	srv := httptest.NewServer(&site{})
	defer srv.Close()

	c := newCrawler(t, Options{})
	res, err := c.Run(context.Background(), Job{URL: srv.URL + "/nothing", Rule: mustRule(t, "paragraphs", "", "")})

	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Pages)
	assert.Equal(t, StopFetchFailed, res.StopReason)
}

func TestRun_RobotsUnavailableFailsOpen(t *testing.T) {
	s := &site{pages: map[string]string{"/": `<p>hello</p>`}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	c := newCrawler(t, Options{})
	res, err := c.Run(context.Background(), Job{URL: srv.URL, Rule: mustRule(t, "paragraphs", "", "")})

	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, data(res.Records))
}

func TestRun_SelfLinkEndsRun(t *testing.T) {
	for name, href := range map[string]string{
		"empty href":    "",
		"same page":     "/rows",
		"fragment only": "#more",
	} {
		t.Run(name, func(t *testing.T) {
			s := &site{pages: map[string]string{
				"/rows": fmt.Sprintf(`<p>row</p><a href=%q>Next</a>`, href),
			}}
			srv := httptest.NewServer(s)
			defer srv.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			res, err := newCrawler(t, Options{}).Run(ctx, Job{URL: srv.URL + "/rows", Rule: mustRule(t, "paragraphs", "", "")})

			require.NoError(t, err)
			assert.Equal(t, 1, res.Pages)
			assert.Equal(t, []string{"row"}, data(res.Records))
			assert.Equal(t, StopNoNextPage, res.StopReason)
			assert.Equal(t, 1, s.hitCount("/rows"))
		})
	}
}

func TestRun_MaxPages(t *testing.T) {
	s := &site{pages: map[string]string{
		"/p/a": `<p>loop</p><a href="/p/b">Next</a>`,
		"/p/b": `<p>loop</p><a href="/p/a">Next</a>`,
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	c := newCrawler(t, Options{})
	res, err := c.Run(context.Background(), Job{URL: srv.URL + "/p/a", Rule: mustRule(t, "paragraphs", "", ""), MaxPages: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{"loop", "loop", "loop"}, data(res.Records))
	assert.Equal(t, StopMaxPages, res.StopReason)
	assert.Equal(t, 2, s.hitCount("/p/a"))
	assert.Equal(t, 1, s.hitCount("/p/b"))
}

func TestRun_RecheckPages(t *testing.T) {
	s := &site{
		robots: "User-agent: *\nDisallow: /private\n",
		pages: map[string]string{
			"/public":    `<p>ok</p><a href="/private/2">Next</a>`,
			"/private/2": `<p>secret</p>`,
		},
	}
	srv := httptest.NewServer(s)
	defer srv.Close()

	t.Run("off by default", func(t *testing.T) {
		res, err := newCrawler(t, Options{}).Run(context.Background(),
			Job{URL: srv.URL + "/public", Rule: mustRule(t, "paragraphs", "", "")})
		require.NoError(t, err)
		assert.Equal(t, []string{"ok", "secret"}, data(res.Records))
	})

	t.Run("stops at disallowed next page", func(t *testing.T) {
		before := s.hitCount("/private/2")
		res, err := newCrawler(t, Options{RecheckPages: true}).Run(context.Background(),
			Job{URL: srv.URL + "/public", Rule: mustRule(t, "paragraphs", "", "")})
		require.NoError(t, err)
		assert.Equal(t, []string{"ok"}, data(res.Records))
		assert.Equal(t, StopNextDisallowed, res.StopReason)
		assert.Equal(t, before, s.hitCount("/private/2"))
	})
}

func TestRun_InvalidURL(t *testing.T) {
	c := newCrawler(t, Options{})
	for _, u := range []string{"", "example.com", "ftp://example.com/", "http://"} {
		_, err := c.Run(context.Background(), Job{URL: u, Rule: mustRule(t, "links", "", "")})
		assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err), u)
	}
}

func TestRun_Cancelled(t *testing.T) {
	s := &site{pages: map[string]string{
		"/a": `<p>x</p><a href="/b">Next</a>`,
		"/b": `<p>y</p><a href="/a">Next</a>`,
	}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stopAfterFirst := ReporterFunc(func(_ context.Context, ev Event) {
		if ev.Type == EventRecordsExtracted {
			cancel()
		}
	})

	res, err := newCrawler(t, Options{Reporter: stopAfterFirst}).Run(ctx,
		Job{URL: srv.URL + "/a", Rule: mustRule(t, "paragraphs", "", "")})

	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, data(res.Records))
	assert.Equal(t, StopCancelled, res.StopReason)
}

func TestJobFromConfig(t *testing.T) {
	job, err := JobFromConfig(config.Job{URL: "https://example.com", Mode: "4", Tag: "div", Class: "card", MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, extractor.ModeCustom, job.Rule.Mode)
	assert.Equal(t, `div[class~="card"]`, job.Rule.Selector())
	assert.Equal(t, 2, job.MaxPages)

	_, err = JobFromConfig(config.Job{URL: "https://example.com", Mode: "7"})
	assert.ErrorIs(t, err, extractor.ErrUnknownMode)

	_, err = JobFromConfig(config.Job{URL: "https://example.com", Mode: "links", MaxPages: -1})
	assert.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "AWAITING_FETCH", StateAwaitingFetch.String())
	assert.Equal(t, "DISCOVERING_NEXT", StateDiscoveringNext.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)
	ctx := context.Background()

	r.Report(ctx, Event{Type: EventPageFetched, Page: 2, URL: "https://example.com/2"})
	r.Report(ctx, Event{Type: EventPageFailed, URL: "https://example.com/3", Err: errors.New("boom")})
	r.Report(ctx, Event{Type: EventDone, Page: 2, Total: 7, StopReason: StopFetchFailed})

	out := buf.String()
	assert.Contains(t, out, "Scraping page 2: https://example.com/2\n")
	assert.Contains(t, out, "Error fetching https://example.com/3: boom\n")
	assert.Contains(t, out, "fetch_failed")
	assert.Contains(t, out, "RECORDS")
}

func TestWebhookReporter(t *testing.T) {
	var mu sync.Mutex
	var types []string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev struct {
			Type  string `json:"type"`
			JobID string `json:"job_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil && ev.JobID == "job-1" {
			mu.Lock()
			types = append(types, ev.Type)
			mu.Unlock()
		}
	}))
	defer hook.Close()

	s := &site{pages: map[string]string{"/": `<p>x</p>`}}
	srv := httptest.NewServer(s)
	defer srv.Close()

	c := newCrawler(t, Options{}).WithReporter(NewWebhookReporter(hook.URL, "secret", "job-1"))
	_, err := c.Run(context.Background(), Job{URL: srv.URL + "/", Rule: mustRule(t, "paragraphs", "", "")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(types) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"crawl.page", "crawl.completed"}, types)
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)))

	r.Report(context.Background(), Event{Type: EventPageFailed, URL: "https://example.com/x", Err: errors.New("refused")})
	r.Report(context.Background(), Event{Type: EventDone, Total: 4, StopReason: StopNoNextPage})

	out := buf.String()
	assert.Contains(t, out, "page failed")
	assert.Contains(t, out, "error=refused")
	assert.Contains(t, out, "crawl finished")
	assert.Contains(t, out, "stop_reason=no_next_page")
}
