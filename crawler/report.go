package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/use-agent/pagecrawl/webhook"
)

// ConsoleReporter prints one progress line per page and a summary table
// when the run ends.
type ConsoleReporter struct {
	w io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (r *ConsoleReporter) Report(_ context.Context, ev Event) {
	switch ev.Type {
	case EventPolicyChecked:
		if ev.Allowed {
			fmt.Fprintf(r.w, "robots.txt allows scraping %s\n", ev.URL)
		}
	case EventPageFetched:
		fmt.Fprintf(r.w, "Scraping page %d: %s\n", ev.Page, ev.URL)
	case EventPageFailed:
		fmt.Fprintf(r.w, "Error fetching %s: %v\n", ev.URL, ev.Err)
	case EventRecordsExtracted:
		fmt.Fprintf(r.w, "  %d records (%d total)\n", ev.Count, ev.Total)
	case EventDone:
		t := table.NewWriter()
		t.SetOutputMirror(r.w)
		t.AppendHeader(table.Row{"Pages", "Records", "Stopped", "Elapsed"})
		t.AppendRow(table.Row{ev.Page, ev.Total, ev.StopReason, ev.Duration.Round(time.Millisecond)})
		t.SetStyle(table.StyleRounded)
		t.Render()
	}
}

// LogReporter writes every event to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(ctx context.Context, ev Event) {
	attrs := []any{"event", string(ev.Type), "url", ev.URL, "page", ev.Page}
	switch ev.Type {
	case EventPolicyChecked:
		attrs = append(attrs, "allowed", ev.Allowed)
	case EventRecordsExtracted:
		attrs = append(attrs, "count", ev.Count, "total", ev.Total)
	case EventPageFetched:
		attrs = append(attrs, "elapsed_ms", ev.Duration.Milliseconds())
	case EventDone:
		attrs = append(attrs, "total", ev.Total, "stop_reason", string(ev.StopReason), "elapsed_ms", ev.Duration.Milliseconds())
	}

	if ev.Type == EventPageFailed {
		r.logger.WarnContext(ctx, "page failed", append(attrs, "error", ev.Err)...)
		return
	}
	r.logger.DebugContext(ctx, "crawl progress", attrs...)
	if ev.Type == EventDone {
		r.logger.InfoContext(ctx, "crawl finished", attrs...)
	}
}

// WebhookReporter forwards page and completion events to a webhook
// endpoint. Deliveries are asynchronous and retried.
type WebhookReporter struct {
	url    string
	secret string
	jobID  string
}

// NewWebhookReporter creates a WebhookReporter for one run.
func NewWebhookReporter(url, secret, jobID string) *WebhookReporter {
	return &WebhookReporter{url: url, secret: secret, jobID: jobID}
}

type pagePayload struct {
	URL   string `json:"url"`
	Page  int    `json:"page"`
	Count int    `json:"count"`
	Total int    `json:"total"`
	Error string `json:"error,omitempty"`
}

type donePayload struct {
	URL        string `json:"url"`
	Pages      int    `json:"pages"`
	Total      int    `json:"total"`
	StopReason string `json:"stop_reason"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (r *WebhookReporter) Report(_ context.Context, ev Event) {
	var event *webhook.Event
	switch ev.Type {
	case EventRecordsExtracted:
		event = r.event(webhook.EventPage, ev, pagePayload{URL: ev.URL, Page: ev.Page, Count: ev.Count, Total: ev.Total})
	case EventPageFailed:
		event = r.event(webhook.EventPageFailed, ev, pagePayload{URL: ev.URL, Page: ev.Page, Total: ev.Total, Error: errString(ev.Err)})
	case EventDone:
		typ := webhook.EventCompleted
		if ev.Page == 0 && ev.Err != nil {
			typ = webhook.EventFailed
		}
		event = r.event(typ, ev, donePayload{
			URL:        ev.URL,
			Pages:      ev.Page,
			Total:      ev.Total,
			StopReason: string(ev.StopReason),
			Error:      errString(ev.Err),
			DurationMs: ev.Duration.Milliseconds(),
		})
	default:
		return
	}
	webhook.DeliverAsync(r.url, r.secret, event)
}

func (r *WebhookReporter) event(typ string, ev Event, data any) *webhook.Event {
	return &webhook.Event{Type: typ, JobID: r.jobID, Timestamp: ev.Time.Unix(), Data: data}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
