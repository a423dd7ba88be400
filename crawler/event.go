package crawler

import (
	"context"
	"time"
)

// EventType names a progress event published by a run.
type EventType string

const (
	EventPolicyChecked    EventType = "policy.checked"
	EventPageFetched      EventType = "page.fetched"
	EventPageFailed       EventType = "page.failed"
	EventRecordsExtracted EventType = "records.extracted"
	EventNextDiscovered   EventType = "next.discovered"
	EventDone             EventType = "crawl.done"
)

// Event is one progress notification. Fields not relevant to Type are zero.
type Event struct {
	Type EventType
	Time time.Time

	// URL is the page the event refers to. For EventNextDiscovered it is
	// the discovered URL.
	URL string

	// Page is the 1-based page number of the run.
	Page int

	// Count is the number of records extracted from the page.
	Count int

	// Total is the number of records accumulated so far.
	Total int

	// Allowed is the gate decision for EventPolicyChecked.
	Allowed bool

	// Err is the failure for EventPageFailed and, when the run ended on a
	// failure, for EventDone.
	Err error

	StopReason StopReason
	Duration   time.Duration
}

// Reporter consumes progress events. Report must not block for long: it is
// called synchronously from the crawl loop.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, ev Event)

func (f ReporterFunc) Report(ctx context.Context, ev Event) { f(ctx, ev) }

// Reporters fans an event out to every reporter in order.
type Reporters []Reporter

func (rs Reporters) Report(ctx context.Context, ev Event) {
	for _, r := range rs {
		if r != nil {
			r.Report(ctx, ev)
		}
	}
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, Event) {}
