package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// RemoteCaller executes one remote-procedure call against the ERP endpoint.
// A single attempt per call; transport and remote-side failures both surface
// as errors, never as panics.
type RemoteCaller interface {
	Call(ctx context.Context, service string, method string, args []any) (any, error)
}

// SessionAuthenticator exchanges the configured service-account credentials
// for a session handle. A handle is valid only for the enclosing request.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context) (int64, error)
}

// ModelReader is the data-operation surface the handlers and the student
// resolver share. Domain filters use the remote convention of
// [field, operator, value] triples; limit zero means unbounded.
type ModelReader interface {
	SearchRead(
		ctx context.Context,
		session int64,
		model string,
		domain []any,
		fields []string,
		limit int,
	) ([]map[string]any, error)
	FieldsGet(ctx context.Context, session int64, model string) (map[string]any, error)
}

// StudentResolver maps an external identity to an academic record through
// the ordered fallback chain.
type StudentResolver interface {
	ResolveStudent(ctx context.Context, session int64, email string) (StudentResolution, error)
}

// ActivityEntry records one dispatched action for operator telemetry. It
// describes the bridge's own behavior, never cached remote data.
type ActivityEntry struct {
	ID         string
	Action     string
	Status     string
	Message    string
	SessionUID int64
	DurationMS int64
	Metadata   map[string]any
	CreatedAt  time.Time
}

type ActivityStatus = string

const (
	ActivityStatusOK     ActivityStatus = "ok"
	ActivityStatusFailed ActivityStatus = "failed"
)

type ActivitySink interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

type ActivityFilter struct {
	Action  string
	Status  string
	Page    int
	PerPage int
	From    *time.Time
	To      *time.Time
}

type ActivityPage struct {
	Items   []ActivityEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type ActivityReader interface {
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

type NopActivitySink struct{}

func (NopActivitySink) Record(context.Context, ActivityEntry) error { return nil }

var _ ActivitySink = NopActivitySink{}
