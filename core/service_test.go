package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

type fakeAuthenticator struct {
	session int64
	err     error
	calls   int
}

func (f *fakeAuthenticator) Authenticate(context.Context) (int64, error) {
	f.calls++
	return f.session, f.err
}

type fakeModelReader struct {
	searchFn func(model string, domain []any, fields []string, limit int) ([]map[string]any, error)
	fieldsFn func(model string) (map[string]any, error)
}

func (f *fakeModelReader) SearchRead(
	_ context.Context,
	_ int64,
	model string,
	domain []any,
	fields []string,
	limit int,
) ([]map[string]any, error) {
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(model, domain, fields, limit)
}

func (f *fakeModelReader) FieldsGet(_ context.Context, _ int64, model string) (map[string]any, error) {
	if f.fieldsFn == nil {
		return nil, errors.New("fields_get not scripted")
	}
	return f.fieldsFn(model)
}

type fakeResolver struct {
	resolution StudentResolution
	err        error
}

func (f *fakeResolver) ResolveStudent(context.Context, int64, string) (StudentResolution, error) {
	return f.resolution, f.err
}

type memorySink struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *memorySink) Record(_ context.Context, entry ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memorySink) last(t *testing.T) ActivityEntry {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		t.Fatal("expected at least one recorded activity entry")
	}
	return s.entries[len(s.entries)-1]
}

func newTestService(t *testing.T, options ...Option) (*Service, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithActivitySink(sink),
		WithSessionAuthenticator(&fakeAuthenticator{session: 7}),
	}
	service, err := NewService(Config{}, append(base, options...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, sink
}

func TestDispatchTestConnection(t *testing.T) {
	service, sink := newTestService(t)

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "test_connection"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %#v", result)
	}
	if result.Message != "connection successful" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.Payload["uid"] != int64(7) {
		t.Fatalf("expected uid payload, got %v", result.Payload["uid"])
	}
	if !result.Timestamp.Equal(fixedNow) {
		t.Fatalf("expected clock-stamped result, got %v", result.Timestamp)
	}
	entry := sink.last(t)
	if entry.Action != "test_connection" || entry.Status != ActivityStatusOK {
		t.Fatalf("unexpected activity entry %#v", entry)
	}
	if entry.SessionUID != 7 {
		t.Fatalf("expected session uid on activity entry, got %d", entry.SessionUID)
	}
	if entry.DurationMS != 0 {
		t.Fatalf("expected zero duration under a fixed clock, got %d", entry.DurationMS)
	}
}

func TestDispatchRequiresAction(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Dispatch(context.Background(), DispatchRequest{})
	if err == nil {
		t.Fatal("expected structural error for empty action")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad-input error, got %v", err)
	}
}

func TestDispatchUsesInjectedErrorFactory(t *testing.T) {
	calls := 0
	factory := func(message string, category ...goerrors.Category) *goerrors.Error {
		calls++
		return goerrors.New(message, category...)
	}
	service, _ := newTestService(t, WithErrorFactory(factory))

	_, err := service.Dispatch(context.Background(), DispatchRequest{})
	if err == nil {
		t.Fatal("expected structural error for empty action")
	}
	if calls != 1 {
		t.Fatalf("expected the injected factory to build the error, got %d calls", calls)
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad-input error from the factory, got %v", err)
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	service, sink := newTestService(t)

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "frobnicate"})
	if err != nil {
		t.Fatalf("unknown actions must not be transport errors, got %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result for unknown action")
	}
	if !strings.Contains(result.Message, `unknown action "frobnicate"`) {
		t.Fatalf("expected unknown-action message, got %q", result.Message)
	}
	for _, name := range ActionNames() {
		if !strings.Contains(result.Message, name) {
			t.Fatalf("expected %q in the valid-action listing, got %q", name, result.Message)
		}
	}
	entry := sink.last(t)
	if entry.Status != ActivityStatusFailed {
		t.Fatalf("expected failed activity entry, got %#v", entry)
	}
	if entry.Metadata["error_code"] != BridgeErrorUnknownAction {
		t.Fatalf("expected unknown-action error code on the entry, got %v", entry.Metadata)
	}
}

func TestDispatchAuthFailureBecomesResult(t *testing.T) {
	service, sink := newTestService(t, WithSessionAuthenticator(&fakeAuthenticator{
		err: goerrors.New("auth: authentication call failed", goerrors.CategoryAuth),
	}))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "get_user_info"})
	if err != nil {
		t.Fatalf("auth failures must become results, got error %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result")
	}
	if !strings.Contains(result.Message, "authentication") {
		t.Fatalf("expected authentication failure message, got %q", result.Message)
	}
	if entry := sink.last(t); entry.SessionUID != 0 {
		t.Fatalf("expected no session uid on failed auth, got %d", entry.SessionUID)
	}
}

func TestDispatchAuthenticatesEveryCall(t *testing.T) {
	authenticator := &fakeAuthenticator{session: 7}
	service, _ := newTestService(t, WithSessionAuthenticator(authenticator))

	for i := 0; i < 3; i++ {
		if _, err := service.Dispatch(context.Background(), DispatchRequest{Action: "test_connection"}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	if authenticator.calls != 3 {
		t.Fatalf("expected one authentication per dispatch, got %d", authenticator.calls)
	}
}

func TestDispatchGetAllStudents(t *testing.T) {
	var seenLimit int
	reader := &fakeModelReader{
		searchFn: func(model string, _ []any, fields []string, limit int) ([]map[string]any, error) {
			if model != ModelStudents {
				t.Fatalf("expected student model, got %q", model)
			}
			if len(fields) == 0 {
				t.Fatal("expected the fixed student field set")
			}
			seenLimit = limit
			return []map[string]any{{"id": 1}, {"id": 2}}, nil
		},
	}
	service, _ := newTestService(t, WithModelReader(reader))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "get_all_students", Limit: 5})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if seenLimit != 5 {
		t.Fatalf("expected limit 5 forwarded, got %d", seenLimit)
	}
	if result.Payload["count"] != 2 {
		t.Fatalf("expected count 2, got %v", result.Payload["count"])
	}
}

func TestDispatchGetAllStudentsNegativeLimit(t *testing.T) {
	service, _ := newTestService(t, WithModelReader(&fakeModelReader{}))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "get_all_students", Limit: -1})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result for negative limit")
	}
}

func TestDispatchGetModelDataDefaultLimit(t *testing.T) {
	var seenLimit int
	reader := &fakeModelReader{
		searchFn: func(_ string, _ []any, _ []string, limit int) ([]map[string]any, error) {
			seenLimit = limit
			return nil, nil
		},
	}
	service, _ := newTestService(t, WithModelReader(reader))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "get_model_data", Model: "res.partner"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %#v", result)
	}
	if seenLimit != defaultModelDataLimit {
		t.Fatalf("expected default limit %d, got %d", defaultModelDataLimit, seenLimit)
	}
	if result.Payload["count"] != 0 {
		t.Fatalf("expected count 0 for no records, got %v", result.Payload["count"])
	}
}

func TestDispatchGetModelDataLimitRoundTrip(t *testing.T) {
	var seenLimit int
	reader := &fakeModelReader{
		searchFn: func(model string, _ []any, _ []string, limit int) ([]map[string]any, error) {
			if model != "res.partner" {
				t.Fatalf("unexpected model %q", model)
			}
			seenLimit = limit
			return []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}}, nil
		},
	}
	service, _ := newTestService(t, WithModelReader(reader))

	result, err := service.Dispatch(context.Background(), DispatchRequest{
		Action: "get_model_data",
		Model:  "res.partner",
		Limit:  3,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %#v", result)
	}
	if seenLimit != 3 {
		t.Fatalf("expected limit 3 forwarded, got %d", seenLimit)
	}
	records, ok := result.Payload["records"].([]map[string]any)
	if !ok {
		t.Fatalf("expected records payload, got %T", result.Payload["records"])
	}
	if result.Payload["count"] != len(records) || len(records) != 3 {
		t.Fatalf("expected count to match the 3 returned records, got count=%v len=%d", result.Payload["count"], len(records))
	}
}

func TestDispatchGetModelDataRequiresModel(t *testing.T) {
	service, _ := newTestService(t, WithModelReader(&fakeModelReader{}))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "get_model_data"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result for missing model")
	}
}

func TestDispatchGetUserInfoMissingRecord(t *testing.T) {
	reader := &fakeModelReader{
		searchFn: func(string, []any, []string, int) ([]map[string]any, error) {
			return nil, nil
		},
	}
	service, _ := newTestService(t, WithModelReader(reader))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "get_user_info"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result when the account record is missing")
	}
}

func TestDispatchSearchStudentAPIUserMessage(t *testing.T) {
	resolver := &fakeResolver{
		resolution: StudentResolution{
			Record:   StudentRecord{RecordID: 9, RegistrationNumber: "API-9", IsAPIUser: true},
			Strategy: "api_user_fallback",
		},
	}
	service, _ := newTestService(t, WithStudentResolver(resolver))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "search_student", Email: "x@y.z"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %#v", result)
	}
	if !strings.Contains(result.Message, "service-account") {
		t.Fatalf("expected degraded-identity message, got %q", result.Message)
	}
	if result.Payload["strategy"] != "api_user_fallback" {
		t.Fatalf("expected strategy in payload, got %v", result.Payload["strategy"])
	}
}

func TestDispatchGetModelFields(t *testing.T) {
	reader := &fakeModelReader{
		fieldsFn: func(model string) (map[string]any, error) {
			if model != "op.student" {
				t.Fatalf("unexpected model %q", model)
			}
			return map[string]any{
				"name":  map[string]any{"type": "char"},
				"gr_no": map[string]any{"type": "char"},
			}, nil
		},
	}
	service, _ := newTestService(t, WithModelReader(reader))

	result, err := service.Dispatch(context.Background(), DispatchRequest{Action: "get_model_fields", Model: "op.student"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Payload["count"] != 2 {
		t.Fatalf("expected field count 2, got %v", result.Payload["count"])
	}
}
