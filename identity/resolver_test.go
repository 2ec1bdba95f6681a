package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-erp-bridge/core"
)

type readCall struct {
	model  string
	domain string
}

type scriptedReader struct {
	respond func(model string, domain []any) ([]map[string]any, error)
	calls   []readCall
}

func (s *scriptedReader) SearchRead(
	_ context.Context,
	_ int64,
	model string,
	domain []any,
	_ []string,
	_ int,
) ([]map[string]any, error) {
	s.calls = append(s.calls, readCall{model: model, domain: fmt.Sprint(domain)})
	if s.respond == nil {
		return nil, nil
	}
	return s.respond(model, domain)
}

func (s *scriptedReader) FieldsGet(context.Context, int64, string) (map[string]any, error) {
	return nil, errors.New("not implemented")
}

func studentRaw() map[string]any {
	return map[string]any{
		"id":          float64(501),
		"name":        "Jane Q Doe",
		"first_name":  "Jane",
		"middle_name": "Q",
		"last_name":   "Doe",
		"gr_no":       "GR-2041",
		"email":       "jane@campus.test",
		"phone":       false,
		"mobile":      "555-0101",
		"birth_date":  "2003-04-12",
		"gender":      "f",
		"partner_id":  []any{float64(77), "Jane Q Doe"},
		"user_id":     []any{float64(31), "jane"},
		"active":      true,
	}
}

func domainMatches(domain []any, field string) bool {
	return fmt.Sprint(domain) == field
}

func TestResolveStudentPartnerMatchWinsOverUserMatch(t *testing.T) {
	reader := &scriptedReader{
		respond: func(model string, domain []any) ([]map[string]any, error) {
			switch model {
			case core.ModelDirectoryUsers:
				return []map[string]any{{
					"id":         float64(31),
					"name":       "jane",
					"login":      "jane@campus.test",
					"partner_id": []any{float64(77), "Jane Q Doe"},
				}}, nil
			case core.ModelStudents:
				if domainMatches(domain, fmt.Sprint([]any{[]any{"partner_id", "=", int64(77)}})) {
					return []map[string]any{studentRaw()}, nil
				}
				t.Fatalf("unexpected student domain %v", domain)
				return nil, nil
			default:
				t.Fatalf("unexpected model %s", model)
				return nil, nil
			}
		},
	}
	resolver := NewResolver(reader)

	resolution, err := resolver.ResolveStudent(context.Background(), 9, "Jane@Campus.Test ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolution.Strategy != StrategyPartnerMatch {
		t.Fatalf("expected strategy %s, got %s", StrategyPartnerMatch, resolution.Strategy)
	}
	if resolution.Record.RecordID != 501 {
		t.Fatalf("expected record 501, got %d", resolution.Record.RecordID)
	}
	if resolution.Record.DisplayName != "Jane Q Doe" {
		t.Fatalf("expected display name from full name, got %q", resolution.Record.DisplayName)
	}
	if resolution.Record.RegistrationNumber != "GR-2041" {
		t.Fatalf("expected registration GR-2041, got %q", resolution.Record.RegistrationNumber)
	}
	if resolution.Record.PartnerID != 77 || resolution.Record.UserID != 31 {
		t.Fatalf("expected relation ids 77/31, got %d/%d", resolution.Record.PartnerID, resolution.Record.UserID)
	}
	if resolution.Record.PhoneNumber != "555-0101" {
		t.Fatalf("expected mobile fallback for phone, got %q", resolution.Record.PhoneNumber)
	}
	if resolution.Record.IsAPIUser {
		t.Fatal("expected a real student record, not the degraded fallback")
	}
	if len(resolution.Raw) == 0 {
		t.Fatal("expected the raw remote record to be kept")
	}
}

func TestResolveStudentFallsBackToUserMatch(t *testing.T) {
	reader := &scriptedReader{
		respond: func(model string, domain []any) ([]map[string]any, error) {
			switch model {
			case core.ModelDirectoryUsers:
				// Account without a linked contact.
				return []map[string]any{{
					"id":         float64(31),
					"login":      "jane@campus.test",
					"partner_id": false,
				}}, nil
			case core.ModelStudents:
				if domainMatches(domain, fmt.Sprint([]any{[]any{"user_id", "=", int64(31)}})) {
					return []map[string]any{studentRaw()}, nil
				}
				return nil, nil
			default:
				return nil, nil
			}
		},
	}
	resolver := NewResolver(reader)

	resolution, err := resolver.ResolveStudent(context.Background(), 9, "jane@campus.test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolution.Strategy != StrategyUserMatch {
		t.Fatalf("expected strategy %s, got %s", StrategyUserMatch, resolution.Strategy)
	}
}

func TestResolveStudentContactFallback(t *testing.T) {
	reader := &scriptedReader{
		respond: func(model string, domain []any) ([]map[string]any, error) {
			switch model {
			case core.ModelDirectoryUsers:
				return nil, nil
			case core.ModelContacts:
				return []map[string]any{{"id": float64(88), "name": "Jane Q Doe"}}, nil
			case core.ModelStudents:
				if domainMatches(domain, fmt.Sprint([]any{[]any{"partner_id", "=", int64(88)}})) {
					return []map[string]any{studentRaw()}, nil
				}
				return nil, nil
			default:
				return nil, nil
			}
		},
	}
	resolver := NewResolver(reader)

	resolution, err := resolver.ResolveStudent(context.Background(), 9, "jane@campus.test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolution.Strategy != StrategyContactMatch {
		t.Fatalf("expected strategy %s, got %s", StrategyContactMatch, resolution.Strategy)
	}
}

func TestResolveStudentAPIUserFallback(t *testing.T) {
	reader := &scriptedReader{
		respond: func(model string, domain []any) ([]map[string]any, error) {
			switch model {
			case core.ModelDirectoryUsers:
				if domainMatches(domain, fmt.Sprint([]any{[]any{"id", "=", int64(9)}})) {
					return []map[string]any{{
						"id":         float64(9),
						"name":       "Bridge Service",
						"login":      "svc@campus.test",
						"partner_id": []any{float64(3), "Bridge Service"},
					}}, nil
				}
				return nil, nil
			default:
				return nil, nil
			}
		},
	}
	resolver := NewResolver(reader)

	resolution, err := resolver.ResolveStudent(context.Background(), 9, "missing@campus.test")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolution.Strategy != StrategyAPIUserFallback {
		t.Fatalf("expected strategy %s, got %s", StrategyAPIUserFallback, resolution.Strategy)
	}
	record := resolution.Record
	if !record.IsAPIUser {
		t.Fatal("expected the degraded record to flag is_api_user")
	}
	if record.RegistrationNumber != "API-9" {
		t.Fatalf("expected registration API-9, got %q", record.RegistrationNumber)
	}
	if record.DisplayName != "Bridge Service" {
		t.Fatalf("expected display name Bridge Service, got %q", record.DisplayName)
	}
	if record.PartnerID != 3 || record.UserID != 9 {
		t.Fatalf("expected relation ids 3/9, got %d/%d", record.PartnerID, record.UserID)
	}
}

func TestResolveStudentExhaustedChain(t *testing.T) {
	resolver := NewResolver(&scriptedReader{})

	_, err := resolver.ResolveStudent(context.Background(), 9, "missing@campus.test")
	if err == nil {
		t.Fatal("expected an error when every strategy misses")
	}
	if !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	var notFound *StudentNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected StudentNotFoundError, got %T", err)
	}
	if notFound.Email != "missing@campus.test" {
		t.Fatalf("expected the email on the error, got %q", notFound.Email)
	}
}

func TestResolveStudentPropagatesRemoteFailure(t *testing.T) {
	remoteErr := errors.New("remote endpoint returned status 502")
	resolver := NewResolver(&scriptedReader{
		respond: func(string, []any) ([]map[string]any, error) {
			return nil, remoteErr
		},
	})

	_, err := resolver.ResolveStudent(context.Background(), 9, "jane@campus.test")
	if !errors.Is(err, remoteErr) {
		t.Fatalf("expected the remote failure to propagate, got %v", err)
	}
}

func TestResolveStudentNoEmailDegradesToAPIUser(t *testing.T) {
	reader := &scriptedReader{
		respond: func(model string, domain []any) ([]map[string]any, error) {
			if model != core.ModelDirectoryUsers {
				t.Fatalf("unexpected model %s without an email", model)
			}
			if !domainMatches(domain, fmt.Sprint([]any{[]any{"id", "=", int64(9)}})) {
				t.Fatalf("unexpected directory domain %v", domain)
			}
			return []map[string]any{{
				"id":         float64(9),
				"name":       "Bridge Service",
				"login":      "svc@campus.test",
				"partner_id": []any{float64(3), "Bridge Service"},
			}}, nil
		},
	}
	resolver := NewResolver(reader)

	resolution, err := resolver.ResolveStudent(context.Background(), 9, "   ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resolution.Strategy != StrategyAPIUserFallback {
		t.Fatalf("expected strategy %s, got %s", StrategyAPIUserFallback, resolution.Strategy)
	}
	if !resolution.Record.IsAPIUser {
		t.Fatal("expected the degraded record to flag is_api_user")
	}
	if resolution.Record.RegistrationNumber != "API-9" {
		t.Fatalf("expected registration API-9, got %q", resolution.Record.RegistrationNumber)
	}
	if len(reader.calls) != 1 {
		t.Fatalf("expected only the session's own record lookup, got %d calls", len(reader.calls))
	}
}

func TestNormalizeStudentComposesDisplayName(t *testing.T) {
	raw := studentRaw()
	raw["name"] = false
	raw["middle_name"] = ""

	record := normalizeStudent(raw)
	if record.DisplayName != "Jane Doe" {
		t.Fatalf("expected composed display name Jane Doe, got %q", record.DisplayName)
	}
}

func TestRelationIDShapes(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int64
	}{
		{"pair", []any{float64(4), "Label"}, 4},
		{"empty pair", []any{}, 0},
		{"false", false, 0},
		{"scalar", float64(6), 6},
		{"nil", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := relationID(tc.value); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
