// Package identity maps an external email identity to a normalized academic
// record through an ordered fallback chain: directory account by partner,
// directory account by user, plain contact, and finally the degraded
// service-account record.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-erp-bridge/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	StrategyPartnerMatch    = "partner_match"
	StrategyUserMatch       = "user_match"
	StrategyContactMatch    = "contact_match"
	StrategyAPIUserFallback = "api_user_fallback"
)

var ErrStudentNotFound = errors.New("identity: no user or student found")

type StudentNotFoundError struct {
	Email string
	Cause error
}

func (e *StudentNotFoundError) Error() string {
	if e == nil {
		return ErrStudentNotFound.Error()
	}
	message := ErrStudentNotFound.Error()
	if email := strings.TrimSpace(e.Email); email != "" {
		message += " for " + email
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *StudentNotFoundError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrStudentNotFound
	}
	return errors.Join(ErrStudentNotFound, e.Cause)
}

func (e *StudentNotFoundError) ToBridgeError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.BridgeErrorResolution)
}

func studentNotFound(email string, cause error) error {
	return &StudentNotFoundError{Email: email, Cause: cause}
}

// Resolver walks the fallback chain against the remote data surface. Each
// strategy either yields a resolution, falls through, or aborts the chain
// with a remote failure.
type Resolver struct {
	reader core.ModelReader
}

func NewResolver(reader core.ModelReader) *Resolver {
	return &Resolver{reader: reader}
}

type strategy struct {
	name string
	run  func(ctx context.Context) (core.StudentResolution, bool, error)
}

func (r *Resolver) ResolveStudent(ctx context.Context, session int64, email string) (core.StudentResolution, error) {
	if r == nil || r.reader == nil {
		return core.StudentResolution{}, goerrors.New(
			"identity: model reader is not configured",
			goerrors.CategoryInternal,
		).WithCode(http.StatusInternalServerError).WithTextCode(core.BridgeErrorInternal)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if ctx == nil {
		ctx = context.Background()
	}

	// An absent email has nothing to match against; the chain degrades
	// straight to the service-account record.
	var identity core.ResolvedIdentity
	if email != "" {
		var err error
		identity, err = r.lookupDirectoryUser(ctx, session, email)
		if err != nil {
			return core.StudentResolution{}, err
		}
	}

	for _, candidate := range r.strategies(session, email, identity) {
		resolution, found, err := candidate.run(ctx)
		if err != nil {
			return core.StudentResolution{}, err
		}
		if found {
			resolution.Strategy = candidate.name
			return resolution, nil
		}
	}
	return core.StudentResolution{}, studentNotFound(email, nil)
}

// strategies is the fallback chain in precedence order. Keeping it as a
// list keeps the precedence auditable in one place.
func (r *Resolver) strategies(session int64, email string, identity core.ResolvedIdentity) []strategy {
	return []strategy{
		{
			name: StrategyPartnerMatch,
			run: func(ctx context.Context) (core.StudentResolution, bool, error) {
				if identity.PartnerID <= 0 {
					return core.StudentResolution{}, false, nil
				}
				return r.studentBy(ctx, session, []any{"partner_id", "=", identity.PartnerID})
			},
		},
		{
			name: StrategyUserMatch,
			run: func(ctx context.Context) (core.StudentResolution, bool, error) {
				if identity.UserID <= 0 {
					return core.StudentResolution{}, false, nil
				}
				return r.studentBy(ctx, session, []any{"user_id", "=", identity.UserID})
			},
		},
		{
			name: StrategyContactMatch,
			run: func(ctx context.Context) (core.StudentResolution, bool, error) {
				if email == "" {
					return core.StudentResolution{}, false, nil
				}
				contactID, err := r.lookupContact(ctx, session, email)
				if err != nil {
					return core.StudentResolution{}, false, err
				}
				if contactID <= 0 {
					return core.StudentResolution{}, false, nil
				}
				return r.studentBy(ctx, session, []any{"partner_id", "=", contactID})
			},
		},
		{
			name: StrategyAPIUserFallback,
			run: func(ctx context.Context) (core.StudentResolution, bool, error) {
				return r.apiUserResolution(ctx, session)
			},
		},
	}
}

// lookupDirectoryUser finds the remote account matching the email on either
// its login or its contact email. A miss is not an error; the chain falls
// through to the contact lookup.
func (r *Resolver) lookupDirectoryUser(ctx context.Context, session int64, email string) (core.ResolvedIdentity, error) {
	records, err := r.reader.SearchRead(
		ctx,
		session,
		core.ModelDirectoryUsers,
		[]any{"|", []any{"login", "=", email}, []any{"email", "=", email}},
		core.DirectoryUserFields(),
		1,
	)
	if err != nil {
		return core.ResolvedIdentity{}, err
	}
	if len(records) == 0 {
		return core.ResolvedIdentity{}, nil
	}
	return core.ResolvedIdentity{
		UserID:    readInt(records[0]["id"]),
		PartnerID: relationID(records[0]["partner_id"]),
	}, nil
}

func (r *Resolver) lookupContact(ctx context.Context, session int64, email string) (int64, error) {
	records, err := r.reader.SearchRead(
		ctx,
		session,
		core.ModelContacts,
		[]any{[]any{"email", "=", email}},
		core.ContactFields(),
		1,
	)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return readInt(records[0]["id"]), nil
}

func (r *Resolver) studentBy(ctx context.Context, session int64, filter []any) (core.StudentResolution, bool, error) {
	records, err := r.reader.SearchRead(
		ctx,
		session,
		core.ModelStudents,
		[]any{filter},
		core.StudentFields(),
		1,
	)
	if err != nil {
		return core.StudentResolution{}, false, err
	}
	if len(records) == 0 {
		return core.StudentResolution{}, false, nil
	}
	raw := records[0]
	return core.StudentResolution{
		Record: normalizeStudent(raw),
		Raw:    copyMap(raw),
	}, true, nil
}

// apiUserResolution degrades to the service account's own directory record
// when no academic record matches. The registration number carries the
// "API-<session>" sentinel so callers can tell the degraded shape apart.
func (r *Resolver) apiUserResolution(ctx context.Context, session int64) (core.StudentResolution, bool, error) {
	records, err := r.reader.SearchRead(
		ctx,
		session,
		core.ModelDirectoryUsers,
		[]any{[]any{"id", "=", session}},
		core.DirectoryUserFields(),
		1,
	)
	if err != nil {
		return core.StudentResolution{}, false, err
	}
	if len(records) == 0 {
		return core.StudentResolution{}, false, nil
	}
	raw := records[0]
	record := core.StudentRecord{
		RecordID:           readInt(raw["id"]),
		DisplayName:        readString(raw["name"]),
		EmailAddress:       firstNonEmpty(readString(raw["email"]), readString(raw["login"])),
		RegistrationNumber: fmt.Sprintf("API-%d", session),
		IsActive:           true,
		PartnerID:          relationID(raw["partner_id"]),
		UserID:             readInt(raw["id"]),
		IsAPIUser:          true,
	}
	if record.DisplayName == "" {
		record.DisplayName = record.EmailAddress
	}
	return core.StudentResolution{
		Record: record,
		Raw:    copyMap(raw),
	}, true, nil
}

func normalizeStudent(raw map[string]any) core.StudentRecord {
	first := readString(raw["first_name"])
	middle := readString(raw["middle_name"])
	last := readString(raw["last_name"])
	return core.StudentRecord{
		RecordID:           readInt(raw["id"]),
		DisplayName:        core.ComposeDisplayName(readString(raw["name"]), first, middle, last),
		EmailAddress:       readString(raw["email"]),
		PhoneNumber:        firstNonEmpty(readString(raw["phone"]), readString(raw["mobile"])),
		RegistrationNumber: readString(raw["gr_no"]),
		FirstName:          first,
		MiddleName:         middle,
		LastName:           last,
		BirthDate:          readString(raw["birth_date"]),
		Gender:             readString(raw["gender"]),
		IsActive:           readBool(raw["active"]),
		PartnerID:          relationID(raw["partner_id"]),
		UserID:             relationID(raw["user_id"]),
	}
}

var _ core.StudentResolver = (*Resolver)(nil)
