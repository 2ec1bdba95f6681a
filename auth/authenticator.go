// Package auth exchanges the configured service-account credentials for a
// remote session handle. Authentication happens once per inbound request;
// handles are never cached or shared across requests.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goliatone/go-erp-bridge/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	serviceCommon      = "common"
	methodAuthenticate = "authenticate"
)

type ServiceAccountAuthenticator struct {
	caller   core.RemoteCaller
	endpoint core.EndpointConfig
}

func NewServiceAccountAuthenticator(caller core.RemoteCaller, endpoint core.EndpointConfig) *ServiceAccountAuthenticator {
	return &ServiceAccountAuthenticator{
		caller:   caller,
		endpoint: endpoint,
	}
}

// Authenticate sends the fixed authentication envelope
// [database, username, secret, {}] and returns the session handle. Anything
// other than a positive integer result is an authentication failure.
func (a *ServiceAccountAuthenticator) Authenticate(ctx context.Context) (int64, error) {
	if a == nil || a.caller == nil {
		return 0, authError("auth: remote caller is not configured", goerrors.CategoryInternal, http.StatusInternalServerError)
	}
	if err := a.endpoint.Validate(); err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryBadInput, "auth: invalid endpoint configuration").
			WithCode(http.StatusBadRequest).
			WithTextCode(core.BridgeErrorBadInput)
	}

	result, err := a.caller.Call(ctx, serviceCommon, methodAuthenticate, []any{
		a.endpoint.Database,
		a.endpoint.Username,
		a.endpoint.Secret,
		map[string]any{},
	})
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryAuth, "auth: authentication call failed").
			WithCode(http.StatusUnauthorized).
			WithTextCode(core.BridgeErrorAuthFailed)
	}

	session := sessionHandle(result)
	if session <= 0 {
		return 0, authError(
			"auth: authentication returned no session handle",
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
		)
	}
	return session, nil
}

// sessionHandle coerces the loosely typed remote result. The remote returns
// false for rejected credentials, which coerces to zero.
func sessionHandle(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func authError(message string, category goerrors.Category, code int) error {
	textCode := core.BridgeErrorAuthFailed
	if category == goerrors.CategoryInternal {
		textCode = core.BridgeErrorInternal
	}
	return goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
}

var _ core.SessionAuthenticator = (*ServiceAccountAuthenticator)(nil)
