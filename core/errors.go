package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	BridgeErrorBadInput      = "BRIDGE_BAD_INPUT"
	BridgeErrorAuthFailed    = "BRIDGE_AUTH_FAILED"
	BridgeErrorRemoteCall    = "BRIDGE_REMOTE_CALL_FAILED"
	BridgeErrorNoResult      = "BRIDGE_NO_RESULT"
	BridgeErrorResolution    = "BRIDGE_RESOLUTION_FAILED"
	BridgeErrorUnknownAction = "BRIDGE_UNKNOWN_ACTION"
	BridgeErrorInternal      = "BRIDGE_INTERNAL_ERROR"
)

func bridgeErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureBridgeErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "session handle"):
		return newBridgeError(err.Error(), goerrors.CategoryAuth, BridgeErrorAuthFailed)
	case strings.Contains(msg, "no user or student"):
		return newBridgeError(err.Error(), goerrors.CategoryNotFound, BridgeErrorResolution)
	case strings.Contains(msg, "remote"), strings.Contains(msg, "transport"):
		return newBridgeError(err.Error(), goerrors.CategoryExternal, BridgeErrorRemoteCall)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newBridgeError(err.Error(), goerrors.CategoryBadInput, BridgeErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureBridgeErrorEnvelope(mapped)
}

func newBridgeError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureBridgeErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureBridgeErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = bridgeHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultBridgeTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultBridgeTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return BridgeErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return BridgeErrorAuthFailed
	case goerrors.CategoryNotFound:
		return BridgeErrorNoResult
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return BridgeErrorRemoteCall
	default:
		return BridgeErrorInternal
	}
}

func bridgeHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
