package rpc

import (
	"net/http"

	"github.com/goliatone/go-erp-bridge/core"
	goerrors "github.com/goliatone/go-errors"
)

func rpcError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(rpcTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func rpcWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return rpcError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(rpcTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func rpcTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.BridgeErrorBadInput
	case goerrors.CategoryNotFound:
		return core.BridgeErrorNoResult
	case goerrors.CategoryInternal:
		return core.BridgeErrorInternal
	default:
		return core.BridgeErrorRemoteCall
	}
}

func badGateway(message string, metadata map[string]any) error {
	return rpcError(message, goerrors.CategoryExternal, http.StatusBadGateway, metadata)
}
