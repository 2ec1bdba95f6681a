package rpc

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-erp-bridge/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	serviceObject   = "object"
	methodExecuteKw = "execute_kw"
	modelSearchRead = "search_read"
	modelFieldsGet  = "fields_get"
)

// Executor shapes the positional execute_kw argument list for data
// operations: [database, session, secret, model, method, args, kwargs].
type Executor struct {
	caller   core.RemoteCaller
	database string
	secret   string
}

func NewExecutor(caller core.RemoteCaller, endpoint core.EndpointConfig) *Executor {
	return &Executor{
		caller:   caller,
		database: strings.TrimSpace(endpoint.Database),
		secret:   strings.TrimSpace(endpoint.Secret),
	}
}

func (e *Executor) SearchRead(
	ctx context.Context,
	session int64,
	model string,
	domain []any,
	fields []string,
	limit int,
) ([]map[string]any, error) {
	if err := e.check(session, model); err != nil {
		return nil, err
	}
	if domain == nil {
		domain = []any{}
	}
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	result, err := e.caller.Call(ctx, serviceObject, methodExecuteKw, []any{
		e.database,
		session,
		e.secret,
		strings.TrimSpace(model),
		modelSearchRead,
		[]any{domain},
		kwargs,
	})
	if err != nil {
		return nil, err
	}
	return coerceRecords(result)
}

func (e *Executor) FieldsGet(ctx context.Context, session int64, model string) (map[string]any, error) {
	if err := e.check(session, model); err != nil {
		return nil, err
	}
	result, err := e.caller.Call(ctx, serviceObject, methodExecuteKw, []any{
		e.database,
		session,
		e.secret,
		strings.TrimSpace(model),
		modelFieldsGet,
		[]any{},
		map[string]any{"attributes": []string{"string", "type", "required"}},
	})
	if err != nil {
		return nil, err
	}
	fields, ok := result.(map[string]any)
	if !ok {
		return nil, badGateway(
			fmt.Sprintf("rpc: unexpected fields_get result type %T", result),
			map[string]any{"model": model},
		)
	}
	return fields, nil
}

func (e *Executor) check(session int64, model string) error {
	if e == nil || e.caller == nil {
		return rpcError(
			"rpc: executor is not configured",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if session <= 0 {
		return rpcError(
			"rpc: session handle is required",
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
			nil,
		)
	}
	if strings.TrimSpace(model) == "" {
		return rpcError(
			"rpc: model is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	return nil
}

func coerceRecords(result any) ([]map[string]any, error) {
	items, ok := result.([]any)
	if !ok {
		return nil, badGateway(
			fmt.Sprintf("rpc: unexpected search_read result type %T", result),
			nil,
		)
	}
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, badGateway(
				fmt.Sprintf("rpc: unexpected record type %T", item),
				nil,
			)
		}
		records = append(records, record)
	}
	return records, nil
}

var _ core.ModelReader = (*Executor)(nil)
