package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-erp-bridge/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRequestTimeout       = 30 * time.Second
	defaultMaxResponseBodyBytes = 10 << 20 // 10 MiB

	remoteCallPath = "/jsonrpc"
	jsonrpcVersion = "2.0"
	jsonrpcMethod  = "call"

	metadataKindTransportFailure = "transport"
	metadataKindRemoteFailure    = "remote"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Envelope is the stateless value describing one remote-procedure call:
// the target service, the target method, and its positional arguments.
type Envelope struct {
	Service string
	Method  string
	Args    []any
}

type Config struct {
	Endpoint             core.EndpointConfig
	HTTPClient           HTTPDoer
	RequestTimeout       time.Duration
	MaxResponseBodyBytes int64
}

// Client sends JSON-RPC 2.0 envelopes to the remote ERP endpoint. One
// attempt per call, no retry; transport failures and remote-side failures
// both come back as errors, distinguished only by metadata.
type Client struct {
	endpoint             core.EndpointConfig
	httpClient           HTTPDoer
	requestTimeout       time.Duration
	maxResponseBodyBytes int64
	nextID               atomic.Int64
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	maxBody := cfg.MaxResponseBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBodyBytes
	}
	return &Client{
		endpoint:             cfg.Endpoint,
		httpClient:           httpClient,
		requestTimeout:       timeout,
		maxResponseBodyBytes: maxBody,
	}
}

func (c *Client) Call(ctx context.Context, service string, method string, args []any) (any, error) {
	return c.CallEnvelope(ctx, Envelope{Service: service, Method: method, Args: args})
}

func (c *Client) CallEnvelope(ctx context.Context, envelope Envelope) (any, error) {
	if c == nil || c.httpClient == nil {
		return nil, rpcError(
			"rpc: client is not configured",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	service := strings.TrimSpace(envelope.Service)
	method := strings.TrimSpace(envelope.Method)
	if service == "" || method == "" {
		return nil, rpcError(
			"rpc: envelope service and method are required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"service": service, "method": method},
		)
	}
	callURL, err := c.callURL()
	if err != nil {
		return nil, err
	}

	args := envelope.Args
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(map[string]any{
		"jsonrpc": jsonrpcVersion,
		"method":  jsonrpcMethod,
		"params": map[string]any{
			"service": service,
			"method":  method,
			"args":    args,
		},
		"id": c.nextID.Add(1),
	})
	if err != nil {
		return nil, rpcWrapError(
			err,
			goerrors.CategoryBadInput,
			"rpc: encode call envelope",
			http.StatusBadRequest,
			map[string]any{"service": service, "method": method},
		)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if c.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, callURL, bytes.NewReader(body))
	if err != nil {
		return nil, rpcWrapError(
			err,
			goerrors.CategoryBadInput,
			"rpc: create http request",
			http.StatusBadRequest,
			map[string]any{"url": callURL},
		)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, rpcWrapError(
			err,
			goerrors.CategoryExternal,
			"rpc: execute remote call",
			http.StatusBadGateway,
			map[string]any{
				"service": service,
				"method":  method,
				"kind":    metadataKindTransportFailure,
			},
		)
	}
	defer httpRes.Body.Close()

	payload, err := c.decodeBody(httpRes, service, method)
	if err != nil {
		return nil, err
	}

	if remoteErr, ok := payload["error"]; ok && remoteErr != nil {
		return nil, badGateway(
			fmt.Sprintf("rpc: remote call failed: %s", remoteErrorMessage(remoteErr)),
			map[string]any{
				"service":     service,
				"method":      method,
				"status_code": httpRes.StatusCode,
				"kind":        metadataKindRemoteFailure,
			},
		)
	}
	result, ok := payload["result"]
	if !ok {
		// A body without result is the remote convention for a failed
		// authentication or call, not a transport problem.
		return nil, badGateway(
			"rpc: remote response missing result",
			map[string]any{
				"service":     service,
				"method":      method,
				"status_code": httpRes.StatusCode,
				"kind":        metadataKindRemoteFailure,
			},
		)
	}
	return result, nil
}

func (c *Client) decodeBody(httpRes *http.Response, service string, method string) (map[string]any, error) {
	body, readErr := io.ReadAll(io.LimitReader(httpRes.Body, c.maxResponseBodyBytes+1))
	if readErr != nil {
		return nil, rpcWrapError(
			readErr,
			goerrors.CategoryExternal,
			"rpc: read response body",
			http.StatusBadGateway,
			map[string]any{"service": service, "method": method, "kind": metadataKindTransportFailure},
		)
	}
	if int64(len(body)) > c.maxResponseBodyBytes {
		return nil, badGateway(
			fmt.Sprintf("rpc: response body exceeds limit of %d bytes", c.maxResponseBodyBytes),
			map[string]any{"service": service, "method": method, "status_code": httpRes.StatusCode},
		)
	}
	if httpRes.StatusCode < http.StatusOK || httpRes.StatusCode >= http.StatusMultipleChoices {
		return nil, badGateway(
			fmt.Sprintf("rpc: remote endpoint returned status %d", httpRes.StatusCode),
			map[string]any{
				"service":     service,
				"method":      method,
				"status_code": httpRes.StatusCode,
				"kind":        metadataKindRemoteFailure,
			},
		)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, rpcWrapError(
			err,
			goerrors.CategoryExternal,
			"rpc: decode response body",
			http.StatusBadGateway,
			map[string]any{"service": service, "method": method, "kind": metadataKindRemoteFailure},
		)
	}
	return payload, nil
}

func (c *Client) callURL() (string, error) {
	base := strings.TrimSpace(c.endpoint.BaseURL)
	if base == "" {
		return "", rpcError(
			"rpc: endpoint base url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", rpcWrapError(
			err,
			goerrors.CategoryBadInput,
			"rpc: invalid endpoint base url",
			http.StatusBadRequest,
			map[string]any{"base_url": base},
		)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + remoteCallPath
	return parsed.String(), nil
}

func remoteErrorMessage(value any) string {
	payload, ok := value.(map[string]any)
	if !ok {
		return strings.TrimSpace(fmt.Sprint(value))
	}
	if data, ok := payload["data"].(map[string]any); ok {
		if message := strings.TrimSpace(fmt.Sprint(data["message"])); message != "" && message != "<nil>" {
			return message
		}
	}
	if message := strings.TrimSpace(fmt.Sprint(payload["message"])); message != "" && message != "<nil>" {
		return message
	}
	return "unknown remote error"
}

var _ core.RemoteCaller = (*Client)(nil)
