package erpbridge

import (
	"github.com/goliatone/go-erp-bridge/auth"
	"github.com/goliatone/go-erp-bridge/core"
	"github.com/goliatone/go-erp-bridge/identity"
	"github.com/goliatone/go-erp-bridge/rpc"
)

type Config = core.Config

type EndpointConfig = core.EndpointConfig

type Option = core.Option

type Service = core.Service

type DispatchRequest = core.DispatchRequest
type OperationResult = core.OperationResult
type StudentRecord = core.StudentRecord
type StudentResolution = core.StudentResolution
type ActivityEntry = core.ActivityEntry
type ActivityFilter = core.ActivityFilter
type ActivityPage = core.ActivityPage

type RemoteCaller = core.RemoteCaller
type SessionAuthenticator = core.SessionAuthenticator
type ModelReader = core.ModelReader
type StudentResolver = core.StudentResolver
type ActivitySink = core.ActivitySink
type ActivityReader = core.ActivityReader
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger               = core.WithLogger
	WithLoggerProvider       = core.WithLoggerProvider
	WithMetricsRecorder      = core.WithMetricsRecorder
	WithErrorFactory         = core.WithErrorFactory
	WithErrorMapper          = core.WithErrorMapper
	WithConfigProvider       = core.WithConfigProvider
	WithOptionsResolver      = core.WithOptionsResolver
	WithRemoteCaller         = core.WithRemoteCaller
	WithSessionAuthenticator = core.WithSessionAuthenticator
	WithModelReader          = core.WithModelReader
	WithStudentResolver      = core.WithStudentResolver
	WithActivitySink         = core.WithActivitySink
	WithClock                = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService builds a dispatcher with only the dependencies supplied through
// options. Most callers want Setup, which wires the remote stack too.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup resolves the configuration, wires the JSON-RPC client, the
// service-account authenticator, and the student resolver against the
// resolved endpoint, and returns a ready dispatcher. Options supplied by the
// caller run after the wired defaults and may replace any of them.
func Setup(cfg Config, opts ...Option) (*Service, error) {
	probe, err := core.NewService(cfg, opts...)
	if err != nil {
		return nil, err
	}
	resolved := probe.Config()

	client := rpc.NewClient(rpc.Config{Endpoint: resolved.Endpoint})
	executor := rpc.NewExecutor(client, resolved.Endpoint)
	authenticator := auth.NewServiceAccountAuthenticator(client, resolved.Endpoint)
	resolver := identity.NewResolver(executor)

	wired := []core.Option{
		core.WithRemoteCaller(client),
		core.WithSessionAuthenticator(authenticator),
		core.WithModelReader(executor),
		core.WithStudentResolver(resolver),
	}
	return core.NewService(cfg, append(wired, opts...)...)
}
