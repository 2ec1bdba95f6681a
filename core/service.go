package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

const defaultModelDataLimit = 10

// Service dispatches inbound proxy actions against the remote ERP. Every
// dispatched call authenticates its own session; nothing is cached or shared
// across calls except the immutable configuration.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	caller          RemoteCaller
	authenticator   SessionAuthenticator
	modelReader     ModelReader
	resolver        StudentResolver
	activitySink    ActivitySink
	now             func() time.Time
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("erp-bridge", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("erp-bridge"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.activitySink == nil {
		builder.activitySink = NopActivitySink{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		caller:          builder.caller,
		authenticator:   builder.authenticator,
		modelReader:     builder.modelReader,
		resolver:        builder.resolver,
		activitySink:    builder.activitySink,
		now:             builder.now,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Dispatch validates the action, authenticates a fresh session, runs the
// matching handler, and wraps the outcome as an OperationResult. A missing
// action is the only structural failure returned as an error; everything the
// handlers produce, success or not, becomes a result.
func (s *Service) Dispatch(ctx context.Context, req DispatchRequest) (OperationResult, error) {
	if s == nil {
		return OperationResult{}, s.internalError("core: service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rawAction := strings.TrimSpace(req.Action)
	if rawAction == "" {
		return OperationResult{}, s.badInputError("core: action is required")
	}

	requestID := uuid.NewString()
	startedAt := s.now()
	fields := map[string]any{"request_id": requestID}

	action, known := ParseAction(rawAction)
	if !known {
		result := s.failureResult(fmt.Sprintf(
			"unknown action %q; valid actions: %s",
			rawAction,
			strings.Join(ActionNames(), ", "),
		))
		s.observeAction(ctx, startedAt, "unknown_action", nil, fields)
		s.recordActivity(ctx, requestID, rawAction, 0, startedAt, result, map[string]any{
			"error_code": BridgeErrorUnknownAction,
		})
		return result, nil
	}
	fields["action"] = string(action)

	session, err := s.authenticate(ctx)
	if err != nil {
		result := s.failureResult(s.errorMessage(err))
		s.observeAction(ctx, startedAt, string(action), err, fields)
		s.recordActivity(ctx, requestID, string(action), 0, startedAt, result, nil)
		return result, nil
	}
	fields["uid"] = session

	payload, message, err := s.runHandler(ctx, action, session, req)
	var result OperationResult
	if err != nil {
		result = s.failureResult(s.errorMessage(err))
	} else {
		result = s.successResult(message, payload)
	}
	s.observeAction(ctx, startedAt, string(action), err, fields)
	s.recordActivity(ctx, requestID, string(action), session, startedAt, result, nil)
	return result, nil
}

func (s *Service) runHandler(
	ctx context.Context,
	action Action,
	session int64,
	req DispatchRequest,
) (map[string]any, string, error) {
	switch action {
	case ActionTestConnection:
		return s.handleTestConnection(session)
	case ActionGetUserInfo:
		return s.handleGetUserInfo(ctx, session)
	case ActionSearchStudent:
		return s.handleSearchStudent(ctx, session, req.Email)
	case ActionGetAllStudents:
		return s.handleGetAllStudents(ctx, session, req.Limit)
	case ActionGetModels:
		return s.handleGetModels(ctx, session)
	case ActionGetModelFields:
		return s.handleGetModelFields(ctx, session, req.Model)
	case ActionGetModelData:
		return s.handleGetModelData(ctx, session, req.Model, req.Limit)
	default:
		return nil, "", s.internalError(fmt.Sprintf("core: no handler for action %q", action))
	}
}

func (s *Service) authenticate(ctx context.Context) (int64, error) {
	if s.authenticator == nil {
		return 0, s.internalError("core: session authenticator is not configured")
	}
	session, err := s.authenticator.Authenticate(ctx)
	if err != nil {
		return 0, err
	}
	if session <= 0 {
		return 0, s.newError("core: authentication returned no session handle", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode(BridgeErrorAuthFailed)
	}
	return session, nil
}

func (s *Service) handleTestConnection(session int64) (map[string]any, string, error) {
	return map[string]any{"uid": session}, "connection successful", nil
}

func (s *Service) handleGetUserInfo(ctx context.Context, session int64) (map[string]any, string, error) {
	reader, err := s.reader()
	if err != nil {
		return nil, "", err
	}
	records, err := reader.SearchRead(
		ctx,
		session,
		ModelDirectoryUsers,
		[]any{[]any{"id", "=", session}},
		DirectoryUserFields(),
		1,
	)
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", s.newError("core: authenticated user record not found", goerrors.CategoryNotFound).
			WithTextCode(BridgeErrorNoResult)
	}
	return map[string]any{
		"uid":          session,
		"user_details": records[0],
	}, "user info retrieved", nil
}

func (s *Service) handleSearchStudent(ctx context.Context, session int64, email string) (map[string]any, string, error) {
	if s.resolver == nil {
		return nil, "", s.internalError("core: student resolver is not configured")
	}
	resolution, err := s.resolver.ResolveStudent(ctx, session, email)
	if err != nil {
		return nil, "", err
	}
	payload := map[string]any{
		"student":  resolution.Record,
		"strategy": resolution.Strategy,
	}
	if len(resolution.Raw) > 0 {
		payload["raw_student"] = resolution.Raw
	}
	message := "student resolved"
	if resolution.Record.IsAPIUser {
		message = "no student associated; returning service-account identity"
	}
	return payload, message, nil
}

func (s *Service) handleGetAllStudents(ctx context.Context, session int64, limit int) (map[string]any, string, error) {
	reader, err := s.reader()
	if err != nil {
		return nil, "", err
	}
	if limit < 0 {
		return nil, "", s.badInputError("core: limit must not be negative")
	}
	records, err := reader.SearchRead(ctx, session, ModelStudents, []any{}, StudentFields(), limit)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{
		"students": records,
		"count":    len(records),
	}, fmt.Sprintf("%d students retrieved", len(records)), nil
}

func (s *Service) handleGetModels(ctx context.Context, session int64) (map[string]any, string, error) {
	reader, err := s.reader()
	if err != nil {
		return nil, "", err
	}
	records, err := reader.SearchRead(ctx, session, ModelRegistry, []any{}, []string{"model", "name"}, 0)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{
		"models": records,
		"count":  len(records),
	}, fmt.Sprintf("%d models retrieved", len(records)), nil
}

func (s *Service) handleGetModelFields(ctx context.Context, session int64, model string) (map[string]any, string, error) {
	reader, err := s.reader()
	if err != nil {
		return nil, "", err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, "", s.badInputError("core: model is required")
	}
	fields, err := reader.FieldsGet(ctx, session, model)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{
		"model":  model,
		"fields": fields,
		"count":  len(fields),
	}, fmt.Sprintf("%d fields retrieved", len(fields)), nil
}

func (s *Service) handleGetModelData(ctx context.Context, session int64, model string, limit int) (map[string]any, string, error) {
	reader, err := s.reader()
	if err != nil {
		return nil, "", err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, "", s.badInputError("core: model is required")
	}
	if limit < 0 {
		return nil, "", s.badInputError("core: limit must not be negative")
	}
	if limit == 0 {
		limit = defaultModelDataLimit
	}
	records, err := reader.SearchRead(ctx, session, model, []any{}, nil, limit)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{
		"model":   model,
		"records": records,
		"count":   len(records),
	}, fmt.Sprintf("%d records retrieved", len(records)), nil
}

func (s *Service) reader() (ModelReader, error) {
	if s.modelReader == nil {
		return nil, s.internalError("core: model reader is not configured")
	}
	return s.modelReader, nil
}

func (s *Service) successResult(message string, payload map[string]any) OperationResult {
	return OperationResult{
		Success:   true,
		Message:   message,
		Timestamp: s.now(),
		Payload:   payload,
	}
}

func (s *Service) failureResult(message string) OperationResult {
	return OperationResult{
		Success:   false,
		Message:   message,
		Timestamp: s.now(),
	}
}

func (s *Service) errorMessage(err error) string {
	if err == nil {
		return ""
	}
	if s.errorMapper != nil {
		if mapped := s.errorMapper(err); mapped != nil && strings.TrimSpace(mapped.Message) != "" {
			return mapped.Message
		}
	}
	return err.Error()
}

func (s *Service) recordActivity(
	ctx context.Context,
	requestID string,
	action string,
	session int64,
	startedAt time.Time,
	result OperationResult,
	metadata map[string]any,
) {
	if s.activitySink == nil {
		return
	}
	status := ActivityStatusOK
	if !result.Success {
		status = ActivityStatusFailed
	}
	entry := ActivityEntry{
		ID:         requestID,
		Action:     action,
		Status:     status,
		Message:    result.Message,
		SessionUID: session,
		DurationMS: s.now().Sub(startedAt).Milliseconds(),
		Metadata:   metadata,
		CreatedAt:  s.now(),
	}
	if err := s.activitySink.Record(ctx, entry); err != nil {
		s.logError(ctx, "activity record failed", map[string]any{
			"request_id": requestID,
			"action":     action,
			"error":      err.Error(),
		})
	}
}

func (s *Service) newError(message string, category goerrors.Category) *goerrors.Error {
	factory := goerrors.New
	if s != nil && s.errorFactory != nil {
		factory = s.errorFactory
	}
	return factory(message, category)
}

func (s *Service) badInputError(message string) error {
	return s.newError(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(BridgeErrorBadInput)
}

func (s *Service) internalError(message string) error {
	return s.newError(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(BridgeErrorInternal)
}
