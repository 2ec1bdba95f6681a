package query

import (
	"context"

	"github.com/goliatone/go-erp-bridge/core"
)

type StudentReader interface {
	ResolveStudent(ctx context.Context, session int64, email string) (core.StudentResolution, error)
}

type ActivityReader interface {
	List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

type ActionDispatcher interface {
	Dispatch(ctx context.Context, req core.DispatchRequest) (core.OperationResult, error)
}

type ResolveStudentQuery struct {
	reader StudentReader
}

func NewResolveStudentQuery(reader StudentReader) *ResolveStudentQuery {
	return &ResolveStudentQuery{reader: reader}
}

func (q *ResolveStudentQuery) Query(ctx context.Context, msg ResolveStudentMessage) (core.StudentResolution, error) {
	if q == nil || q.reader == nil {
		return core.StudentResolution{}, queryDependencyError("query: student reader is required")
	}
	return q.reader.ResolveStudent(ctx, msg.Session, msg.Email)
}

type ListActivityQuery struct {
	reader ActivityReader
}

func NewListActivityQuery(reader ActivityReader) *ListActivityQuery {
	return &ListActivityQuery{reader: reader}
}

func (q *ListActivityQuery) Query(ctx context.Context, msg ListActivityMessage) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, queryDependencyError("query: activity reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}

type DispatchActionQuery struct {
	dispatcher ActionDispatcher
}

func NewDispatchActionQuery(dispatcher ActionDispatcher) *DispatchActionQuery {
	return &DispatchActionQuery{dispatcher: dispatcher}
}

func (q *DispatchActionQuery) Query(ctx context.Context, msg DispatchActionMessage) (core.OperationResult, error) {
	if q == nil || q.dispatcher == nil {
		return core.OperationResult{}, queryDependencyError("query: action dispatcher is required")
	}
	return q.dispatcher.Dispatch(ctx, msg.Request)
}
