package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-erp-bridge/core"
)

var (
	_ gocmd.Querier[ResolveStudentMessage, core.StudentResolution] = (*ResolveStudentQuery)(nil)
	_ gocmd.Querier[ListActivityMessage, core.ActivityPage]        = (*ListActivityQuery)(nil)
	_ gocmd.Querier[DispatchActionMessage, core.OperationResult]   = (*DispatchActionQuery)(nil)
)
