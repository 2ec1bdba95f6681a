// Package query exposes the bridge's read operations as typed messages for
// the query bus.
package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-erp-bridge/core"
)

const (
	TypeResolveStudent = "bridge.query.student.resolve"
	TypeListActivity   = "bridge.query.activity.list"
	TypeDispatchAction = "bridge.query.action.dispatch"
)

type ResolveStudentMessage struct {
	Session int64
	Email   string
}

func (ResolveStudentMessage) Type() string { return TypeResolveStudent }

// Validate requires only the session handle. An absent email is valid: the
// resolver degrades it to the service-account fallback.
func (m ResolveStudentMessage) Validate() error {
	if m.Session <= 0 {
		return fmt.Errorf("query: session handle is required")
	}
	return nil
}

type ListActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListActivityMessage) Type() string { return TypeListActivity }

func (m ListActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return fmt.Errorf("query: page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return fmt.Errorf("query: per_page must be >= 0")
	}
	return nil
}

type DispatchActionMessage struct {
	Request core.DispatchRequest
}

func (DispatchActionMessage) Type() string { return TypeDispatchAction }

func (m DispatchActionMessage) Validate() error {
	if strings.TrimSpace(m.Request.Action) == "" {
		return fmt.Errorf("query: action is required")
	}
	return nil
}
