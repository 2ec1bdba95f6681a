package erpbridge

import (
	"fmt"

	bridgequery "github.com/goliatone/go-erp-bridge/query"
)

// Queries bundles the typed query handlers so callers can register them on a
// go-command dispatcher or invoke them directly.
type Queries struct {
	ResolveStudent *bridgequery.ResolveStudentQuery
	ListActivity   *bridgequery.ListActivityQuery
	DispatchAction *bridgequery.DispatchActionQuery
}

type Facade struct {
	service *Service
	queries Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader bridgequery.ActivityReader
	studentReader  bridgequery.StudentReader
}

func WithActivityReader(reader bridgequery.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

func WithStudentReader(reader bridgequery.StudentReader) FacadeOption {
	return func(options *facadeOptions) {
		options.studentReader = reader
	}
}

func NewFacade(service *Service, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("erpbridge: service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{service: service}
	facade.queries = Queries{
		ResolveStudent: bridgequery.NewResolveStudentQuery(cfg.studentReader),
		ListActivity:   bridgequery.NewListActivityQuery(cfg.activityReader),
		DispatchAction: bridgequery.NewDispatchActionQuery(service),
	}
	return facade, nil
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() *Service {
	if f == nil {
		return nil
	}
	return f.service
}
