package gologger

import (
	glog "github.com/goliatone/go-logger/glog"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Named returns the provider's named logger when available, falling back to
// the resolved logger otherwise.
func Named(name string, provider glog.LoggerProvider, logger glog.Logger) glog.Logger {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	resolvedLogger = glog.Ensure(resolvedLogger)
	if resolvedProvider != nil {
		if named := resolvedProvider.GetLogger(name); named != nil {
			return glog.Ensure(named)
		}
	}
	return resolvedLogger
}
