// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package rlog is the process-wide structured-logging hookup used by
// rhi and its backends. It mirrors the teacher's single global logger
// convention (github.com/gviegas/scene's driver package logs directly via
// the standard log package) but routes through zap so severities and
// structured fields survive into real log pipelines.
package rlog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu sync.RWMutex
	l  = zap.NewNop().Sugar()
)

// Set installs the process-wide logger. Passing nil restores a no-op
// logger. Output is discarded until Set is called; nothing in this
// module calls it.
func Set(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		l = zap.NewNop().Sugar()
		return
	}
	l = logger.Sugar()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return l
}

// Debugf logs at debug level.
func Debugf(format string, args ...any) { get().Debugf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...any) { get().Infof(format, args...) }

// Warnf logs at warn level. The "warn, don't fail" paths (missing wanted
// instance layers or extensions, fallback queue family, unmapped swapchain
// format, root-signature bindings merged by (type, set, binding), a
// rootcbv prefix ignored on an array, a failed loader request) go
// through this.
func Warnf(format string, args ...any) { get().Warnf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...any) { get().Errorf(format, args...) }
