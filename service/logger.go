package service

import (
	"github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-aidimport/pkg/types"
)

// WrapLogger adapts a glog.Logger to the types.Logger the pipeline expects.
func WrapLogger(lgr glog.Logger) types.Logger {
	return &glogAdapter{lgr: lgr}
}

type glogAdapter struct {
	lgr glog.Logger
}

func (a *glogAdapter) Debug(msg string, args ...any) { a.lgr.Debug(msg, args...) }
func (a *glogAdapter) Info(msg string, args ...any)  { a.lgr.Info(msg, args...) }

func (a *glogAdapter) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"error", err}, args...)
	}
	a.lgr.Error(msg, args...)
}
