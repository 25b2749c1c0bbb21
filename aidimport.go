package aidimport

import "github.com/goliatone/go-aidimport/service"

// Re-export the service package entry point so consumers can do
// `aidimport.New(...)` without importing internal wiring helpers.
type (
	Service  = service.Service
	Config   = service.Config
	Commands = service.Commands
	Queries  = service.Queries
)

// New constructs the go-aidimport runtime using the provided configuration.
func New(cfg Config) (*Service, error) {
	return service.New(cfg)
}

// WrapLogger adapts a glog.Logger into the pipeline's logger interface.
var WrapLogger = service.WrapLogger
