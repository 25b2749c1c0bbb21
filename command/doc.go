// Package command exposes go-command compatible handlers implementing the
// import pipeline (open a resolution session, apply user decisions, commit a
// batch). Commands are wired by the service layer and can be invoked by any
// transport.
package command
