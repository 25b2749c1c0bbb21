package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-aidimport/importer"
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/goliatone/go-aidimport/session"
	"github.com/google/uuid"
)

// CommitBatchInput commits a ready session to storage.
type CommitBatchInput struct {
	Session      *session.Session
	DocumentName string
	ActorID      uuid.UUID
	// Result receives the per-entity counts and failures.
	Result *types.ImportBatchResult
}

// Type implements gocommand.Message.
func (CommitBatchInput) Type() string {
	return "command.aidimport.batch.commit"
}

// Validate implements gocommand.Message.
func (input CommitBatchInput) Validate() error {
	switch {
	case input.Session == nil:
		return ErrSessionRequired
	case input.Result == nil:
		return ErrResultRequired
	default:
		return nil
	}
}

// CommitBatchCommandConfig wires the commit handler.
type CommitBatchCommandConfig struct {
	Importer *importer.Importer
}

// CommitBatchCommand drains a session into the database. The session must be
// ReadyToImport; surviving warnings ride along into the import log.
type CommitBatchCommand struct {
	importer *importer.Importer
}

// NewCommitBatchCommand constructs the commit handler.
func NewCommitBatchCommand(cfg CommitBatchCommandConfig) (*CommitBatchCommand, error) {
	if cfg.Importer == nil {
		return nil, goerrors.New("aidimport: commit command requires an importer", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}
	return &CommitBatchCommand{importer: cfg.Importer}, nil
}

var _ gocommand.Commander[CommitBatchInput] = (*CommitBatchCommand)(nil)

// Execute verifies the session is ready, commits the batch, and seals the
// session so a second commit of the same upload is refused.
func (c *CommitBatchCommand) Execute(ctx context.Context, input CommitBatchInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	sess := input.Session
	if err := sess.EnsureReady(); err != nil {
		return err
	}

	result, err := c.importer.Commit(ctx, importer.Batch{
		Document:     sess.Document(),
		Resolution:   sess.Resolution(),
		Warnings:     sess.Issues(),
		DocumentName: input.DocumentName,
		ActorID:      input.ActorID,
	})
	if err != nil {
		return err
	}
	if err := sess.MarkCommitted(result); err != nil {
		return err
	}

	*input.Result = *result
	return nil
}
