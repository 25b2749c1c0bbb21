package command

import (
	"context"
	"io"

	gocommand "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-aidimport/codelist"
	"github.com/goliatone/go-aidimport/parser"
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/goliatone/go-aidimport/resolver"
	"github.com/goliatone/go-aidimport/session"
	"github.com/goliatone/go-aidimport/validator"
)

// MappingRepository reads and writes persisted code mapping decisions.
type MappingRepository interface {
	session.MappingStore
	FindMapping(ctx context.Context, field types.Field, raw string) (*codelist.CodeMapping, error)
}

// ImportDocumentInput opens a resolution session over an uploaded document.
type ImportDocumentInput struct {
	Reader       io.Reader
	DocumentName string
	// Result receives the opened session.
	Result **session.Session
}

// Type implements gocommand.Message.
func (ImportDocumentInput) Type() string {
	return "command.aidimport.document.import"
}

// Validate implements gocommand.Message.
func (input ImportDocumentInput) Validate() error {
	switch {
	case input.Reader == nil:
		return ErrDocumentRequired
	case input.Result == nil:
		return ErrResultRequired
	default:
		return nil
	}
}

// ImportDocumentCommandConfig wires the parse and validate collaborators.
type ImportDocumentCommandConfig struct {
	Resolver  *resolver.Resolver
	Validator *validator.Validator
	// Mappings is consulted twice: saved mappings are auto-applied when the
	// session opens, and new decisions made on the session are persisted.
	Mappings MappingRepository
	Logger   types.Logger
}

// ImportDocumentCommand runs the read-only front half of the pipeline: parse,
// resolve, validate, and open the session. Nothing is persisted.
type ImportDocumentCommand struct {
	resolver  *resolver.Resolver
	validator *validator.Validator
	mappings  MappingRepository
	logger    types.Logger
}

// NewImportDocumentCommand constructs the import handler.
func NewImportDocumentCommand(cfg ImportDocumentCommandConfig) (*ImportDocumentCommand, error) {
	if cfg.Resolver == nil {
		return nil, goerrors.New("aidimport: import command requires a resolver", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}
	if cfg.Validator == nil {
		return nil, goerrors.New("aidimport: import command requires a validator", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &ImportDocumentCommand{
		resolver:  cfg.Resolver,
		validator: cfg.Validator,
		mappings:  cfg.Mappings,
		logger:    logger,
	}, nil
}

var _ gocommand.Commander[ImportDocumentInput] = (*ImportDocumentCommand)(nil)

// Execute parses and validates the document, then opens a session with saved
// code mappings already applied.
func (c *ImportDocumentCommand) Execute(ctx context.Context, input ImportDocumentInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	doc, err := parser.Parse(input.Reader)
	if err != nil {
		return err
	}

	_, resolveIssues, err := c.resolver.Resolve(ctx, doc)
	if err != nil {
		return err
	}
	validateIssues, err := c.validator.Validate(ctx, doc)
	if err != nil {
		return err
	}

	sessCfg := session.Config{Document: doc, Logger: c.logger}
	if c.mappings != nil {
		sessCfg.Mappings = c.mappings
	}
	sess, err := session.New(sessCfg)
	if err != nil {
		return err
	}
	if err := sess.ApplyValidation(append(resolveIssues, validateIssues...)); err != nil {
		return err
	}
	if err := c.applySavedMappings(ctx, sess); err != nil {
		return err
	}

	summary := sess.Summary()
	c.logger.Info("import session opened",
		"document", input.DocumentName,
		"state", string(summary.State),
		"blocking", summary.BlockingCount,
		"warnings", summary.WarningCount)

	*input.Result = sess
	return nil
}

// applySavedMappings clears unmapped_code issues whose raw values were mapped
// during an earlier import.
func (c *ImportDocumentCommand) applySavedMappings(ctx context.Context, sess *session.Session) error {
	if c.mappings == nil {
		return nil
	}
	seen := make(map[types.CodeMappingKey]bool)
	for _, issue := range sess.Issues() {
		if issue.Kind != types.IssueUnmappedCode {
			continue
		}
		key := types.CodeMappingKey{Field: issue.Field, Raw: issue.Raw}
		if seen[key] {
			continue
		}
		seen[key] = true
		saved, err := c.mappings.FindMapping(ctx, issue.Field, issue.Raw)
		if err != nil {
			return err
		}
		if saved == nil {
			continue
		}
		if err := sess.ApplyStoredMapping(issue.Field, issue.Raw, saved.SystemCode); err != nil {
			return err
		}
	}
	return nil
}
