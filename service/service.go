package service

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"

	"github.com/goliatone/go-aidimport/codelist"
	"github.com/goliatone/go-aidimport/command"
	"github.com/goliatone/go-aidimport/importer"
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/goliatone/go-aidimport/resolver"
	"github.com/goliatone/go-aidimport/validator"
	"github.com/google/uuid"
)

// Service is the entry point for go-aidimport. It wires the registry, stores,
// and feature gate supplied by the host application into the import pipeline
// commands.
type Service struct {
	cfg      Config
	commands Commands
	queries  Queries
}

// Commands exposes the pipeline command handlers.
type Commands struct {
	ImportDocument  *command.ImportDocumentCommand
	ApplyResolution *command.ApplyResolutionCommand
	CommitBatch     *command.CommitBatchCommand
}

// Queries exposes read-model helpers over the persisted rows.
type Queries struct {
	service *Service
}

// Config captures all required dependencies so callers can provide their own
// instances (bun.DB-backed stores, cached mapping repositories, gates, etc.).
type Config struct {
	// Registry defaults to the embedded IATI code sets when nil.
	Registry codelist.Registry
	Stores   types.Stores
	// Mappings persists code mapping decisions across imports. Optional:
	// without it decisions live only for the session.
	Mappings command.MappingRepository
	// Gate controls the free-text code fallback. Optional; nil keeps
	// unmapped codes blocking.
	Gate              featuregate.FeatureGate
	SeverityOverrides map[types.Field]types.Severity
	Clock             types.Clock
	IDGenerator       types.IDGenerator
	Logger            types.Logger
	MaxLoggedFailures int
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) (*Service, error) {
	norm := normalizeConfig(cfg)
	if err := norm.Stores.Validate(); err != nil {
		return nil, err
	}

	v, err := validator.New(validator.Config{
		Registry:          norm.Registry,
		Gate:              norm.Gate,
		SeverityOverrides: norm.SeverityOverrides,
		Logger:            norm.Logger,
	})
	if err != nil {
		return nil, err
	}

	imp, err := importer.New(importer.Config{
		Stores:            norm.Stores,
		Clock:             norm.Clock,
		Logger:            norm.Logger,
		MaxLoggedFailures: norm.MaxLoggedFailures,
	})
	if err != nil {
		return nil, err
	}

	importCmd, err := command.NewImportDocumentCommand(command.ImportDocumentCommandConfig{
		Resolver: resolver.New(resolver.Config{
			Activities:    norm.Stores.Activities,
			Organizations: norm.Stores.Organizations,
			IDGen:         norm.IDGenerator,
			Logger:        norm.Logger,
		}),
		Validator: v,
		Mappings:  norm.Mappings,
		Logger:    norm.Logger,
	})
	if err != nil {
		return nil, err
	}

	commitCmd, err := command.NewCommitBatchCommand(command.CommitBatchCommandConfig{
		Importer: imp,
	})
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg: norm,
		commands: Commands{
			ImportDocument:  importCmd,
			ApplyResolution: command.NewApplyResolutionCommand(),
			CommitBatch:     commitCmd,
		},
	}
	s.queries = Queries{service: s}
	return s, nil
}

func normalizeConfig(cfg Config) Config {
	if cfg.Registry == nil {
		cfg.Registry = codelist.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Registry returns the codelist registry in use.
func (s *Service) Registry() codelist.Registry {
	return s.cfg.Registry
}

// Stores returns the wired repositories so transports can run their own reads.
func (s *Service) Stores() types.Stores {
	return s.cfg.Stores
}

// Ready reports whether the service has the required dependencies wired in.
func (s *Service) Ready() bool {
	return s != nil &&
		s.cfg.Registry != nil &&
		s.cfg.Stores.Validate() == nil
}

// HealthCheck surfaces missing configuration to upstream transports.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s == nil || s.cfg.Registry == nil {
		return types.ErrMissingRegistry
	}
	return s.cfg.Stores.Validate()
}

// Activity returns the stored activity for an external identifier, or nil
// when none exists.
func (q Queries) Activity(ctx context.Context, identifier string) (*types.Activity, error) {
	return q.service.cfg.Stores.Activities.FindByIdentifier(ctx, identifier)
}

// Organization returns the stored organization for an external reference, or
// nil when none exists.
func (q Queries) Organization(ctx context.Context, ref string) (*types.Organization, error) {
	return q.service.cfg.Stores.Organizations.FindByReference(ctx, ref)
}

// Transactions lists the persisted transactions of one activity.
func (q Queries) Transactions(ctx context.Context, activityID uuid.UUID) ([]*types.Transaction, error) {
	return q.service.cfg.Stores.Transactions.ListByActivity(ctx, activityID)
}

// Budgets lists the persisted budgets of one activity.
func (q Queries) Budgets(ctx context.Context, activityID uuid.UUID) ([]*types.Budget, error) {
	return q.service.cfg.Stores.Budgets.ListByActivity(ctx, activityID)
}

// CodeMappings lists every persisted mapping decision.
func (q Queries) CodeMappings(ctx context.Context) ([]codelist.CodeMapping, error) {
	if q.service.cfg.Mappings == nil {
		return nil, nil
	}
	lister, ok := q.service.cfg.Mappings.(interface {
		ListMappings(ctx context.Context) ([]codelist.CodeMapping, error)
	})
	if !ok {
		return nil, nil
	}
	return lister.ListMappings(ctx)
}
