// Package store provides the Bun-backed persistence layer: one repository per
// imported entity, plus the import audit log.
package store

import (
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/uptrace/bun"
)

// Config wires every repository against one database handle.
type Config struct {
	DB    *bun.DB
	Clock types.Clock
	IDGen types.IDGenerator
}

// New builds the full repository bundle.
func New(cfg Config) (types.Stores, error) {
	orgs, err := NewOrganizationRepository(OrganizationRepositoryConfig{
		DB: cfg.DB, Clock: cfg.Clock, IDGen: cfg.IDGen,
	})
	if err != nil {
		return types.Stores{}, err
	}
	activities, err := NewActivityRepository(ActivityRepositoryConfig{
		DB: cfg.DB, Clock: cfg.Clock, IDGen: cfg.IDGen,
	})
	if err != nil {
		return types.Stores{}, err
	}
	transactions, err := NewTransactionRepository(TransactionRepositoryConfig{
		DB: cfg.DB, Clock: cfg.Clock, IDGen: cfg.IDGen,
	})
	if err != nil {
		return types.Stores{}, err
	}
	budgets, err := NewBudgetRepository(BudgetRepositoryConfig{
		DB: cfg.DB, Clock: cfg.Clock, IDGen: cfg.IDGen,
	})
	if err != nil {
		return types.Stores{}, err
	}
	logs, err := NewImportLogRepository(ImportLogRepositoryConfig{
		DB: cfg.DB, Clock: cfg.Clock, IDGen: cfg.IDGen,
	})
	if err != nil {
		return types.Stores{}, err
	}
	return types.Stores{
		Organizations: orgs,
		Activities:    activities,
		Transactions:  transactions,
		Budgets:       budgets,
		ImportLogs:    logs,
	}, nil
}
