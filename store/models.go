package store

import (
	"time"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrganizationRecord models the organizations row. The external reference is
// nullable: name-only organizations are legal and matched by name instead.
type OrganizationRecord struct {
	bun.BaseModel `bun:"table:organizations"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	IATIIdentifier string    `bun:"iati_identifier,nullzero"`
	Name           string    `bun:"name"`
	OrgType        string    `bun:"org_type"`
	Category       string    `bun:"category"`
	Country        string    `bun:"country"`
	ContactEmail   string    `bun:"contact_email"`
	Website        string    `bun:"website"`
	CreatedAt      time.Time `bun:"created_at"`
	UpdatedAt      time.Time `bun:"updated_at"`
}

// ActivityRecord models the activities row. Narratives and sector allocations
// are stored as JSON documents.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activities"`

	ID                 uuid.UUID                `bun:"id,pk,type:uuid"`
	IATIIdentifier     string                   `bun:"iati_identifier"`
	Title              map[string]string        `bun:"title,type:jsonb"`
	Description        map[string]string        `bun:"description,type:jsonb"`
	StatusCode         string                   `bun:"status_code"`
	PlannedStart       *time.Time               `bun:"planned_start,nullzero"`
	PlannedEnd         *time.Time               `bun:"planned_end,nullzero"`
	ActualStart        *time.Time               `bun:"actual_start,nullzero"`
	ActualEnd          *time.Time               `bun:"actual_end,nullzero"`
	DefaultAidType     string                   `bun:"default_aid_type"`
	DefaultFlowType    string                   `bun:"default_flow_type"`
	DefaultFinanceType string                   `bun:"default_finance_type"`
	DefaultTiedStatus  string                   `bun:"default_tied_status"`
	ReportingOrgID     uuid.UUID                `bun:"reporting_org_id,type:uuid,nullzero"`
	Sectors            []types.SectorAllocation `bun:"sectors,type:jsonb"`
	CreatedAt          time.Time                `bun:"created_at"`
	UpdatedAt          time.Time                `bun:"updated_at"`
}

// TransactionRecord models the transactions row. Humanitarian is NOT NULL with
// a false default so an absent flag round-trips as false, never null.
type TransactionRecord struct {
	bun.BaseModel `bun:"table:transactions"`

	ID                  uuid.UUID  `bun:"id,pk,type:uuid"`
	ActivityID          uuid.UUID  `bun:"activity_id,type:uuid"`
	TypeCode            string     `bun:"type_code"`
	Date                *time.Time `bun:"date,nullzero"`
	Value               float64    `bun:"value"`
	Currency            string     `bun:"currency"`
	ValueDate           *time.Time `bun:"value_date,nullzero"`
	ProviderOrgID       uuid.UUID  `bun:"provider_org_id,type:uuid,nullzero"`
	ProviderOrgName     string     `bun:"provider_org_name"`
	ProviderActivityID  uuid.UUID  `bun:"provider_activity_id,type:uuid,nullzero"`
	ReceiverOrgID       uuid.UUID  `bun:"receiver_org_id,type:uuid,nullzero"`
	ReceiverOrgName     string     `bun:"receiver_org_name"`
	ReceiverActivityID  uuid.UUID  `bun:"receiver_activity_id,type:uuid,nullzero"`
	AidType             string     `bun:"aid_type"`
	FlowType            string     `bun:"flow_type"`
	FinanceType         string     `bun:"finance_type"`
	TiedStatus          string     `bun:"tied_status"`
	DisbursementChannel string     `bun:"disbursement_channel"`
	SectorCode          string     `bun:"sector_code"`
	SectorVocabulary    string     `bun:"sector_vocabulary"`
	Humanitarian        bool       `bun:"humanitarian,notnull,default:false"`
	Description         string     `bun:"description"`
	Reference           string     `bun:"reference"`
	Fingerprint         string     `bun:"fingerprint"`
	CreatedAt           time.Time  `bun:"created_at"`
	UpdatedAt           time.Time  `bun:"updated_at"`
}

// BudgetRecord models the budgets row, shared by budgets and planned
// disbursements.
type BudgetRecord struct {
	bun.BaseModel `bun:"table:budgets"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	ActivityID  uuid.UUID  `bun:"activity_id,type:uuid"`
	TypeCode    string     `bun:"type_code"`
	StatusCode  string     `bun:"status_code"`
	PeriodStart *time.Time `bun:"period_start,nullzero"`
	PeriodEnd   *time.Time `bun:"period_end,nullzero"`
	Value       float64    `bun:"value"`
	Currency    string     `bun:"currency"`
	Fingerprint string     `bun:"fingerprint"`
	CreatedAt   time.Time  `bun:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at"`
}

// ImportLogRecord models the import_logs audit row.
type ImportLogRecord struct {
	bun.BaseModel `bun:"table:import_logs"`

	ID                  uuid.UUID        `bun:"id,pk,type:uuid"`
	DocumentName        string           `bun:"document_name"`
	ActorID             uuid.UUID        `bun:"actor_id,type:uuid,nullzero"`
	OrgsCreated         int              `bun:"orgs_created"`
	OrgsUpdated         int              `bun:"orgs_updated"`
	ActivitiesCreated   int              `bun:"activities_created"`
	ActivitiesUpdated   int              `bun:"activities_updated"`
	TransactionsCreated int              `bun:"transactions_created"`
	TransactionsUpdated int              `bun:"transactions_updated"`
	BudgetsCreated      int              `bun:"budgets_created"`
	BudgetsUpdated      int              `bun:"budgets_updated"`
	FailureCount        int              `bun:"failure_count"`
	WarningCount        int              `bun:"warning_count"`
	Errors              []map[string]any `bun:"errors,type:jsonb"`
	CreatedAt           time.Time        `bun:"created_at"`
}

func orgToDomain(rec *OrganizationRecord) *types.Organization {
	if rec == nil {
		return nil
	}
	return &types.Organization{
		ID:             rec.ID,
		IATIIdentifier: rec.IATIIdentifier,
		Name:           rec.Name,
		OrgType:        rec.OrgType,
		Category:       rec.Category,
		Country:        rec.Country,
		ContactEmail:   rec.ContactEmail,
		Website:        rec.Website,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func orgFromDomain(org types.Organization) *OrganizationRecord {
	return &OrganizationRecord{
		ID:             org.ID,
		IATIIdentifier: org.IATIIdentifier,
		Name:           org.Name,
		OrgType:        org.OrgType,
		Category:       org.Category,
		Country:        org.Country,
		ContactEmail:   org.ContactEmail,
		Website:        org.Website,
		CreatedAt:      org.CreatedAt,
		UpdatedAt:      org.UpdatedAt,
	}
}

func activityToDomain(rec *ActivityRecord) *types.Activity {
	if rec == nil {
		return nil
	}
	return &types.Activity{
		ID:                 rec.ID,
		IATIIdentifier:     rec.IATIIdentifier,
		Title:              types.Narrative(rec.Title).Clone(),
		Description:        types.Narrative(rec.Description).Clone(),
		StatusCode:         rec.StatusCode,
		PlannedStart:       rec.PlannedStart,
		PlannedEnd:         rec.PlannedEnd,
		ActualStart:        rec.ActualStart,
		ActualEnd:          rec.ActualEnd,
		DefaultAidType:     rec.DefaultAidType,
		DefaultFlowType:    rec.DefaultFlowType,
		DefaultFinanceType: rec.DefaultFinanceType,
		DefaultTiedStatus:  rec.DefaultTiedStatus,
		ReportingOrgID:     rec.ReportingOrgID,
		Sectors:            append([]types.SectorAllocation(nil), rec.Sectors...),
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
}

func activityFromDomain(activity types.Activity) *ActivityRecord {
	return &ActivityRecord{
		ID:                 activity.ID,
		IATIIdentifier:     activity.IATIIdentifier,
		Title:              activity.Title.Clone(),
		Description:        activity.Description.Clone(),
		StatusCode:         activity.StatusCode,
		PlannedStart:       activity.PlannedStart,
		PlannedEnd:         activity.PlannedEnd,
		ActualStart:        activity.ActualStart,
		ActualEnd:          activity.ActualEnd,
		DefaultAidType:     activity.DefaultAidType,
		DefaultFlowType:    activity.DefaultFlowType,
		DefaultFinanceType: activity.DefaultFinanceType,
		DefaultTiedStatus:  activity.DefaultTiedStatus,
		ReportingOrgID:     activity.ReportingOrgID,
		Sectors:            append([]types.SectorAllocation(nil), activity.Sectors...),
		CreatedAt:          activity.CreatedAt,
		UpdatedAt:          activity.UpdatedAt,
	}
}

func txToDomain(rec *TransactionRecord) *types.Transaction {
	if rec == nil {
		return nil
	}
	return &types.Transaction{
		ID:                  rec.ID,
		ActivityID:          rec.ActivityID,
		TypeCode:            rec.TypeCode,
		Date:                rec.Date,
		Value:               rec.Value,
		Currency:            rec.Currency,
		ValueDate:           rec.ValueDate,
		ProviderOrgID:       rec.ProviderOrgID,
		ProviderOrgName:     rec.ProviderOrgName,
		ProviderActivityID:  rec.ProviderActivityID,
		ReceiverOrgID:       rec.ReceiverOrgID,
		ReceiverOrgName:     rec.ReceiverOrgName,
		ReceiverActivityID:  rec.ReceiverActivityID,
		AidType:             rec.AidType,
		FlowType:            rec.FlowType,
		FinanceType:         rec.FinanceType,
		TiedStatus:          rec.TiedStatus,
		DisbursementChannel: rec.DisbursementChannel,
		SectorCode:          rec.SectorCode,
		SectorVocabulary:    rec.SectorVocabulary,
		Humanitarian:        rec.Humanitarian,
		Description:         rec.Description,
		Reference:           rec.Reference,
		Fingerprint:         rec.Fingerprint,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
}

func txFromDomain(tx types.Transaction) *TransactionRecord {
	return &TransactionRecord{
		ID:                  tx.ID,
		ActivityID:          tx.ActivityID,
		TypeCode:            tx.TypeCode,
		Date:                tx.Date,
		Value:               tx.Value,
		Currency:            tx.Currency,
		ValueDate:           tx.ValueDate,
		ProviderOrgID:       tx.ProviderOrgID,
		ProviderOrgName:     tx.ProviderOrgName,
		ProviderActivityID:  tx.ProviderActivityID,
		ReceiverOrgID:       tx.ReceiverOrgID,
		ReceiverOrgName:     tx.ReceiverOrgName,
		ReceiverActivityID:  tx.ReceiverActivityID,
		AidType:             tx.AidType,
		FlowType:            tx.FlowType,
		FinanceType:         tx.FinanceType,
		TiedStatus:          tx.TiedStatus,
		DisbursementChannel: tx.DisbursementChannel,
		SectorCode:          tx.SectorCode,
		SectorVocabulary:    tx.SectorVocabulary,
		Humanitarian:        tx.Humanitarian,
		Description:         tx.Description,
		Reference:           tx.Reference,
		Fingerprint:         tx.Fingerprint,
		CreatedAt:           tx.CreatedAt,
		UpdatedAt:           tx.UpdatedAt,
	}
}

func budgetToDomain(rec *BudgetRecord) *types.Budget {
	if rec == nil {
		return nil
	}
	return &types.Budget{
		ID:          rec.ID,
		ActivityID:  rec.ActivityID,
		TypeCode:    rec.TypeCode,
		StatusCode:  rec.StatusCode,
		PeriodStart: rec.PeriodStart,
		PeriodEnd:   rec.PeriodEnd,
		Value:       rec.Value,
		Currency:    rec.Currency,
		Fingerprint: rec.Fingerprint,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func budgetFromDomain(budget types.Budget) *BudgetRecord {
	return &BudgetRecord{
		ID:          budget.ID,
		ActivityID:  budget.ActivityID,
		TypeCode:    budget.TypeCode,
		StatusCode:  budget.StatusCode,
		PeriodStart: budget.PeriodStart,
		PeriodEnd:   budget.PeriodEnd,
		Value:       budget.Value,
		Currency:    budget.Currency,
		Fingerprint: budget.Fingerprint,
		CreatedAt:   budget.CreatedAt,
		UpdatedAt:   budget.UpdatedAt,
	}
}

func logToDomain(rec *ImportLogRecord) *types.ImportLog {
	if rec == nil {
		return nil
	}
	return &types.ImportLog{
		ID:           rec.ID,
		DocumentName: rec.DocumentName,
		ActorID:      rec.ActorID,
		Organizations: types.EntityCounts{
			Created: rec.OrgsCreated, Updated: rec.OrgsUpdated,
		},
		Activities: types.EntityCounts{
			Created: rec.ActivitiesCreated, Updated: rec.ActivitiesUpdated,
		},
		Transactions: types.EntityCounts{
			Created: rec.TransactionsCreated, Updated: rec.TransactionsUpdated,
		},
		Budgets: types.EntityCounts{
			Created: rec.BudgetsCreated, Updated: rec.BudgetsUpdated,
		},
		FailureCount: rec.FailureCount,
		WarningCount: rec.WarningCount,
		Errors:       rec.Errors,
		CreatedAt:    rec.CreatedAt,
	}
}

func logFromDomain(log types.ImportLog) *ImportLogRecord {
	return &ImportLogRecord{
		ID:                  log.ID,
		DocumentName:        log.DocumentName,
		ActorID:             log.ActorID,
		OrgsCreated:         log.Organizations.Created,
		OrgsUpdated:         log.Organizations.Updated,
		ActivitiesCreated:   log.Activities.Created,
		ActivitiesUpdated:   log.Activities.Updated,
		TransactionsCreated: log.Transactions.Created,
		TransactionsUpdated: log.Transactions.Updated,
		BudgetsCreated:      log.Budgets.Created,
		BudgetsUpdated:      log.Budgets.Updated,
		FailureCount:        log.FailureCount,
		WarningCount:        log.WarningCount,
		Errors:              log.Errors,
		CreatedAt:           log.CreatedAt,
	}
}
