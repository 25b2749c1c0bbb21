package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field identifies a coded classification checked against the codelist
// registry. Raw values travel with the field name so one mapping decision can
// cover every transaction sharing the same raw code.
type Field string

const (
	FieldTransactionType     Field = "transaction_type"
	FieldFlowType            Field = "flow_type"
	FieldFinanceType         Field = "finance_type"
	FieldAidType             Field = "aid_type"
	FieldTiedStatus          Field = "tied_status"
	FieldDisbursementChannel Field = "disbursement_channel"
	FieldSector              Field = "sector"
	FieldSectorVocabulary    Field = "sector_vocabulary"
	FieldOrganizationType    Field = "organization_type"
	FieldActivityStatus      Field = "activity_status"
	FieldBudgetType          Field = "budget_type"
	FieldBudgetStatus        Field = "budget_status"
	FieldCurrency            Field = "currency"
)

// DefaultLang keys narrative text that carries no xml:lang attribute.
const DefaultLang = "und"

// Narrative maps a language code to its text variant.
type Narrative map[string]string

// Text returns the best display variant: English, then the default key, then
// any remaining language.
func (n Narrative) Text() string {
	if len(n) == 0 {
		return ""
	}
	if v, ok := n["en"]; ok && v != "" {
		return v
	}
	if v, ok := n[DefaultLang]; ok && v != "" {
		return v
	}
	for _, v := range n {
		if v != "" {
			return v
		}
	}
	return ""
}

// Clone returns a detached copy so parsed records can be annotated safely.
func (n Narrative) Clone() Narrative {
	if n == nil {
		return nil
	}
	out := make(Narrative, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

// OrgRole distinguishes the two organization slots on a transaction.
type OrgRole string

const (
	OrgRoleProvider OrgRole = "provider"
	OrgRoleReceiver OrgRole = "receiver"
)

// OrgRef is an organization reference as it appears in the document: an
// external identifier, a display name, or both. A name-only reference is
// valid; it simply cannot be matched against the store.
type OrgRef struct {
	Ref        string
	Name       string
	TypeCode   string
	ActivityID string
}

// Empty reports whether the reference carries no usable information.
func (r OrgRef) Empty() bool {
	return r.Ref == "" && r.Name == ""
}

// SectorAllocation assigns a percentage of an activity to a sector code.
type SectorAllocation struct {
	Code       string
	Vocabulary string
	Percent    float64
}

// ActivityKey is the tagged internal key for an activity reference. It is
// either resolved (points at a persisted row), pending (points at a
// batch-local placeholder the importer swaps for the real key at commit), or
// zero (unresolved, surfaced as a missing_activity issue).
type ActivityKey struct {
	id      uuid.UUID
	pending bool
}

// PendingKey tags a batch-local placeholder for an activity that does not
// exist in the store yet.
func PendingKey(id uuid.UUID) ActivityKey {
	return ActivityKey{id: id, pending: true}
}

// ResolvedKey tags a persisted activity identifier.
func ResolvedKey(id uuid.UUID) ActivityKey {
	return ActivityKey{id: id}
}

// IsZero reports whether the reference is unresolved.
func (k ActivityKey) IsZero() bool { return k.id == uuid.Nil }

// Pending reports whether the key is a batch-local placeholder.
func (k ActivityKey) Pending() bool { return k.pending && k.id != uuid.Nil }

// Resolved reports whether the key points at a persisted activity.
func (k ActivityKey) Resolved() bool { return !k.pending && k.id != uuid.Nil }

// ID returns the underlying identifier (placeholder or persisted).
func (k ActivityKey) ID() uuid.UUID { return k.id }

func (k ActivityKey) String() string {
	switch {
	case k.IsZero():
		return "unresolved"
	case k.pending:
		return "pending(" + k.id.String() + ")"
	default:
		return "resolved(" + k.id.String() + ")"
	}
}

// MalformedField records a raw value that failed type-level cleaning during
// parsing. The validator turns these into malformed_value issues.
type MalformedField struct {
	Name   string
	Raw    string
	Reason string
}

// TransactionCodes groups the coded classifications on a transaction.
type TransactionCodes struct {
	AidType             string
	FlowType            string
	FinanceType         string
	TiedStatus          string
	DisbursementChannel string
	Sector              string
	SectorVocabulary    string
}

// ByField returns the non-empty raw values keyed by their registry field, the
// shape the code validator iterates over.
func (c TransactionCodes) ByField() map[Field]string {
	out := make(map[Field]string, 7)
	put := func(f Field, v string) {
		if v != "" {
			out[f] = v
		}
	}
	put(FieldAidType, c.AidType)
	put(FieldFlowType, c.FlowType)
	put(FieldFinanceType, c.FinanceType)
	put(FieldTiedStatus, c.TiedStatus)
	put(FieldDisbursementChannel, c.DisbursementChannel)
	put(FieldSector, c.Sector)
	put(FieldSectorVocabulary, c.SectorVocabulary)
	return out
}

// ParsedActivity is an <iati-activity> element lifted into memory. The parser
// performs no validation; absent optional fields stay zero.
type ParsedActivity struct {
	Index              int
	IATIIdentifier     string
	Title              Narrative
	Description        Narrative
	StatusCode         string
	PlannedStart       *time.Time
	PlannedEnd         *time.Time
	ActualStart        *time.Time
	ActualEnd          *time.Time
	DefaultAidType     string
	DefaultFlowType    string
	DefaultFinanceType string
	DefaultTiedStatus  string
	ReportingOrg       OrgRef
	ParticipatingOrgs  []OrgRef
	Sectors            []SectorAllocation
	Malformed          []MalformedField
}

// ParsedTransaction is a <transaction> element plus the resolution state the
// resolver annotates onto it.
type ParsedTransaction struct {
	Index       int
	ActivityRef string
	ActivityKey ActivityKey
	TypeCode    string
	Date        *time.Time
	Value       float64
	ValueSet    bool
	Currency    string
	// ValueDate differs from Date only when an FX settlement date applies.
	ValueDate   *time.Time
	Provider    OrgRef
	Receiver    OrgRef
	ProviderKey uuid.UUID
	ReceiverKey uuid.UUID
	// Provider/ReceiverActivityKey resolve the org refs' related-activity
	// identifiers through the same identifier map as the owning reference.
	ProviderActivityKey ActivityKey
	ReceiverActivityKey ActivityKey
	Description         Narrative
	Reference           string
	Codes               TransactionCodes
	Humanitarian        bool
	Malformed           []MalformedField
}

// ParsedBudget is a <budget> or <planned-disbursement> element. Budgets share
// the transaction path through the resolver and importer but carry no coded
// classifications beyond currency.
type ParsedBudget struct {
	Index       int
	ActivityRef string
	ActivityKey ActivityKey
	TypeCode    string
	StatusCode  string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Value       float64
	Currency    string
	Malformed   []MalformedField
}

// Document is the parser output: every activity buffered before any
// transaction, all in document order.
type Document struct {
	Activities   []*ParsedActivity
	Transactions []*ParsedTransaction
	Budgets      []*ParsedBudget
}

// IssueKind classifies a validation issue.
type IssueKind string

const (
	IssueMissingActivity        IssueKind = "missing_activity"
	IssueUnmappedCode           IssueKind = "unmapped_code"
	IssueUnresolvedOrganization IssueKind = "unresolved_organization"
	IssueMalformedValue         IssueKind = "malformed_value"
)

// Severity splits issues into commit blockers and warnings.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// ValidationIssue is accumulated, never thrown. Indexes are -1 when the issue
// is not scoped to that record kind. unmapped_code issues are keyed by
// (Field, Raw) and intentionally carry no transaction index: one mapping
// decision resolves every transaction sharing the raw value.
type ValidationIssue struct {
	Kind             IssueKind
	Severity         Severity
	TransactionIndex int
	ActivityIndex    int
	BudgetIndex      int
	Field            Field
	Raw              string
	Role             OrgRole
	Detail           string
}

// Blocking reports whether the issue prevents commit.
func (i ValidationIssue) Blocking() bool { return i.Severity == SeverityBlocking }

// CodeMappingKey identifies one raw value on one field across the batch.
type CodeMappingKey struct {
	Field Field
	Raw   string
}

// OrgAssignmentKey addresses one organization slot on one transaction.
type OrgAssignmentKey struct {
	TransactionIndex int
	Role             OrgRole
}

// ResolutionMap holds user-supplied corrections. It is mutated only by the
// resolution session and consumed exactly once by the importer.
type ResolutionMap struct {
	Activities       map[int]uuid.UUID
	BudgetActivities map[int]uuid.UUID
	Codes            map[CodeMappingKey]string
	Organizations    map[OrgAssignmentKey]uuid.UUID
}

// NewResolutionMap returns an empty, ready-to-mutate map set.
func NewResolutionMap() *ResolutionMap {
	return &ResolutionMap{
		Activities:       make(map[int]uuid.UUID),
		BudgetActivities: make(map[int]uuid.UUID),
		Codes:            make(map[CodeMappingKey]string),
		Organizations:    make(map[OrgAssignmentKey]uuid.UUID),
	}
}

// SessionState tracks the resolution session lifecycle.
type SessionState string

const (
	SessionParsed    SessionState = "parsed"
	SessionValidated SessionState = "validated"
	SessionBlocked   SessionState = "blocked"
	SessionReady     SessionState = "ready_to_import"
	SessionCommitted SessionState = "committed"
)

// ValidationSummary is the report consumed by the resolution UI collaborator.
type ValidationSummary struct {
	State                 SessionState
	ActivitiesParsed      int
	TransactionsParsed    int
	BudgetsParsed         int
	BlockingCount         int
	WarningCount          int
	MissingActivityCount  int
	UnmappedRawValueCount int
	MalformedValueCount   int
	Issues                []ValidationIssue
	Blocked               bool
}

// EntityCounts tallies created vs updated rows for one entity type.
type EntityCounts struct {
	Created int
	Updated int
}

// ImportFailure is one hard failure inside an otherwise partial-success
// commit. Upstream names the external identifier whose failure excluded this
// row, when the cause is a dependency rather than the row itself.
type ImportFailure struct {
	Entity     string
	Index      int
	ExternalID string
	Upstream   string
	Detail     string
}

// ImportBatchResult is terminal: built by the importer, never mutated after
// commit.
type ImportBatchResult struct {
	Organizations EntityCounts
	Activities    EntityCounts
	Transactions  EntityCounts
	Budgets       EntityCounts
	Warnings      []ValidationIssue
	Failures      []ImportFailure
	CompletedAt   time.Time
}

// Organization is a persisted organization row.
type Organization struct {
	ID             uuid.UUID
	IATIIdentifier string
	Name           string
	OrgType        string
	Category       string
	Country        string
	ContactEmail   string
	Website        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Activity is a persisted activity row.
type Activity struct {
	ID                 uuid.UUID
	IATIIdentifier     string
	Title              Narrative
	Description        Narrative
	StatusCode         string
	PlannedStart       *time.Time
	PlannedEnd         *time.Time
	ActualStart        *time.Time
	ActualEnd          *time.Time
	DefaultAidType     string
	DefaultFlowType    string
	DefaultFinanceType string
	DefaultTiedStatus  string
	ReportingOrgID     uuid.UUID
	Sectors            []SectorAllocation
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Transaction is a persisted financial transaction row.
type Transaction struct {
	ID                  uuid.UUID
	ActivityID          uuid.UUID
	TypeCode            string
	Date                *time.Time
	Value               float64
	Currency            string
	ValueDate           *time.Time
	ProviderOrgID       uuid.UUID
	ProviderOrgName     string
	ProviderActivityID  uuid.UUID
	ReceiverOrgID       uuid.UUID
	ReceiverOrgName     string
	ReceiverActivityID  uuid.UUID
	AidType             string
	FlowType            string
	FinanceType         string
	TiedStatus          string
	DisbursementChannel string
	SectorCode          string
	SectorVocabulary    string
	Humanitarian        bool
	Description         string
	Reference           string
	Fingerprint         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ComputeFingerprint derives a deterministic content hash so re-importing the
// same document upserts instead of duplicating rows.
func (t Transaction) ComputeFingerprint() string {
	payload := strings.Join([]string{
		t.ActivityID.String(),
		t.TypeCode,
		timeToken(t.Date),
		fmt.Sprintf("%.2f", t.Value),
		t.Currency,
		timeToken(t.ValueDate),
		t.ProviderOrgName,
		t.ReceiverOrgName,
		t.Reference,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Budget is a persisted budget or planned-disbursement row.
type Budget struct {
	ID          uuid.UUID
	ActivityID  uuid.UUID
	TypeCode    string
	StatusCode  string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Value       float64
	Currency    string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ComputeFingerprint mirrors Transaction.ComputeFingerprint for budget rows.
func (b Budget) ComputeFingerprint() string {
	payload := strings.Join([]string{
		b.ActivityID.String(),
		b.TypeCode,
		b.StatusCode,
		timeToken(b.PeriodStart),
		timeToken(b.PeriodEnd),
		fmt.Sprintf("%.2f", b.Value),
		b.Currency,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func timeToken(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// ImportLog captures one commit for audit, shaped after the host system's
// import history table. Error payloads are masked before persistence.
type ImportLog struct {
	ID            uuid.UUID
	DocumentName  string
	ActorID       uuid.UUID
	Organizations EntityCounts
	Activities    EntityCounts
	Transactions  EntityCounts
	Budgets       EntityCounts
	FailureCount  int
	WarningCount  int
	Errors        []map[string]any
	CreatedAt     time.Time
}
