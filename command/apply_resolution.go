package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/goliatone/go-aidimport/session"
	"github.com/google/uuid"
)

// ActivityAssignment points a transaction at an existing activity.
type ActivityAssignment struct {
	TransactionIndex int
	ActivityID       uuid.UUID
}

// BudgetAssignment points a budget at an existing activity.
type BudgetAssignment struct {
	BudgetIndex int
	ActivityID  uuid.UUID
}

// CodeDecision maps a raw source value onto a system code.
type CodeDecision struct {
	Field      types.Field
	Raw        string
	SystemCode string
}

// OrganizationAssignment pins a transaction party to a stored organization.
type OrganizationAssignment struct {
	TransactionIndex int
	Role             types.OrgRole
	OrganizationID   uuid.UUID
}

// ApplyResolutionInput carries a batch of user decisions for one session.
type ApplyResolutionInput struct {
	Session       *session.Session
	Activities    []ActivityAssignment
	Budgets       []BudgetAssignment
	Codes         []CodeDecision
	Organizations []OrganizationAssignment
	// Result receives the summary recomputed after the decisions land.
	Result *types.ValidationSummary
}

// Type implements gocommand.Message.
func (ApplyResolutionInput) Type() string {
	return "command.aidimport.resolution.apply"
}

// Validate implements gocommand.Message.
func (input ApplyResolutionInput) Validate() error {
	switch {
	case input.Session == nil:
		return ErrSessionRequired
	case len(input.Activities) == 0 && len(input.Budgets) == 0 &&
		len(input.Codes) == 0 && len(input.Organizations) == 0:
		return ErrNoResolutions
	default:
		return nil
	}
}

// ApplyResolutionCommand applies user decisions onto a blocked session. Each
// decision is applied in order and the first failure aborts the batch; code
// mapping persistence happens inside the session, so an aborted batch leaves
// earlier decisions in place but never half-applies a single one.
type ApplyResolutionCommand struct{}

// NewApplyResolutionCommand constructs the resolution handler.
func NewApplyResolutionCommand() *ApplyResolutionCommand {
	return &ApplyResolutionCommand{}
}

var _ gocommand.Commander[ApplyResolutionInput] = (*ApplyResolutionCommand)(nil)

// Execute applies the decisions and reports the resulting summary.
func (c *ApplyResolutionCommand) Execute(ctx context.Context, input ApplyResolutionInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	sess := input.Session
	for _, decision := range input.Activities {
		if err := sess.ApplyActivityAssignment(decision.TransactionIndex, decision.ActivityID); err != nil {
			return err
		}
	}
	for _, decision := range input.Budgets {
		if err := sess.ApplyBudgetActivityAssignment(decision.BudgetIndex, decision.ActivityID); err != nil {
			return err
		}
	}
	for _, decision := range input.Codes {
		if err := sess.ApplyCodeMapping(ctx, decision.Field, decision.Raw, decision.SystemCode); err != nil {
			return err
		}
	}
	for _, decision := range input.Organizations {
		if err := sess.ApplyOrganizationAssignment(decision.TransactionIndex, decision.Role, decision.OrganizationID); err != nil {
			return err
		}
	}

	if input.Result != nil {
		*input.Result = sess.Summary()
	}
	return nil
}
