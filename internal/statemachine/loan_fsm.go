package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
)

// LoanFSM wraps a loan with its state machine
type LoanFSM struct {
	loan *models.Loan
	fsm  *fsm.FSM
}

// NewLoanFSM creates a new loan state machine
func NewLoanFSM(loan *models.Loan) *LoanFSM {
	lfsm := &LoanFSM{
		loan: loan,
	}

	lfsm.fsm = fsm.NewFSM(
		loan.Status,
		fsm.Events{
			// draft → pending_approval
			{Name: "submit", Src: []string{models.LoanStatusDraft}, Dst: models.LoanStatusPendingApproval},

			// pending_approval → approved
			{Name: "approve", Src: []string{models.LoanStatusPendingApproval}, Dst: models.LoanStatusApproved},

			// approved → active
			{Name: "disburse", Src: []string{models.LoanStatusApproved}, Dst: models.LoanStatusActive},

			// active/defaulted → completed
			{Name: "complete", Src: []string{models.LoanStatusActive, models.LoanStatusDefaulted}, Dst: models.LoanStatusCompleted},

			// active → defaulted
			{Name: "default", Src: []string{models.LoanStatusActive}, Dst: models.LoanStatusDefaulted},

			// draft/pending_approval/approved → cancelled
			{Name: "cancel", Src: []string{models.LoanStatusDraft, models.LoanStatusPendingApproval, models.LoanStatusApproved}, Dst: models.LoanStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return lfsm
}

// Submit transitions the loan to pending approval
func (l *LoanFSM) Submit(ctx context.Context) error {
	if !l.loan.MaySubmit() {
		return fmt.Errorf("loan cannot be submitted in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "submit"); err != nil {
		return fmt.Errorf("failed to submit loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Approve transitions the loan to approved state
func (l *LoanFSM) Approve(ctx context.Context) error {
	if !l.loan.MayApprove() {
		return fmt.Errorf("loan cannot be approved in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "approve"); err != nil {
		return fmt.Errorf("failed to approve loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Disburse transitions the loan to active state
func (l *LoanFSM) Disburse(ctx context.Context) error {
	if !l.loan.MayDisburse() {
		return fmt.Errorf("loan cannot be disbursed in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "disburse"); err != nil {
		return fmt.Errorf("failed to disburse loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Complete transitions the loan to completed state
func (l *LoanFSM) Complete(ctx context.Context) error {
	if !l.loan.MayComplete() {
		return fmt.Errorf("loan cannot be completed in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Default transitions the loan to defaulted state
func (l *LoanFSM) Default(ctx context.Context) error {
	if !l.loan.MayDefault() {
		return fmt.Errorf("loan cannot be defaulted in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "default"); err != nil {
		return fmt.Errorf("failed to default loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Cancel transitions the loan to cancelled state
func (l *LoanFSM) Cancel(ctx context.Context) error {
	if !l.loan.MayCancel() {
		return fmt.Errorf("loan cannot be cancelled in current state: %s", l.loan.Status)
	}

	if err := l.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel loan: %w", err)
	}

	l.loan.Status = l.fsm.Current()
	return nil
}

// Current returns the current state
func (l *LoanFSM) Current() string {
	return l.fsm.Current()
}

// Can checks if a transition is possible
func (l *LoanFSM) Can(event string) bool {
	return l.fsm.Can(event)
}
