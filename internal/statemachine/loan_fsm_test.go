package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
)

func TestLoanFSM_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	loan := &models.Loan{Status: models.LoanStatusDraft}
	machine := NewLoanFSM(loan)

	require.NoError(t, machine.Submit(ctx))
	assert.Equal(t, models.LoanStatusPendingApproval, loan.Status)

	require.NoError(t, machine.Approve(ctx))
	assert.Equal(t, models.LoanStatusApproved, loan.Status)

	require.NoError(t, machine.Disburse(ctx))
	assert.Equal(t, models.LoanStatusActive, loan.Status)

	require.NoError(t, machine.Complete(ctx))
	assert.Equal(t, models.LoanStatusCompleted, loan.Status)
}

func TestLoanFSM_DefaultThenComplete(t *testing.T) {
	ctx := context.Background()
	loan := &models.Loan{Status: models.LoanStatusActive}
	machine := NewLoanFSM(loan)

	require.NoError(t, machine.Default(ctx))
	assert.Equal(t, models.LoanStatusDefaulted, loan.Status)

	// A defaulted loan that gets fully repaid still closes out
	require.NoError(t, machine.Complete(ctx))
	assert.Equal(t, models.LoanStatusCompleted, loan.Status)
}

func TestLoanFSM_CancelOnlyBeforeDisbursement(t *testing.T) {
	ctx := context.Background()

	for _, status := range []string{
		models.LoanStatusDraft,
		models.LoanStatusPendingApproval,
		models.LoanStatusApproved,
	} {
		loan := &models.Loan{Status: status}
		machine := NewLoanFSM(loan)
		require.NoError(t, machine.Cancel(ctx), "cancel from %s", status)
		assert.Equal(t, models.LoanStatusCancelled, loan.Status)
	}

	active := &models.Loan{Status: models.LoanStatusActive}
	err := NewLoanFSM(active).Cancel(ctx)
	assert.Error(t, err)
	assert.Equal(t, models.LoanStatusActive, active.Status)
}

func TestLoanFSM_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	draft := &models.Loan{Status: models.LoanStatusDraft}
	assert.Error(t, NewLoanFSM(draft).Approve(ctx))
	assert.Error(t, NewLoanFSM(draft).Disburse(ctx))
	assert.Error(t, NewLoanFSM(draft).Default(ctx))

	completed := &models.Loan{Status: models.LoanStatusCompleted}
	assert.Error(t, NewLoanFSM(completed).Submit(ctx))
	assert.Error(t, NewLoanFSM(completed).Cancel(ctx))
	assert.Equal(t, models.LoanStatusCompleted, completed.Status)
}

func TestLoanFSM_Can(t *testing.T) {
	loan := &models.Loan{Status: models.LoanStatusPendingApproval}
	machine := NewLoanFSM(loan)

	assert.True(t, machine.Can("approve"))
	assert.True(t, machine.Can("cancel"))
	assert.False(t, machine.Can("disburse"))
	assert.False(t, machine.Can("complete"))
}
