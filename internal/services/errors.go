package services

import "errors"

// Common service errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidState         = errors.New("invalid state transition")
	ErrDuplicate            = errors.New("duplicate record")
	ErrInvalidRecoveryCode  = errors.New("invalid or expired recovery code")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrAmountExceedsBalance = errors.New("amount exceeds the outstanding balance")
	ErrLoanNotOpen          = errors.New("loan does not accept repayments in its current state")
	ErrAmountOutOfRange     = errors.New("amount is outside the allowed range for this loan type")
	ErrMemberHasOpenLoan    = errors.New("member already has an open loan")
	ErrInvalidMethod        = errors.New("unknown repayment method")
	ErrDocumentTooLarge     = errors.New("document exceeds the maximum upload size")
	ErrUnsupportedDocument  = errors.New("unsupported document type")
)
