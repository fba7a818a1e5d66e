package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWalletLocked       = errors.New("wallet is locked for withdrawals")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrValidation         = errors.New("invalid input")
	ErrSelfTransfer       = errors.New("cannot send to yourself")
	ErrNotAMember         = errors.New("not a member of this chama")
	ErrAlreadyMember      = errors.New("already a member of this chama")
	ErrChamaFull          = errors.New("chama has reached its member limit")
	ErrForbidden          = errors.New("insufficient role for this action")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrDuplicateReference = errors.New("gateway reference already recorded")
)
