package domain

import "errors"

var (
	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidUser       = errors.New("invalid user")
	ErrUserAlreadyExists = errors.New("user with this document already exists")

	// Contribution errors
	ErrInvalidContribution  = errors.New("invalid contribution")
	ErrContributionNotFound = errors.New("contribution not found")

	// Withdrawal errors
	ErrInvalidWithdrawal       = errors.New("invalid withdrawal")
	ErrInsufficientBalance     = errors.New("insufficient available balance for withdrawal")
	ErrAllocationInconsistency = errors.New("unable to satisfy withdrawal amount with available contributions")
	ErrDuplicateWithdrawal     = errors.New("withdrawal already processed")

	// Money errors
	ErrInvalidMoney      = errors.New("money value must be a finite number")
	ErrNegativeMoney     = errors.New("money value cannot be negative")
	ErrMoneyOverflow     = errors.New("money value exceeds maximum allowed")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
