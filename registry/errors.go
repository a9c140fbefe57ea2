package registry

import "errors"

// Every error below aborts the call that raised it before any mutation
// becomes visible. The registry never retries internally.
var (
	ErrTokenAlreadyExists         = errors.New("token id already exists")
	ErrTokenNotFound              = errors.New("token not found")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrOwnerMismatch              = errors.New("current owner does not match the expected owner")
	ErrSelfTransfer               = errors.New("receiver already owns the token")
	ErrApprovalNotFound           = errors.New("approval not found")
	ErrStaleApproval              = errors.New("approval id is stale")
	ErrInsufficientStorageDeposit = errors.New("insufficient storage deposit attached")
	ErrAmountOverflow             = errors.New("amount overflow")
)
