package billing

import "errors"

var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrReferenceNotFound     = errors.New("referenced employee or project not found")
	ErrInvalidBillingData    = errors.New("invalid billing data")
	ErrAlreadyFinalized      = errors.New("billing already finalized for this period")
	ErrBillingRecordNotFound = errors.New("billing record not found")
)
