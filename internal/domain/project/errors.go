package project

import "errors"

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrInvalidBillingMode = errors.New("invalid project billing mode")
)
