package models

import "errors"

// ErrNotFound signals a missing record; handlers map it to 404.
var ErrNotFound = errors.New("not found")

// ErrValidation signals caller-supplied input that violates a contract.
// Operations rejected with it create no partial state.
var ErrValidation = errors.New("validation failed")
