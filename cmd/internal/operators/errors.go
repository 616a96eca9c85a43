package operators

import "errors"

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned after a correct password for an
	// inactive or suspended operator.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrInvalidFile reports a malformed operators file.
	ErrInvalidFile = errors.New("invalid operators file")
)
