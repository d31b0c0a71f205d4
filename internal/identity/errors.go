package identity

import "errors"

// Identity errors.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailExists           = errors.New("email already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidToken          = errors.New("invalid token")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidRoleTransition = errors.New("role can only be changed to candidate or employer")
)
