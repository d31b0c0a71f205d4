package applications

import "errors"

// Application errors.
var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrDuplicateApplication = errors.New("candidate has already applied to this job")
	ErrInvalidStatus        = errors.New("invalid application status")
)
