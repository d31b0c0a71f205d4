package jobs

import "errors"

// Job errors.
var (
	ErrJobNotFound           = errors.New("job not found")
	ErrInvalidEmploymentType = errors.New("invalid employment type")
)
