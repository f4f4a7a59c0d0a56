package shotgen

import "errors"

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("invalid generator config")
	ErrVerification  = errors.New("verification failed")
)
