package estimation

import "errors"

var (
	// ErrCapabilityNotSupported is returned when a task needs a capability the backend lacks
	ErrCapabilityNotSupported = errors.New("capability not supported")

	// ErrContractViolation is returned when a backend breaks the batch contract,
	// e.g. by returning a different number of results than circuits submitted
	ErrContractViolation = errors.New("backend contract violation")

	// ErrInvalidTask is returned for malformed estimation tasks
	ErrInvalidTask = errors.New("invalid estimation task")
)
