package mapper

import "errors"

var (
	// ErrNotTraining is returned when a mapper configured for inference is
	// asked to build training targets.
	ErrNotTraining = errors.New("all-task mapper should only be used for training")

	// ErrContractViolation marks records carrying mutually exclusive
	// annotation styles.
	ErrContractViolation = errors.New("annotation contract violation")

	// ErrInputIntegrity marks decoded inputs whose dimensions disagree.
	ErrInputIntegrity = errors.New("input integrity")

	ErrMalformedSegments = errors.New("malformed segment table")
)
