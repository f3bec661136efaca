package workflows

import "errors"

var (
	// ErrWorkflowNotFound is returned when a workflow is not registered
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidRequest is returned when the workflow context is incomplete
	ErrInvalidRequest = errors.New("invalid workflow request")
)
