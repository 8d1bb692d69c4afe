package model

import (
	"errors"
	"fmt"
)

// ErrInfeasibleScenario reports a scenario that passed structural validation
// but cannot physically satisfy every vehicle target within its plug-in
// window. It must stop a run before any search work is spent.
var ErrInfeasibleScenario = errors.New("scenario infeasible: at least one vehicle cannot reach its target in time")

// ValidationError describes a structurally invalid scenario field. It is
// returned eagerly at construction time, never coerced.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
