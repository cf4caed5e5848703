package pipeline

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrPipelineMustBeSet = errors.New("p must be set")
	ErrStepNameMustBeSet = errors.New("step name must be set")
	ErrReservedStepName  = errors.New("step name is reserved")
	ErrOutputMustBeSet   = errors.New("step output must be set")
	ErrCallMustBeSet     = errors.New("step call must be set")
	ErrDuplicateStepName = errors.New("duplicate step name")
	ErrDuplicateKeyWrite = errors.New("duplicate key write")
	ErrKeyNotFound       = errors.New("key not found")
	ErrMissingInput      = errors.New("missing input")
	ErrUndeclaredInput   = errors.New("undeclared input")
	ErrUnexpectedType    = errors.New("unexpected value type")
	ErrUnresolvedInput   = errors.New("input is not produced by an earlier step")
	ErrService           = errors.New("service error")
)

// MissingInputError is returned when some declared inputs of a step are absent from the state.
// The collaborator of the step is never called in that case.
type MissingInputError struct {
	Step string
	Keys []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("step %q: missing input: %s", e.Step, strings.Join(e.Keys, ", "))
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// ServiceError is a failure of an external collaborator: timeout, quota, malformed response...
// The pipeline never retries it.
type ServiceError struct {
	Err          error
	Collaborator string
}

// NewServiceError wraps err as a failure of collaborator. It returns err untouched
// when it already is a ServiceError.
func NewServiceError(collaborator string, err error) error {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	return &ServiceError{Collaborator: collaborator, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}

// StepError reports the step a run failed at.
// Index is -1 when the run failed before its first step.
type StepError struct {
	Err   error
	Name  string
	Index int
}

func (e *StepError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("run failed before first step: %v", e.Err)
	}

	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
