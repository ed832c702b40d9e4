package domain

import (
	"errors"
	"fmt"
)

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Lifecycle errors
	ErrMsgInvalidState        = "invalid state"
	ErrMsgEventAlreadyRunning = "event already running in zone"
	ErrMsgPhaseOutOfRange     = "phase index out of range"

	// Lookup errors
	ErrMsgInstanceNotFound        = "event instance not found"
	ErrMsgParticipantNotFound     = "participant not found"
	ErrMsgBossNotFound            = "world boss not found"
	ErrMsgEventDefinitionNotFound = "event definition not found"
	ErrMsgScheduleNotFound        = "schedule not found"
	ErrMsgHistoryNotFound         = "completion history not found"

	// Collaborator errors
	ErrMsgRewardGrantFailed = "reward grant failed"
	ErrMsgSpawnFailed       = "creature spawn failed"

	// Actor errors
	ErrMsgOrchestratorClosed = "orchestrator is shut down"
	ErrMsgZoneRestarted      = "zone actor restarted while handling request"
	ErrMsgZoneUnavailable    = "zone state could not be loaded"

	// Input errors
	ErrMsgInvalidInput   = "invalid input"
	ErrMsgInvalidCatalog = "invalid catalog"

	// Database errors
	ErrMsgDatabaseError = "database error"
)

// Common domain errors
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	ErrInvalidState        = errors.New(ErrMsgInvalidState)
	ErrEventAlreadyRunning = errors.New(ErrMsgEventAlreadyRunning)
	ErrPhaseOutOfRange     = errors.New(ErrMsgPhaseOutOfRange)

	// ErrNotFound is the parent of every lookup miss below.
	ErrNotFound                = errors.New("not found")
	ErrInstanceNotFound        = notFound(ErrMsgInstanceNotFound)
	ErrParticipantNotFound     = notFound(ErrMsgParticipantNotFound)
	ErrBossNotFound            = notFound(ErrMsgBossNotFound)
	ErrEventDefinitionNotFound = notFound(ErrMsgEventDefinitionNotFound)
	ErrScheduleNotFound        = notFound(ErrMsgScheduleNotFound)
	ErrHistoryNotFound         = notFound(ErrMsgHistoryNotFound)

	ErrRewardGrantFailed = errors.New(ErrMsgRewardGrantFailed)
	ErrSpawnFailed       = errors.New(ErrMsgSpawnFailed)

	ErrOrchestratorClosed = errors.New(ErrMsgOrchestratorClosed)
	ErrZoneRestarted      = errors.New(ErrMsgZoneRestarted)
	ErrZoneUnavailable    = errors.New(ErrMsgZoneUnavailable)

	ErrInvalidInput   = errors.New(ErrMsgInvalidInput)
	ErrInvalidCatalog = errors.New(ErrMsgInvalidCatalog)

	ErrDatabaseError = errors.New(ErrMsgDatabaseError)
)

type notFoundError struct {
	msg string
}

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports a lifecycle operation attempted from a state that forbids it.
type InvalidStateError struct {
	Op   string
	From string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s", ErrMsgInvalidState, e.Op, e.From)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NewInvalidStateError builds an InvalidStateError for op attempted in state from.
func NewInvalidStateError(op string, from fmt.Stringer) error {
	return &InvalidStateError{Op: op, From: from.String()}
}
