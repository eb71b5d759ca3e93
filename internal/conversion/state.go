package conversion

// State is a step of the conversion pipeline.
type State string

const (
	StatePendingPreconditions State = "PENDING_PRECONDITIONS"
	StatePendingEntitlement   State = "PENDING_ENTITLEMENT"
	StatePendingExecution     State = "PENDING_EXECUTION"
	StateCompleted            State = "COMPLETED"
	StateRejected             State = "REJECTED"
)

