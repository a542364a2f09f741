package audithook

// Action constants for audit events.
const (
	// Stream actions
	ActionStreamCreated   = "stream.created"
	ActionStreamWithdrawn = "stream.withdrawn"
	ActionStreamCanceled  = "stream.canceled"

	// Index actions
	ActionIndexOverflow = "index.overflow"
)

// Resource constants for audit events.
const (
	ResourceStream = "stream"
	ResourceIndex  = "index"
)

// Category constants for audit events.
const (
	CategoryEscrow = "escrow"
	CategoryStore  = "store"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
