package domain

// OutcomeStatus represents the terminal state of a single retrieval.
type OutcomeStatus string

const (
	StatusSuccess        OutcomeStatus = "success"
	StatusSizeMismatch   OutcomeStatus = "size_mismatch"
	StatusNotFound       OutcomeStatus = "not_found"
	StatusTransportError OutcomeStatus = "transport_error"
	// StatusSkipped marks items whose page offered no recognized
	// download option. They are not recorded in the ledger so they get
	// re-checked on the next cycle.
	StatusSkipped OutcomeStatus = "skipped"
)

// CycleState represents where the controller currently is in a cycle.
type CycleState string

const (
	CycleIdle        CycleState = "idle"
	CycleValidating  CycleState = "validating_session"
	CycleResolving   CycleState = "resolving"
	CycleDownloading CycleState = "downloading"
)
