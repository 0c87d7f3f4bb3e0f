package domain

// ExportRecord is a single recipe delivered by the export endpoint.
type ExportRecord struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ExportStatus classifies the answer of one export request.
type ExportStatus string

const (
	ExportUpToDate  ExportStatus = "upToDate"
	ExportDelivered ExportStatus = "delivered"
	ExportError     ExportStatus = "error"
)

// ExportResult is the interpreted response of an export request.
type ExportResult struct {
	Status  ExportStatus
	Records []ExportRecord
	// Message is the user-facing text for ExportError.
	Message string
	Err     error
}

// SyncStatus is the terminal state of one export cycle.
type SyncStatus string

const (
	SyncUpToDate  SyncStatus = "up_to_date"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
	// SyncSkipped means another cycle was already running.
	SyncSkipped SyncStatus = "skipped"
)

// SyncOutcome summarizes a finished (or refused) export cycle.
type SyncOutcome struct {
	Status  SyncStatus
	Written int
	Failed  int
	Message string
}
