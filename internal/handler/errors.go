package handler

// Generic HTTP error messages for client responses.
// These intentionally do not expose internal error details.
const (
	ErrMsgSyncStatusFailed = "Failed to retrieve sync status"
	ErrMsgExportNotFound   = "No export file available, run an export first"
	ErrMsgCallbackRejected = "Authorization callback rejected"
	ErrMsgMissingCodeParam = "Missing code query parameter"
)

// Status messages mirrored in the job-trigger responses.
const (
	MsgSyncStarted        = "Teamleader sync started"
	MsgSyncAlreadyRunning = "Teamleader sync was already running"

	MsgExportStarted        = "Contacts csv export started. Check status for completion"
	MsgExportAlreadyRunning = "Previous csv export is still running..."
	MsgExportNeverRan       = "Please run an export first with POST /export/export_csv"
	MsgExportInProgress     = "New contacts export to csv is in progress..."
)
