// internal/api/error_codes.go
package api

// API error codes
const (
	// generic
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// sessions
	ErrorSessionNotFound = "SESSION_NOT_FOUND"
	ErrorBriefingInvalid = "BRIEFING_INVALID"
	ErrorRunInProgress   = "RUN_IN_PROGRESS"

	// progress
	ErrorRunNotFound = "RUN_NOT_FOUND"

	// export
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"
	ErrorResultNotReady      = "RESULT_NOT_READY"
	ErrorExportFailed        = "EXPORT_FAILED"
)
