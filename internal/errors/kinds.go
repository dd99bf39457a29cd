package errors

// Error kinds shared by the components. Wrap them with [Wrap] and detect them with [Is].
var (
	// ErrBankCorrupt means the question bank in the data directory cannot be used. Fatal at startup.
	ErrBankCorrupt = NewSentinel("question bank corrupt")
	// ErrIncomplete means scoring was requested for an answer buffer that is not complete.
	ErrIncomplete = NewSentinel("answer buffer incomplete")
	// ErrInvalidAnswer means the respondent's message is not an accepted answer. The item is asked again.
	ErrInvalidAnswer = NewSentinel("invalid answer")
	// ErrLLMUnavailable means the interpretation provider failed or timed out. Fallback text is used.
	ErrLLMUnavailable = NewSentinel("llm unavailable")
	// ErrChartRenderFailed means a chart image could not be produced. A text stub is used.
	ErrChartRenderFailed = NewSentinel("chart render failed")
	// ErrPDFBuildFailed means the portrait document could not be produced. Fatal for the session.
	ErrPDFBuildFailed = NewSentinel("pdf build failed")
	// ErrUploadFailed means the archive copy could not be uploaded. Logged only.
	ErrUploadFailed = NewSentinel("upload failed")
	// ErrSessionTimeout means the session was garbage-collected after being idle for too long.
	ErrSessionTimeout = NewSentinel("session timeout")
	// ErrCancelled means the respondent cancelled the session.
	ErrCancelled = NewSentinel("cancelled")
)
