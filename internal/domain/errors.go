package domain

import "errors"

var (
	// ErrSourceUnavailable covers network, HTTP status and parse failures of an adapter.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceAuth is an authentication failure; it disables the adapter for the run.
	ErrSourceAuth = errors.New("source authentication failed")
	// ErrQuotaExhausted is returned when a process-wide quota has no calls left.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrBudgetExceeded is returned when a per-company token or time budget is spent.
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrNormalizationFailed means no publisher could be resolved or the page was unusable.
	ErrNormalizationFailed = errors.New("normalization failed")
	// ErrExtractionLowConfidence means the article scored zero.
	ErrExtractionLowConfidence = errors.New("extraction low confidence")
	// ErrWriteConflict is a unique-constraint collision; callers merge instead of failing.
	ErrWriteConflict = errors.New("write conflict")
	// ErrWriteFailed is a store write that kept failing after retries.
	ErrWriteFailed = errors.New("write failed")
	// ErrRenumberFailed is fatal to a run.
	ErrRenumberFailed = errors.New("renumber failed")
	// ErrConfig prevents the pipeline from starting.
	ErrConfig = errors.New("configuration error")
	// ErrNotFound is returned by repositories for missing rows.
	ErrNotFound = errors.New("not found")
)
