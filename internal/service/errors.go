package service

import "errors"

// Error kinds returned by the file service. Callers match them with errors.Is;
// the returned error usually wraps one of these with more context.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("file not found")
	ErrGone              = errors.New("file deleted")
	ErrExpired           = errors.New("file expired")
	ErrUnavailable       = errors.New("file not available for download")
	ErrPasswordRequired  = errors.New("password required")
	ErrIncorrectPassword = errors.New("incorrect password")

	ErrStorageWriteFailed  = errors.New("storage write failed")
	ErrStorageDeleteFailed = errors.New("storage delete failed")
	ErrStorageUnavailable  = errors.New("storage unavailable")

	ErrExhaustedRetries = errors.New("short code retries exhausted")
	ErrCorruptState     = errors.New("corrupt file state")
)

// ErrShortCodeTaken is returned by a RecordStore when a write hits the
// (short_code, owner_kind) uniqueness constraint.
var ErrShortCodeTaken = errors.New("short code already taken")

// ErrStorageKeyTaken is returned by a RecordStore when another record already
// points at the same storage key.
var ErrStorageKeyTaken = errors.New("storage key already taken")

// IsTransient reports whether err is a collaborator failure that is safe to retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageWriteFailed) ||
		errors.Is(err, ErrStorageDeleteFailed) ||
		errors.Is(err, ErrStorageUnavailable)
}
