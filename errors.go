package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API consumers alongside the error category.
const (
	TextCodeSigningKeyMissing     = "AUTH_SIGNING_KEY_MISSING"
	TextCodeTokenExpired          = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenBadSignature     = "AUTH_TOKEN_BAD_SIGNATURE"
	TextCodeTokenMalformed        = "AUTH_TOKEN_MALFORMED"
	TextCodeMissingAuthorityClaim = "AUTH_MISSING_AUTHORITY_CLAIM"
	TextCodeInvalidCredentials    = "AUTH_INVALID_CREDENTIALS"
	TextCodeEntityNotFound        = "PERSISTENCE_ENTITY_NOT_FOUND"
	TextCodeConcurrentUpdate      = "PERSISTENCE_CONCURRENT_UPDATE"
	TextCodeLoginAlreadyUsed      = "USER_LOGIN_ALREADY_USED"
	TextCodeEmailAlreadyUsed      = "USER_EMAIL_ALREADY_USED"
)

// ErrSigningKeyMissing means neither a raw nor a base64 signing secret was
// configured. Fatal at construction time, never per request.
var ErrSigningKeyMissing = errors.New("no JWT signing secret configured", errors.CategoryInternal).
	WithTextCode(TextCodeSigningKeyMissing)

// ErrTokenExpired is returned when a token fails its expiry check.
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenInvalidSignature is returned when a token signature does not
// verify against the configured key.
var ErrTokenInvalidSignature = errors.New("authentication token signature is invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenBadSignature)

// ErrTokenMalformed is returned for tokens that cannot be decoded at all.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrMissingAuthorityClaim means a verified token carries no "auth" claim.
// That is a contract violation between issuer and verifier, fatal to the
// request rather than a recoverable runtime condition.
var ErrMissingAuthorityClaim = errors.New("token carries no authority claim", errors.CategoryOperation).
	WithTextCode(TextCodeMissingAuthorityClaim)

// ErrInvalidCredentials covers bad passwords and unknown accounts alike so
// callers cannot probe for account existence.
var ErrInvalidCredentials = errors.New("invalid username or password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrEntityNotFound is returned by lookups that miss. Surfaced to the
// caller, never retried by the core.
var ErrEntityNotFound = errors.New("entity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeEntityNotFound)

// ErrConcurrentUpdate is returned when a commit-time optimistic concurrency
// check fails. The caller may reload and retry; the core never does.
var ErrConcurrentUpdate = errors.New("row was modified by another writer", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeConcurrentUpdate)

// ErrLoginAlreadyUsed rejects registrations reusing an existing login.
var ErrLoginAlreadyUsed = errors.New("login name is already in use", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeLoginAlreadyUsed)

// ErrEmailAlreadyUsed rejects registrations reusing an existing email.
var ErrEmailAlreadyUsed = errors.New("email is already in use", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeEmailAlreadyUsed)

// ErrNoEmptyString guards hash helpers against empty input.
var ErrNoEmptyString = errors.New("value should not be an empty string", errors.CategoryBadInput)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = errors.New("hashed password mismatch", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsNotFoundError reports whether err represents an entity lookup miss.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEntityNotFound) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryNotFound
	}
	return false
}

// IsConflictError reports whether err represents a commit-time conflict.
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConcurrentUpdate) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryConflict
	}
	return false
}
