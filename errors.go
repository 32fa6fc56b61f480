package oasis

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorKind classifies a failed authentication attempt.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindInvalidInput       ErrorKind = "OASIS_INVALID_INPUT"
	KindServiceUnavailable ErrorKind = "OASIS_SERVICE_UNAVAILABLE"
	KindInvalidCredentials ErrorKind = "OASIS_INVALID_CREDENTIALS"
	KindInvalidResponse    ErrorKind = "OASIS_INVALID_RESPONSE"
	KindMisconfigured      ErrorKind = "OASIS_MISCONFIGURED"
	KindStorageFailure     ErrorKind = "OASIS_STORAGE_FAILURE"
	KindSessionConflict    ErrorKind = "OASIS_SESSION_CONFLICT"
	KindUnknown            ErrorKind = "OASIS_UNKNOWN"
)

// ErrInvalidInput is returned for empty or malformed credentials.
var ErrInvalidInput = goerrors.New("invalid login credentials format", goerrors.CategoryBadInput).
	WithTextCode(string(KindInvalidInput)).
	WithCode(goerrors.CodeBadRequest).
	WithSeverity(goerrors.SeverityInfo)

// ErrServiceUnavailable is returned when the registry cannot be reached or fails with 5xx.
var ErrServiceUnavailable = goerrors.New("membership registry unavailable", goerrors.CategoryExternal).
	WithTextCode(string(KindServiceUnavailable)).
	WithCode(http.StatusServiceUnavailable).
	WithSeverity(goerrors.SeverityWarning)

// ErrInvalidCredentials is returned when the registry rejects the credentials.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(string(KindInvalidCredentials)).
	WithCode(goerrors.CodeUnauthorized).
	WithSeverity(goerrors.SeverityInfo)

// ErrInvalidResponse is returned when the registry body cannot be decoded.
var ErrInvalidResponse = goerrors.New("membership registry returned an invalid response", goerrors.CategoryExternal).
	WithTextCode(string(KindInvalidResponse)).
	WithCode(http.StatusBadGateway).
	WithSeverity(goerrors.SeverityWarning)

// ErrMisconfigured is returned when endpoint or admin credentials are missing.
var ErrMisconfigured = goerrors.New("membership registry is not configured", goerrors.CategoryInternal).
	WithTextCode(string(KindMisconfigured)).
	WithCode(goerrors.CodeInternal).
	WithSeverity(goerrors.SeverityCritical)

// ErrStorageFailure is returned when a reconciled account cannot be persisted.
var ErrStorageFailure = goerrors.New("failed to persist member account", goerrors.CategoryInternal).
	WithTextCode(string(KindStorageFailure)).
	WithCode(goerrors.CodeInternal)

// ErrSessionConflict is returned when a login would replace the account of
// an active administrator session.
var ErrSessionConflict = goerrors.New("an administrator session is active on this request", goerrors.CategoryAuthz).
	WithTextCode(string(KindSessionConflict)).
	WithCode(http.StatusConflict).
	WithSeverity(goerrors.SeverityWarning)

// ErrUnknown is the catch all for unexpected registry failures.
var ErrUnknown = goerrors.New("unexpected membership registry error", goerrors.CategoryInternal).
	WithTextCode(string(KindUnknown)).
	WithCode(goerrors.CodeInternal)

var kindErrors = map[ErrorKind]*goerrors.Error{
	KindInvalidInput:       ErrInvalidInput,
	KindServiceUnavailable: ErrServiceUnavailable,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindInvalidResponse:    ErrInvalidResponse,
	KindMisconfigured:      ErrMisconfigured,
	KindStorageFailure:     ErrStorageFailure,
	KindSessionConflict:    ErrSessionConflict,
	KindUnknown:            ErrUnknown,
}

// KindOf returns the classification carried by err. Errors that did not
// originate here are KindUnknown, nil is KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		kind := ErrorKind(richErr.TextCode)
		if _, ok := kindErrors[kind]; ok {
			return kind
		}
	}

	return KindUnknown
}

// newKindError clones the sentinel for kind, attaching the cause and metadata.
func newKindError(kind ErrorKind, source error, metadata map[string]any) error {
	base, ok := kindErrors[kind]
	if !ok {
		base = ErrUnknown
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if source != nil {
		clone.Source = source
	}
	if len(metadata) > 0 {
		clone.WithMetadata(metadata)
	}

	return clone
}
