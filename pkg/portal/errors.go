package portal

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("portal.invalid_credentials")
	ErrUserNotFound       = errors.New("portal.user_not_found")
	ErrUserDisabled       = errors.New("portal.user_disabled")
	ErrInvalidDirectory   = errors.New("portal.invalid_directory")
	ErrMissingDependency  = errors.New("portal.missing_dependency")
	ErrInvalidJSON        = errors.New("portal.invalid_json")
	ErrUnsupportedMedia   = errors.New("portal.unsupported_media_type")
)

// HTTPError is an error with a status code and a stable machine-readable key.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string {
	return e.Key
}

var (
	errBadRequest      = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	errUnauthorized    = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	errForbidden       = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	errNotFound        = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	errInvalidCode     = HTTPError{Code: http.StatusUnauthorized, Key: "invalid_code"}
	errMFANotEnrolled  = HTTPError{Code: http.StatusConflict, Key: "mfa_not_enrolled"}
	errUnprocessable   = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	errInternal        = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	errAuditNotEnabled = HTTPError{Code: http.StatusNotImplemented, Key: "audit_not_enabled"}
)
