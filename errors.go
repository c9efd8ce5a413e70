package eduAuth

import (
	"errors"
	"net/http"
)

// AuthError is a caller-visible failure. Message is safe to show to clients;
// Code is stable and used for matching and audit.
type AuthError struct {
	Code    string
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	return e.Message
}

// HTTPStatus returns the status the error maps to, 400 when unset.
func (e *AuthError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

// Is matches on Code so role-labelled variants still match their sentinel.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrAccountNotFound        = &AuthError{Code: "account_not_found", Message: "Account not found"}
	ErrAccountInactive        = &AuthError{Code: "account_inactive", Message: "Your account has been deactivated"}
	ErrAccountDeleted         = &AuthError{Code: "account_deleted", Message: "Your account has been deleted"}
	ErrInvalidCredentials     = &AuthError{Code: "invalid_credentials", Message: "Invalid email or password"}
	ErrInvalidOTP             = &AuthError{Code: "invalid_otp", Message: "Invalid OTP"}
	ErrInvalidEmail           = &AuthError{Code: "invalid_email", Message: "Invalid email address"}
	ErrInvalidMobile          = &AuthError{Code: "invalid_mobile", Message: "Invalid mobile number"}
	ErrEmailExists            = &AuthError{Code: "email_exists", Message: "An account with this email already exists"}
	ErrMobileExists           = &AuthError{Code: "mobile_exists", Message: "An account with this mobile number already exists"}
	ErrInvalidCurrentPassword = &AuthError{Code: "invalid_current_password", Message: "invalid current password"}
	ErrPasswordReuse          = &AuthError{Code: "password_reuse", Message: "New password must be different from current password"}
	ErrPasswordTooLong        = &AuthError{Code: "password_too_long", Message: "Password must be at most 72 bytes"}
	ErrRoleNotAllowed         = &AuthError{Code: "role_not_allowed", Message: "Operation not allowed for this account type"}
	ErrRateLimited            = &AuthError{Code: "rate_limited", Message: "Too many requests, please try again later", Status: http.StatusTooManyRequests}
	ErrUnauthorized           = &AuthError{Code: "unauthorized", Message: "unauthorized", Status: http.StatusUnauthorized}
	ErrInternal               = &AuthError{Code: "internal_error", Message: "internal server error", Status: http.StatusInternalServerError}
)

var (
	// ErrPrincipalNotFound is returned by Directory lookups that match nothing.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDuplicatePrincipal is returned by Directory.Create on a unique index clash.
	ErrDuplicatePrincipal = errors.New("duplicate principal")
	// ErrEngineNotReady is returned when an Engine was not built by Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// validationError turns a field check failure into a 400 AuthError carrying
// the field list message.
func validationError(err error) *AuthError {
	return &AuthError{Code: "validation", Message: err.Error(), Status: http.StatusBadRequest}
}

func notFoundFor(role Role) *AuthError {
	return &AuthError{Code: ErrAccountNotFound.Code, Message: role.Label() + " not found"}
}
