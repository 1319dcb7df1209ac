package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal error")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Exchange core kinds
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidHandle        = errors.New("invalid handle")
	ErrInvalidPostReference = errors.New("invalid post reference")
	ErrRequestNotFound      = errors.New("request not found")
	ErrRequestClosed        = errors.New("request closed")
	ErrSelfDealing          = errors.New("self dealing")
	ErrDuplicateClaim       = errors.New("duplicate claim")
	ErrCommentTooShort      = errors.New("comment too short")
	ErrEvidenceRequired     = errors.New("evidence required")
	ErrStorageUnavailable   = errors.New("storage unavailable")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user inactive")
	ErrProfileRequired    = errors.New("profile required")
	ErrProfileNotVerified = errors.New("profile not verified")
	ErrInvalidSlot        = errors.New("invalid profile slot")
	ErrProfileSlotsFull   = errors.New("profile slots full")
	ErrInvalidActionKind  = errors.New("invalid action kind")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEvidenceNotFound   = errors.New("evidence not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrInvalidPackage     = errors.New("invalid package")
	ErrTicketNotFound     = errors.New("ticket not found")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// storageError keeps the driver error for logs while matching ErrStorageUnavailable.
type storageError struct {
	cause error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %v", ErrStorageUnavailable, e.cause)
}

func (e *storageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func (e *storageError) Unwrap() error {
	return e.cause
}

// Storage wraps a persistence failure. Domain errors pass through untouched so a
// rejected validation inside a transaction keeps its kind.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return &storageError{cause: err}
}

type kind struct {
	err     error
	status  int
	code    string
	message string
}

var kinds = []kind{
	{ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds", "Not enough Coin for this operation."},
	{ErrInvalidHandle, http.StatusBadRequest, "invalid_handle", "The profile handle is empty or contains characters that are not allowed."},
	{ErrInvalidPostReference, http.StatusBadRequest, "invalid_post_reference", "The link is not a valid post, reel or TV link."},
	{ErrRequestNotFound, http.StatusNotFound, "request_not_found", "The interaction request does not exist."},
	{ErrRequestClosed, http.StatusConflict, "request_closed", "The interaction request is no longer open."},
	{ErrSelfDealing, http.StatusForbidden, "self_dealing", "You cannot complete your own request."},
	{ErrDuplicateClaim, http.StatusConflict, "duplicate_claim", "You already claimed this request."},
	{ErrCommentTooShort, http.StatusBadRequest, "comment_too_short", "Comments must contain at least 6 words."},
	{ErrEvidenceRequired, http.StatusBadRequest, "evidence_required", "A screenshot is required before this action can be paid."},
	{ErrUnauthorized, http.StatusForbidden, "unauthorized", "unauthorized"},
	{ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable", "Storage is temporarily unavailable. The operation was not applied; please retry."},
	{ErrUserNotFound, http.StatusNotFound, "user_not_found", "The user does not exist."},
	{ErrUserInactive, http.StatusForbidden, "user_inactive", "This account has been deactivated."},
	{ErrProfileRequired, http.StatusBadRequest, "profile_required", "Register the profile you want to act with first."},
	{ErrProfileNotVerified, http.StatusForbidden, "profile_not_verified", "This secondary profile has not been verified yet."},
	{ErrInvalidSlot, http.StatusBadRequest, "invalid_slot", "Secondary profile slot must be 1 or 2."},
	{ErrProfileSlotsFull, http.StatusConflict, "profile_slots_full", "You already registered one primary and two secondary profiles."},
	{ErrInvalidActionKind, http.StatusBadRequest, "invalid_action_kind", "Unknown action kind."},
	{ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity", "Quantity must be a positive number."},
	{ErrInvalidAmount, http.StatusBadRequest, "invalid_amount", "Amount must be a positive number."},
	{ErrEvidenceNotFound, http.StatusNotFound, "evidence_not_found", "The screenshot record does not exist."},
	{ErrInvalidTransition, http.StatusConflict, "invalid_transition", "This screenshot has already been reviewed."},
	{ErrInvalidPeriod, http.StatusBadRequest, "invalid_period", "Unknown ranking period."},
	{ErrPurchaseNotFound, http.StatusNotFound, "purchase_not_found", "The purchase does not exist."},
	{ErrInvalidPackage, http.StatusBadRequest, "invalid_package", "Unknown coin package."},
	{ErrTicketNotFound, http.StatusNotFound, "ticket_not_found", "The support ticket does not exist."},
	{ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limited", "You are doing that too fast."},
	{ErrNotFound, http.StatusNotFound, "not_found", "Resource not found."},
	{ErrBadRequest, http.StatusBadRequest, "bad_request", "Bad request."},
}

func lookup(err error) (kind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return kind{}, false
}

// IsDomain reports whether err is one of the known kinds other than storage.
func IsDomain(err error) bool {
	k, ok := lookup(err)
	return ok && k.err != ErrStorageUnavailable
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if k, ok := lookup(err); ok {
		return k.status
	}
	// Default to internal server error
	return http.StatusInternalServerError
}

// Code returns the stable machine code for err.
func Code(err error) string {
	if k, ok := lookup(err); ok {
		return k.code
	}
	return "internal"
}

// Message returns the stable human readable explanation for err. Unknown errors never
// leak their text.
func Message(err error) string {
	if k, ok := lookup(err); ok {
		return k.message
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Something went wrong. Please try again later."
}
