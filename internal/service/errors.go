package service

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// AppError is the error every service returns to the HTTP layer. Message
// is safe to show to the client, Err is only logged.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on status and message so sentinels compare with errors.Is
// even after being wrapped with a cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Message == t.Message
}

func newError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

func BadRequest(message string) *AppError   { return newError(http.StatusBadRequest, message) }
func Unauthorized(message string) *AppError { return newError(http.StatusUnauthorized, message) }
func Forbidden(message string) *AppError    { return newError(http.StatusForbidden, message) }
func NotFound(message string) *AppError     { return newError(http.StatusNotFound, message) }
func Conflict(message string) *AppError     { return newError(http.StatusConflict, message) }

func Internal(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

var (
	ErrInvalidCredentials     = Unauthorized("Invalid email or password")
	ErrEmailExists            = Conflict("Email already exists")
	ErrCaptchaFailed          = BadRequest("Captcha verification failed")
	ErrInvalidToken           = BadRequest("Invalid or expired token")
	ErrInsufficientCredits    = BadRequest("Insufficient credits")
	ErrInvalidAmount          = BadRequest("Amount must be greater than zero")
	ErrInvalidCreditType      = BadRequest("Invalid credit transaction type")
	ErrDescriptionRequired    = BadRequest("Description is required")
	ErrNoCreditPrice          = BadRequest("Course has no credit price configured")
	ErrDuplicateEnrollment    = Conflict("Child is already enrolled in this course")
	ErrCourseFull             = Conflict("Course is full")
	ErrSchedulingConflict     = Conflict("Coach already has a session in this time slot")
	ErrInvalidStateTransition = Conflict("Invalid session status transition")
	ErrInvalidTimeRange       = BadRequest("End time must be after start time")
	ErrCoachNotApproved       = Forbidden("Coach is not approved")
	ErrPaymentNotRefundable   = Conflict("Payment cannot be refunded")
)

// notFoundOr maps gorm.ErrRecordNotFound to a 404 with the given message
// and wraps anything else as an internal error.
func notFoundOr(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(message)
	}
	return dbError(err)
}

// dbError passes AppErrors through, turns constraint violations into 409
// and everything else into a 500.
func dbError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01":
			return &AppError{Status: ErrSchedulingConflict.Status, Message: ErrSchedulingConflict.Message, Err: err}
		case "23505":
			return &AppError{Status: http.StatusConflict, Message: "Resource already exists", Err: err}
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &AppError{Status: http.StatusConflict, Message: "Resource already exists", Err: err}
	}
	return Internal(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
