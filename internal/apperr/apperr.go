package apperr

import "net/http"

// Error is an anticipated, client-safe failure. Anything that reaches the
// error middleware without being (or mapping to) an *Error is treated as a
// programming fault and masked in production.
type Error struct {
	Code        int
	Message     string
	Operational bool
}

func (e *Error) Error() string {
	return e.Message
}

// Status returns the response envelope status for the carried code:
// "fail" for 4xx, "error" otherwise.
func (e *Error) Status() string {
	if e.Code >= 400 && e.Code < 500 {
		return "fail"
	}
	return "error"
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message, Operational: true}
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}
