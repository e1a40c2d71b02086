// Package errors provides the standardized error-code and error-response
// system shared by middleware, handlers and the dispatcher.
package errors

// ErrorCode is a stable, categorized application error code.
type ErrorCode int

// Error code categories:
// 1xxx - Validation / extraction errors
// 2xxx - Authentication/Authorization errors
// 3xxx - System errors
// 4xxx - Dispatch errors
const (
	// Validation / extraction errors (1xxx)
	CodeValidationFailed     ErrorCode = 1000
	CodeInvalidInput         ErrorCode = 1001
	CodeMissingRequiredField ErrorCode = 1002
	CodeInvalidFormat        ErrorCode = 1003
	CodeInvalidQueryParam    ErrorCode = 1004

	// Authentication/Authorization errors (2xxx)
	CodeUnauthorized ErrorCode = 2000
	CodeTokenExpired ErrorCode = 2001
	CodeTokenInvalid ErrorCode = 2002
	CodeTokenMissing ErrorCode = 2003
	CodeForbidden    ErrorCode = 2004

	// System errors (3xxx)
	CodeInternalServerError ErrorCode = 3000
	CodeServiceUnavailable  ErrorCode = 3001
	CodeTimeout             ErrorCode = 3002
	CodeRateLimitExceeded   ErrorCode = 3003

	// Dispatch errors (4xxx)
	CodeRouteNotFound      ErrorCode = 4000
	CodeMethodNotAllowed   ErrorCode = 4001
	CodeStateContract      ErrorCode = 4002
	CodeHandlerFailure     ErrorCode = 4003
	CodeRequestCancelled   ErrorCode = 4004
)

var errorMessages = map[ErrorCode]string{
	CodeValidationFailed:     "Validation failed",
	CodeInvalidInput:         "Invalid input provided",
	CodeMissingRequiredField: "Required field is missing",
	CodeInvalidFormat:        "Invalid format",
	CodeInvalidQueryParam:    "Invalid query parameter",

	CodeUnauthorized: "Unauthorized access",
	CodeTokenExpired: "Token has expired",
	CodeTokenInvalid: "Invalid token",
	CodeTokenMissing: "Token is missing",
	CodeForbidden:    "Access forbidden",

	CodeInternalServerError: "Internal server error",
	CodeServiceUnavailable:  "Service temporarily unavailable",
	CodeTimeout:             "Request timeout",
	CodeRateLimitExceeded:   "Rate limit exceeded",

	CodeRouteNotFound:    "Route not found",
	CodeMethodNotAllowed: "Method not allowed",
	CodeStateContract:    "Request state contract violation",
	CodeHandlerFailure:   "Handler failed to process request",
	CodeRequestCancelled: "Request cancelled",
}

// Message returns the default message for an error code.
func (e ErrorCode) Message() string {
	if msg, ok := errorMessages[e]; ok {
		return msg
	}
	return "Unknown error"
}

// Int returns the error code as an integer.
func (e ErrorCode) Int() int {
	return int(e)
}

// HTTPStatus returns the HTTP status code an error code maps to. Unrecognized
// codes map to 500 so an unmapped failure never leaks as a success.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case CodeValidationFailed, CodeInvalidInput, CodeMissingRequiredField,
		CodeInvalidFormat, CodeInvalidQueryParam:
		return 400
	case CodeUnauthorized, CodeTokenExpired, CodeTokenInvalid, CodeTokenMissing:
		return 401
	case CodeForbidden:
		return 403
	case CodeRouteNotFound:
		return 404
	case CodeMethodNotAllowed:
		return 405
	case CodeRequestCancelled:
		// Non-standard but widely used "client closed request".
		return 499
	case CodeRateLimitExceeded:
		return 429
	case CodeServiceUnavailable:
		return 503
	case CodeTimeout:
		return 504
	default:
		return 500
	}
}
