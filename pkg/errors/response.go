package errors

import (
	"time"

	"github.com/vireo-web/vireo/response"
)

// ErrorResponse is the standardized JSON error payload. It implements error,
// so a middleware or handler can return one directly to control exactly what
// the client sees; the dispatcher maps its code to the HTTP status.
type ErrorResponse struct {
	Success     bool           `json:"success"`
	ErrorDetail ErrorDetail    `json:"error"`
	Timestamp   time.Time      `json:"timestamp"`
	RequestID   string         `json:"request_id,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// ErrorDetail carries the code, message and optional structured details.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.ErrorDetail.Message
}

// Code returns the application error code.
func (e *ErrorResponse) Code() ErrorCode {
	return ErrorCode(e.ErrorDetail.Code)
}

// New creates an error response with the given code and message.
func New(code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		ErrorDetail: ErrorDetail{
			Code:    code.Int(),
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewFromCode creates an error response using the code's default message.
func NewFromCode(code ErrorCode) *ErrorResponse {
	return New(code, code.Message())
}

// WithRequestID attaches the request's correlation ID.
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.RequestID = requestID
	return e
}

// WithDetail adds a single structured detail.
func (e *ErrorResponse) WithDetail(key string, value any) *ErrorResponse {
	if e.ErrorDetail.Details == nil {
		e.ErrorDetail.Details = make(map[string]any)
	}
	e.ErrorDetail.Details[key] = value
	return e
}

// WithMeta attaches response metadata.
func (e *ErrorResponse) WithMeta(meta map[string]any) *ErrorResponse {
	e.Meta = meta
	return e
}

// Response renders the payload as a wire response at the code's HTTP status.
func (e *ErrorResponse) Response() *response.Response {
	r, err := response.JSON(e.Code().HTTPStatus(), e)
	if err != nil {
		// Details contained something unmarshalable; degrade to the message.
		return response.Error(e.Code().HTTPStatus(), e.ErrorDetail.Message)
	}
	return r
}
