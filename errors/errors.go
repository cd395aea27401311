package errors

import (
	"encoding/json"
)

// ErrorCode represents a specific error code.
type ErrorCode string

// GenericErrorCode is used when a plain error is wrapped into an ErrorResponse.
const GenericErrorCode = ErrorCode("0")

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface for ErrorResponse.
func (e *ErrorResponse) Error() string {
	errorJSON, _ := json.Marshal(e)
	return string(errorJSON)
}

// CreateErrorResponseFromError creates an ErrorResponse from a generic error.
func CreateErrorResponseFromError(err error) error {
	if err == nil {
		return nil
	}
	if errResp, ok := err.(*ErrorResponse); ok {
		return errResp
	}
	return &ErrorResponse{
		Code:    GenericErrorCode,
		Details: err.Error(),
	}
}

// ErrorCodeFromError returns the code of the error if it is an ErrorResponse,
// otherwise the generic code.
func ErrorCodeFromError(err error) ErrorCode {
	if errResp, ok := err.(*ErrorResponse); ok {
		return errResp.Code
	}
	return GenericErrorCode
}

// DetailsFromError returns the details of the error if it is an ErrorResponse,
// otherwise the error message.
func DetailsFromError(err error) string {
	if err == nil {
		return ""
	}
	if errResp, ok := err.(*ErrorResponse); ok {
		return errResp.Details
	}
	return err.Error()
}
