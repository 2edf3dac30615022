package dto

// ErrorResponse is the body of every failed request. Code is machine
// readable (snake_case), Message is meant for the user.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeDuplicateKey = "duplicate_key"
	CodeReferenced   = "referenced"
	CodeLastAdmin    = "last_admin"
	CodeUnavailable  = "store_unavailable"
	CodeInternal     = "internal_error"
)

func NewValidationError(msg string) ErrorResponse {
	return ErrorResponse{Code: CodeValidation, Message: msg}
}

func NewUnauthorizedError(msg string) ErrorResponse {
	return ErrorResponse{Code: CodeUnauthorized, Message: msg}
}

func NewForbiddenError(msg string) ErrorResponse {
	return ErrorResponse{Code: CodeForbidden, Message: msg}
}

func NewNotFoundError(msg string) ErrorResponse {
	return ErrorResponse{Code: CodeNotFound, Message: msg}
}

func NewUnavailableError(msg string) ErrorResponse {
	return ErrorResponse{Code: CodeUnavailable, Message: msg}
}

func NewInternalError() ErrorResponse {
	return ErrorResponse{Code: CodeInternal, Message: "internal server error"}
}
