package types

// ErrorResponse is returned for request errors outside the classify
// contract (bad JSON, unknown route parameters, store failures).
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Error codes.
const (
	CodeInvalidJSON  = "invalid_json"
	CodeMissingField = "missing_field"
	CodeInvalidValue = "invalid_value"
	CodeBodyTooLarge = "body_too_large"
	CodeNotFound     = "not_found"
	CodeInternal     = "internal_error"
	CodeTimeout      = "timeout"
	CodeRateLimited  = "rate_limited"
)

// NewErrorResponse creates an error body.
func NewErrorResponse(code, msg string) *ErrorResponse {
	return &ErrorResponse{Success: false, Error: msg, Code: code}
}
