package models

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeUpstream            = "UPSTREAM_ERROR"
	ErrCodeMalformedResponse   = "MALFORMED_RESPONSE"
	ErrCodeNoJSONFound         = "NO_JSON_FOUND"
	ErrCodeJSONParse           = "JSON_PARSE_ERROR"
	ErrCodeInvalidArchitecture = "INVALID_ARCHITECTURE"
	ErrCodeMissingPrerequisite = "MISSING_PREREQUISITE"
	ErrCodeGenerationNotFound  = "GENERATION_NOT_FOUND"
)
