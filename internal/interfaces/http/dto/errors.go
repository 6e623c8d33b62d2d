package dto

import "net/http"

// Error codes produced by the HTTP layer itself. Domain errors keep the code
// their package defines.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// Shared domain codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInvalidState  = "INVALID_STATE"
)

// Upload codes
const (
	ErrCodeClassificationMismatch = "CLASSIFICATION_MISMATCH"
	ErrCodeStructuralFailure      = "STRUCTURAL_FAILURE"
)

// KPI lifecycle codes
const (
	ErrCodeMonthClosed            = "MONTH_CLOSED"
	ErrCodeBonusAlreadyCalculated = "BONUS_ALREADY_CALCULATED"
	ErrCodeBonusNotConfigured     = "BONUS_NOT_CONFIGURED"
	ErrCodeIndicatorsNotApproved  = "INDICATORS_NOT_APPROVED"
	ErrCodeKPIInactive            = "KPI_INACTIVE"
	ErrCodeActiveVersionExists    = "ACTIVE_VERSION_EXISTS"
	ErrCodeNotTemplate            = "NOT_TEMPLATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidState:  http.StatusConflict,

	// field-level domain validation -> 400
	"INVALID_NAME":      http.StatusBadRequest,
	"INVALID_PERIOD":    http.StatusBadRequest,
	"INVALID_TARGET":    http.StatusBadRequest,
	"INVALID_TYPE":      http.StatusBadRequest,
	"INVALID_WEIGHT":    http.StatusBadRequest,
	"INVALID_AMOUNT":    http.StatusBadRequest,
	"INVALID_THRESHOLD": http.StatusBadRequest,

	// the workbook was read but cannot be accepted -> 422
	ErrCodeClassificationMismatch: http.StatusUnprocessableEntity,
	ErrCodeStructuralFailure:      http.StatusUnprocessableEntity,

	// lifecycle conflicts -> 409
	ErrCodeMonthClosed:            http.StatusConflict,
	ErrCodeBonusAlreadyCalculated: http.StatusConflict,
	ErrCodeBonusNotConfigured:     http.StatusConflict,
	ErrCodeIndicatorsNotApproved:  http.StatusConflict,
	ErrCodeKPIInactive:            http.StatusConflict,
	ErrCodeActiveVersionExists:    http.StatusConflict,
	ErrCodeNotTemplate:            http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
