package routing

import (
	"errors"
	"fmt"
)

// RoutingError is a routing-specific failure carrying a stable error code.
// Callers translate codes into operator-facing payment failures; the wrapped
// cause chain is preserved for diagnostics.
type RoutingError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	cause error
}

func (e *RoutingError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause chain to errors.Is and errors.As.
func (e *RoutingError) Unwrap() error { return e.cause }

// Error codes.
const (
	ErrCodeProfileIDMissing                 = "profile_id_missing"
	ErrCodeProfileNotFound                  = "profile_not_found"
	ErrCodeInvalidRoutingAlgorithmStructure = "invalid_routing_algorithm_structure"

	ErrCodeDslMissingInDb                   = "dsl_missing_in_db"
	ErrCodeDslParsingError                  = "dsl_parsing_error"
	ErrCodeDslBackendInitError              = "dsl_backend_init_error"
	ErrCodeDslExecutionError                = "dsl_execution_error"
	ErrCodeDslIncorrectSelectionAlgorithm   = "dsl_incorrect_selection_algorithm"
	ErrCodeDslFinalConnectorSelectionFailed = "dsl_final_connector_selection_failed"
	ErrCodeDslMissingRequiredField          = "dsl_missing_required_field"

	ErrCodeVolumeSplitFailed        = "volume_split_failed"
	ErrCodeConnectorSelectionFailed = "connector_selection_failed"

	ErrCodeMetadataParsingError = "metadata_parsing_error"

	ErrCodeKgraphCacheRefreshFailed = "kgraph_cache_refresh_failed"
	ErrCodeKgraphAnalysisError      = "kgraph_analysis_error"
	ErrCodeInvalidConnectorName     = "invalid_connector_name"

	ErrCodeFallbackConfigFetchFailed = "fallback_config_fetch_failed"
)

// newRoutingError builds a RoutingError with no cause.
func newRoutingError(code, message string) *RoutingError {
	return &RoutingError{Code: code, Message: message}
}

// wrapRouting attaches a routing code to an underlying cause.
func wrapRouting(err error, code, message string) *RoutingError {
	return &RoutingError{Code: code, Message: message, cause: err}
}

// missingFieldError reports a required DSL input field that was absent.
func missingFieldError(fieldName string) *RoutingError {
	return &RoutingError{
		Code:    ErrCodeDslMissingRequiredField,
		Message: fmt.Sprintf("missing required field %q", fieldName),
		Details: map[string]interface{}{"field_name": fieldName},
	}
}

// CodeOf extracts the routing error code from err's chain, or "".
func CodeOf(err error) string {
	var re *RoutingError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given routing error code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
