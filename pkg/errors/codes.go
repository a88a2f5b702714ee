package errors

import "fmt"

// ErrorCode is the typed identifier for a failure category.  Codes are grouped
// by thousand so new entries can be added to a group without renumbering:
//
//	0          success sentinel
//	1000-1999  generic request/infrastructure failures
//	2000-2999  valuation-engine degraded conditions (returned, not thrown)
type ErrorCode int

const (
	// CodeOK is the zero value and means "no error".
	CodeOK ErrorCode = 0

	// CodeUnknown marks errors that carry no more specific classification.
	CodeUnknown ErrorCode = 1000

	// CodeInvalidParam marks a caller-supplied parameter that failed validation.
	CodeInvalidParam ErrorCode = 1001

	// CodeNotFound marks a lookup for an entity that does not exist.
	CodeNotFound ErrorCode = 1002

	// CodeInternal marks unexpected server-side failures.
	CodeInternal ErrorCode = 1003

	// CodeSerialization marks a marshal/unmarshal failure, typically in the
	// cache or message-ingest layers.
	CodeSerialization ErrorCode = 1004

	// CodeCorpusUnavailable marks a failure of the corpus read interface
	// itself (storage or network fault).  This is the only engine condition
	// that propagates to callers as a hard failure.
	CodeCorpusUnavailable ErrorCode = 1005

	// CodeCacheUnavailable marks a result-cache fault.  Callers degrade to
	// direct computation; the code exists for logging and metrics labels.
	CodeCacheUnavailable ErrorCode = 1006

	// CodeInsufficientData marks a comparable sample below the minimum size.
	// It is attached to neutral, low-confidence results rather than returned
	// as an error from the engine.
	CodeInsufficientData ErrorCode = 2000

	// CodeNotEvaluable marks a listing whose structural fields and text are
	// all empty, so no similarity factor can be computed for it.
	CodeNotEvaluable ErrorCode = 2001
)

// String returns the stable snake_case name of the code, used in API bodies,
// log fields, and metric labels.
func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeUnknown:
		return "unknown"
	case CodeInvalidParam:
		return "invalid_param"
	case CodeNotFound:
		return "not_found"
	case CodeInternal:
		return "internal"
	case CodeSerialization:
		return "serialization"
	case CodeCorpusUnavailable:
		return "corpus_unavailable"
	case CodeCacheUnavailable:
		return "cache_unavailable"
	case CodeInsufficientData:
		return "insufficient_data"
	case CodeNotEvaluable:
		return "not_evaluable"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// HTTPStatus maps a code to the HTTP status the interface layer should emit.
// The 2000-range degraded conditions travel inside successful results and map
// to 200 for completeness.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK, CodeInsufficientData, CodeNotEvaluable:
		return 200
	case CodeInvalidParam:
		return 400
	case CodeNotFound:
		return 404
	case CodeCorpusUnavailable, CodeCacheUnavailable:
		return 503
	default:
		return 500
	}
}
