package seekdb

import "github.com/kailas-cloud/seekdb/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                  = domain.ErrNotFound
	ErrAlreadyExists             = domain.ErrAlreadyExists
	ErrDuplicateID               = domain.ErrDuplicateID
	ErrInvalidArgument           = domain.ErrInvalidArgument
	ErrMissingInput              = domain.ErrMissingInput
	ErrFilterSyntax              = domain.ErrFilterSyntax
	ErrFilterType                = domain.ErrFilterType
	ErrUnsupportedFilter         = domain.ErrUnsupportedFilter
	ErrSchemaConflict            = domain.ErrSchemaConflict
	ErrMissingEmbeddingFunction  = domain.ErrMissingEmbeddingFunction
	ErrDimensionMismatch         = domain.ErrDimensionMismatch
	ErrEmbeddingFunctionContract = domain.ErrEmbeddingFunctionContract
	ErrEmbeddingProviderError    = domain.ErrEmbeddingProviderError
	ErrUnsupportedMode           = domain.ErrUnsupportedMode
)

// Typed errors carrying details. Use errors.As() to inspect.
type (
	FilterError            = domain.FilterError
	DimensionMismatchError = domain.DimensionMismatchError
	IDError                = domain.IDError
)
