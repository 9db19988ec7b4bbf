package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing resource (record, collection, database).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate catalog resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDuplicateID signals an id that is repeated in a call or already stored.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidArgument signals a malformed request value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingInput signals a call lacking a required combination of inputs.
	ErrMissingInput = errors.New("missing input")

	// ErrFilterSyntax signals an unknown operator or malformed operand.
	ErrFilterSyntax = errors.New("filter syntax error")
	// ErrFilterType signals a filter value whose type family contradicts the field.
	ErrFilterType = errors.New("filter type error")
	// ErrUnsupportedFilter signals an operator the backend cannot evaluate.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrSchemaConflict signals a metadata write contradicting the field's type family.
	ErrSchemaConflict = errors.New("metadata schema conflict")

	// ErrMissingEmbeddingFunction signals text input without a bound embedding function.
	ErrMissingEmbeddingFunction = errors.New("missing embedding function")
	// ErrDimensionMismatch signals a vector whose length differs from the collection dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEmbeddingFunctionContract signals an embedding function breaking its count contract.
	ErrEmbeddingFunctionContract = errors.New("embedding function contract violated")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrUnsupportedMode signals an operation the connected backend mode cannot serve.
	ErrUnsupportedMode = errors.New("operation not supported by backend mode")
)

// FilterError carries the offending field and operator of a rejected filter.
type FilterError struct {
	Kind   error
	Field  string
	Op     string
	Reason string
}

func (e *FilterError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Op != "" {
		fmt.Fprintf(&b, ": operator %s", e.Op)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *FilterError) Unwrap() error { return e.Kind }

// NewFilterSyntaxError creates a FilterError wrapping ErrFilterSyntax.
func NewFilterSyntaxError(field, op, reason string) error {
	return &FilterError{Kind: ErrFilterSyntax, Field: field, Op: op, Reason: reason}
}

// NewFilterTypeError creates a FilterError wrapping ErrFilterType.
func NewFilterTypeError(field, op, reason string) error {
	return &FilterError{Kind: ErrFilterType, Field: field, Op: op, Reason: reason}
}

// NewUnsupportedFilterError creates a FilterError wrapping ErrUnsupportedFilter.
func NewUnsupportedFilterError(op, backend string) error {
	return &FilterError{Kind: ErrUnsupportedFilter, Op: op, Reason: "not supported by " + backend}
}

// DimensionMismatchError reports which vector had the wrong length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Index    int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: vector %d has %d dimensions, collection expects %d",
		ErrDimensionMismatch.Error(), e.Index, e.Actual, e.Expected)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// IDError lists the ids that violated an identity contract.
type IDError struct {
	Kind error
	IDs  []string
}

func (e *IDError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Error(), strings.Join(e.IDs, ", "))
}

func (e *IDError) Unwrap() error { return e.Kind }

// NewDuplicateIDError creates an IDError wrapping ErrDuplicateID.
func NewDuplicateIDError(ids ...string) error {
	return &IDError{Kind: ErrDuplicateID, IDs: ids}
}

// NewNotFoundIDError creates an IDError wrapping ErrNotFound.
func NewNotFoundIDError(ids ...string) error {
	return &IDError{Kind: ErrNotFound, IDs: ids}
}
