package domain

import "errors"

var (
	// ErrMappingNotFound is returned when no column mapping is registered for a table.
	ErrMappingNotFound = errors.New("column mapping not found")
	// ErrInvalidMapping is returned when a mapping fails validation.
	ErrInvalidMapping = errors.New("invalid column mapping")
	// ErrEmptyBatch is returned when there is nothing to write.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrNormalizationAmbiguous marks a cell that did not match the shape expected for its column.
	// The original value is passed through.
	ErrNormalizationAmbiguous = errors.New("ambiguous cell value")
	// ErrWriteFailure wraps errors returned by the destination table write.
	ErrWriteFailure = errors.New("write failure")
	// ErrUnknownTable is returned when a table is not known to the schema introspector.
	ErrUnknownTable = errors.New("unknown destination table")
	// ErrUnknownColumn is returned when a mapped column is not a business column of the table.
	ErrUnknownColumn = errors.New("unknown destination column")
	// ErrBatchTooLarge is returned when a batch would exceed the driver bind-parameter limit.
	ErrBatchTooLarge = errors.New("batch exceeds bind parameter limit")
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
