package domain

import "errors"

var (
	// ErrFetchFailure is returned when the remote drive cannot be listed or downloaded.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrUnsupportedFormat is returned for files whose extension is not csv, json or parquet.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMissingColumn is returned when a required source column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrInvalidValue is returned when a source cell cannot be used in a calculation.
	ErrInvalidValue = errors.New("invalid value")
	// ErrSinkUnavailable is returned when the warehouse cannot be reached.
	ErrSinkUnavailable = errors.New("sink unavailable")
	// ErrSchemaMismatch is returned when incoming columns conflict with an existing table.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrLedgerUnavailable is returned when the local ledger cannot be opened or read.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrRunInProgress is returned when an ingestion run is already executing in this process.
	ErrRunInProgress = errors.New("ingestion run already in progress")
)
