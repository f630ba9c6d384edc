package labs

import "errors"

var (
	// ErrUnknownAnalyte is informational. Categorization degrades to unknown
	// severity instead of returning it.
	ErrUnknownAnalyte = errors.New("analyte has no reference range")
	ErrEmptyExport    = errors.New("no panels to export")
	ErrSchemaMismatch = errors.New("panel analytes do not match export columns")
	ErrInvalidWindow  = errors.New("invalid time window")
	ErrMissingDate    = errors.New("csv header has no date column")
)
