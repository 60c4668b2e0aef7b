package contracts

import "fmt"

// The scan error taxonomy. ConfigError and AggregationError abort a
// run; AcquisitionError and ComputationError are downgraded to entries
// in ScanResult at the smallest possible boundary.

// ConfigError reports an invalid window or parameter. Fatal, raised
// pre-flight before any acquisition.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// AcquisitionError reports a failed bar fetch for one ticker or date.
// Recorded per unit; the run continues.
type AcquisitionError struct {
	Unit string // ticker symbol or acquisition date
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition %s: %v", e.Unit, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ComputationError reports an unexpected failure inside feature or
// pattern logic for one ticker. Caught at the worker boundary.
type ComputationError struct {
	Ticker string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation %s: %v", e.Ticker, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// AggregationError reports a failure merging per-unit results. Fatal;
// it indicates a structural bug, not bad data.
type AggregationError struct {
	Message string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation: %s", e.Message)
}
