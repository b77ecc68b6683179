// SPDX-License-Identifier: MIT

package log

// Canonical field names used across this module's structured log lines, so
// a log aggregator can query on "account" or "stage" consistently instead
// of each package picking its own spelling.
const (
	FieldRequestID = "request_id"
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldAccount   = "account"
	FieldStage     = "stage"
	FieldOldState  = "old_state"
	FieldNewState  = "new_state"
)
