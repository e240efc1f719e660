// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldAnalysisID = "analysis_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Analysis fields
	FieldRepository = "repository"
	FieldBranch     = "branch"
	FieldAlgorithm  = "algorithm"
	FieldBinning    = "binning"
	FieldCommits    = "commits"
	FieldFiles      = "files"

	// Path fields
	FieldPath      = "path"
	FieldOutputDir = "output_dir"

	// Timing fields
	FieldDurationMS = "duration_ms"
)
