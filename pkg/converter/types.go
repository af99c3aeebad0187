package converter

import "time"

// Status defines the possible processing states of a file during conversion.
type Status string

// Constants representing the defined file processing statuses. Only Skipped,
// Success and Failed are terminal outcomes; the others are reported to hooks.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	// StatusFiltered marks a path rejected by the suffix or exclude rules
	// during discovery. It never becomes an Outcome.
	StatusFiltered Status = "filtered"
)

// IsTerminal reports whether s is a per-file verdict.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped
}

// OutputFormat defines the format of the final summary report.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatTOML OutputFormat = "toml"
)

// ErrorKind groups failures by where they originate.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindFilesystem    ErrorKind = "filesystem"
	ErrorKindDetection     ErrorKind = "detection"
	ErrorKindConversion    ErrorKind = "conversion"
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindInternal      ErrorKind = "internal"
)

// WorkItem is one file to convert. Both paths are absolute.
type WorkItem struct {
	SourcePath      string
	DestinationPath string
}

// Outcome is the result of running the conversion pipeline on one WorkItem.
type Outcome struct {
	Item           WorkItem
	Status         Status
	SourceEncoding string
	Message        string
	Err            error
	Duration       time.Duration
}
