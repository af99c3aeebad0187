package converter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// BatchResult is the reduction of all outcomes of one run.
type BatchResult struct {
	Total     int
	Skipped   int
	Succeeded int
	Failed    int
	// Verdict is StatusFailed iff Failed > 0, StatusSuccess otherwise.
	Verdict Status

	errs []error
}

// Aggregate reduces outcomes to counts and a verdict. The result does not
// depend on the order of outcomes. No outcomes yields a successful, empty
// result.
func Aggregate(outcomes []Outcome) BatchResult {
	result := BatchResult{Total: len(outcomes), Verdict: StatusSuccess}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSkipped:
			result.Skipped++
		case StatusSuccess:
			result.Succeeded++
		default:
			result.Failed++
			if o.Err != nil {
				result.errs = append(result.errs, fmt.Errorf("%s: %w", o.Item.SourcePath, o.Err))
			} else {
				result.errs = append(result.errs, fmt.Errorf("%s: %s", o.Item.SourcePath, o.Message))
			}
		}
	}
	if result.Failed > 0 {
		result.Verdict = StatusFailed
	}
	return result
}

// Err returns every failed file's error combined, or nil when none failed.
func (b BatchResult) Err() error {
	var merr *multierror.Error
	for _, err := range b.errs {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// Report summarizes the result of a single Convert run.
type Report struct {
	Summary ReportSummary `json:"summary" yaml:"summary" toml:"summary"`
	Files   []FileResult  `json:"files" yaml:"files" toml:"files"`
}

// ReportSummary contains aggregated statistics for a Convert run.
type ReportSummary struct {
	InputPath          string    `json:"inputPath" yaml:"inputPath" toml:"inputPath"`
	OutputPath         string    `json:"outputPath" yaml:"outputPath" toml:"outputPath"`
	TargetEncoding     string    `json:"targetEncoding" yaml:"targetEncoding" toml:"targetEncoding"`
	ConfigFilePath     string    `json:"configFilePath,omitempty" yaml:"configFilePath,omitempty" toml:"configFilePath,omitempty"`
	DryRun             bool      `json:"dryRun" yaml:"dryRun" toml:"dryRun"`
	Recursive          bool      `json:"recursive" yaml:"recursive" toml:"recursive"`
	Concurrency        int       `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	TotalFiles         int       `json:"totalFiles" yaml:"totalFiles" toml:"totalFiles"`
	SucceededCount     int       `json:"succeededCount" yaml:"succeededCount" toml:"succeededCount"`
	SkippedCount       int       `json:"skippedCount" yaml:"skippedCount" toml:"skippedCount"`
	FailedCount        int       `json:"failedCount" yaml:"failedCount" toml:"failedCount"`
	Verdict            Status    `json:"verdict" yaml:"verdict" toml:"verdict"`
	FatalErrorOccurred bool      `json:"fatalError" yaml:"fatalError" toml:"fatalError"`
	FatalErrorMessage  string    `json:"fatalErrorMessage,omitempty" yaml:"fatalErrorMessage,omitempty" toml:"fatalErrorMessage,omitempty"`
	Diagnostics        []string  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty" toml:"diagnostics,omitempty"`
	DurationSeconds    float64   `json:"durationSeconds" yaml:"durationSeconds" toml:"durationSeconds"`
	Timestamp          time.Time `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	SchemaVersion      string    `json:"schemaVersion" yaml:"schemaVersion" toml:"schemaVersion"`
}

// FileResult details the outcome for one file.
type FileResult struct {
	Path       string    `json:"path" yaml:"path" toml:"path"`
	OutputPath string    `json:"outputPath" yaml:"outputPath" toml:"outputPath"`
	Status     Status    `json:"status" yaml:"status" toml:"status"`
	Encoding   string    `json:"encoding,omitempty" yaml:"encoding,omitempty" toml:"encoding,omitempty"`
	Message    string    `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty" yaml:"errorKind,omitempty" toml:"errorKind,omitempty"`
	DurationMs int64     `json:"durationMs" yaml:"durationMs" toml:"durationMs"`
}

// newReport assembles the final Report.
func newReport(opts *Options, concurrency int, batch BatchResult, outcomes []Outcome, startTime time.Time, fatalErr error, diagnostics []string) Report {
	files := make([]FileResult, 0, len(outcomes))
	for _, o := range outcomes {
		fr := FileResult{
			Path:       o.Item.SourcePath,
			OutputPath: o.Item.DestinationPath,
			Status:     o.Status,
			Encoding:   o.SourceEncoding,
			Message:    o.Message,
			DurationMs: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			fr.Error = o.Err.Error()
			fr.ErrorKind = ErrorKindOf(o.Err)
		}
		files = append(files, fr)
	}

	verdict := batch.Verdict
	summary := ReportSummary{
		InputPath:       opts.InputPath,
		OutputPath:      opts.OutputPath,
		TargetEncoding:  opts.TargetEncoding,
		ConfigFilePath:  opts.ConfigFilePath,
		DryRun:          opts.DryRun,
		Recursive:       opts.Recursive,
		Concurrency:     concurrency,
		TotalFiles:      batch.Total,
		SucceededCount:  batch.Succeeded,
		SkippedCount:    batch.Skipped,
		FailedCount:     batch.Failed,
		Diagnostics:     diagnostics,
		DurationSeconds: time.Since(startTime).Seconds(),
		Timestamp:       time.Now().UTC(),
		SchemaVersion:   ReportSchemaVersion,
	}
	if fatalErr != nil {
		summary.FatalErrorOccurred = true
		summary.FatalErrorMessage = fatalErr.Error()
		verdict = StatusFailed
	}
	summary.Verdict = verdict

	return Report{Summary: summary, Files: files}
}

// Encode writes the report in a machine-readable format. Text rendering is
// left to the caller.
func (r Report) Encode(w io.Writer, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case OutputFormatTOML:
		return toml.NewEncoder(w).Encode(r)
	default:
		return fmt.Errorf("%w: unsupported report format %q", ErrConfigValidation, format)
	}
}
