package converter

import (
	"errors"

	"github.com/stackvity/chconv/pkg/converter/encoding"
)

// --- Exported Error Variables ---
// Batch-level errors are returned by Convert; per-file errors are carried on
// Outcome.Err. Library users can check against these using errors.Is.

var (
	// ErrInputNotFound indicates the input path does not exist.
	ErrInputNotFound = errors.New("input path does not exist")

	// ErrInputFiltered indicates a single-file input rejected by the suffix
	// or exclude rules.
	ErrInputFiltered = errors.New("input file filtered out")

	// ErrDiscoveryFailed indicates a directory could not be enumerated. It
	// aborts the whole batch.
	ErrDiscoveryFailed = errors.New("failed to enumerate input directory")

	// ErrClassifyFailed indicates the content classifier could not read the file.
	ErrClassifyFailed = errors.New("failed to classify file")

	// ErrReadFailed indicates a failure to read a source file from the filesystem.
	// This might be due to permissions or the file being deleted after discovery.
	ErrReadFailed = errors.New("failed to read file")

	// ErrMkdirFailed indicates a failure to create a necessary output subdirectory.
	ErrMkdirFailed = errors.New("failed to create output directory")

	// ErrWriteFailed indicates a failure to write the converted content.
	// No partial destination file is left behind.
	ErrWriteFailed = errors.New("failed to write output file")

	// ErrConfigValidation indicates that the provided Options struct failed
	// validation checks performed at the beginning of Convert.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrBatchFailed is returned by the CLI when at least one file failed.
	ErrBatchFailed = errors.New("one or more files failed to convert")

	// ErrWorkerPanic indicates a task panicked; the panic is converted into a
	// Failed outcome for that file only.
	ErrWorkerPanic = errors.New("worker panicked")
)

// ErrorKindOf classifies err into one of the failure families used in reports.
func ErrorKindOf(err error) ErrorKind {
	var convErr *encoding.ConversionError
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.As(err, &convErr),
		errors.Is(err, encoding.ErrUnsupportedEncoding),
		errors.Is(err, encoding.ErrOutputBufferExhausted):
		return ErrorKindConversion
	case errors.Is(err, encoding.ErrUnrecognizedEncoding),
		errors.Is(err, encoding.ErrEmptyContent):
		return ErrorKindDetection
	case errors.Is(err, ErrConfigValidation):
		return ErrorKindConfiguration
	case errors.Is(err, ErrWorkerPanic):
		return ErrorKindInternal
	case errors.Is(err, ErrInputNotFound),
		errors.Is(err, ErrInputFiltered),
		errors.Is(err, ErrDiscoveryFailed),
		errors.Is(err, ErrClassifyFailed),
		errors.Is(err, ErrReadFailed),
		errors.Is(err, ErrMkdirFailed),
		errors.Is(err, ErrWriteFailed):
		return ErrorKindFilesystem
	default:
		return ErrorKindInternal
	}
}
