package encoding

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent is returned by a Detector given zero bytes. Callers treat
	// it as a skip rather than a failure.
	ErrEmptyContent = errors.New("empty content")

	// ErrUnrecognizedEncoding is returned when the detector cannot name an
	// encoding for non-empty content, or its best guess is below the
	// configured confidence floor.
	ErrUnrecognizedEncoding = errors.New("unrecognized encoding")

	// ErrUnsupportedEncoding indicates a label that neither the IANA index nor
	// the WHATWG table can resolve to a codec.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrOutputBufferExhausted is returned when the transcoder runs out of
	// output space and growing the buffer is disabled.
	ErrOutputBufferExhausted = errors.New("conversion output buffer exhausted")
)

// ConversionError reports a failed transcode between two named encodings.
type ConversionError struct {
	From string
	To   string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert from %s to %s: %v", e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
