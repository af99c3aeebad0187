package encoding

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Detector names the character encoding of a byte buffer.
//
// Implementations may hold mutable state between calls and are not required
// to be safe for concurrent use; the engine gives every worker its own
// instance through a DetectorFactory.
type Detector interface {
	// Detect returns an encoding label for content. It returns ErrEmptyContent
	// for zero-length input and ErrUnrecognizedEncoding when no label can be
	// determined.
	Detect(content []byte) (string, error)
}

// DetectorFactory builds a fresh Detector. It is called once per worker.
type DetectorFactory func() Detector

// ChardetDetector detects encodings with a byte-order-mark sniff, a UTF-8
// validity check, and finally the statistical recognizers of
// github.com/saintfish/chardet.
type ChardetDetector struct {
	text          *chardet.Detector
	minConfidence int
}

// NewChardetDetector returns a detector that rejects statistical guesses with
// a confidence below minConfidence (0-100).
func NewChardetDetector(minConfidence int) *ChardetDetector {
	return &ChardetDetector{
		text:          chardet.NewTextDetector(),
		minConfidence: minConfidence,
	}
}

// NewChardetDetectorFactory returns a DetectorFactory producing
// ChardetDetectors with the given confidence floor.
func NewChardetDetectorFactory(minConfidence int) DetectorFactory {
	return func() Detector { return NewChardetDetector(minConfidence) }
}

// Detect implements Detector.
func (d *ChardetDetector) Detect(content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}

	// A BOM is authoritative. DetermineEncoding reports certain=true only for
	// BOMs when no content type is given.
	if _, name, certain := charset.DetermineEncoding(content, ""); certain {
		return canonicalName(name), nil
	}

	if utf8.Valid(content) {
		return "UTF-8", nil
	}

	result, err := d.text.DetectBest(content)
	if err != nil {
		if errors.Is(err, chardet.NotDetectedError) {
			return "", ErrUnrecognizedEncoding
		}
		return "", fmt.Errorf("%w: %w", ErrUnrecognizedEncoding, err)
	}
	if result == nil || result.Charset == "" {
		return "", ErrUnrecognizedEncoding
	}
	if result.Confidence < d.minConfidence {
		return "", fmt.Errorf("%w: best guess %s at confidence %d is below %d",
			ErrUnrecognizedEncoding, result.Charset, result.Confidence, d.minConfidence)
	}
	return result.Charset, nil
}

// canonicalName maps a lower-case WHATWG name ("utf-16le") to its IANA
// spelling, falling back to the input.
func canonicalName(name string) string {
	if _, canonical, err := Lookup(name); err == nil {
		return canonical
	}
	return name
}
