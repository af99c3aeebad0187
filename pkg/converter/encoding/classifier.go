package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

const (
	// sniffLen is the number of leading bytes handed to mimetype, matching its
	// default read limit.
	sniffLen = 3072
	// nullThreshold is the fraction of NUL bytes above which an otherwise
	// inconclusive sample is treated as binary.
	nullThreshold = 0.15
)

// Text-based MIME types that do not descend from text/plain in mimetype's tree.
var knownTextMIMEPrefixes = map[string]bool{
	"application/json":          true,
	"application/xml":           true,
	"application/javascript":    true,
	"application/ecmascript":    true,
	"application/yaml":          true,
	"application/toml":          true,
	"application/csv":           true,
	"application/sql":           true,
	"application/rtf":           true,
	"application/ld+json":       true,
	"application/manifest+json": true,
	"application/schema+json":   true,
	"application/typescript":    true,
	"application/markdown":      true,
	"image/svg+xml":             true,
}

var knownTextMIMESuffixes = map[string]bool{
	"+xml":  true,
	"+json": true,
}

// Classifier decides whether a file holds text worth converting.
// Implementations must be safe for concurrent use.
type Classifier interface {
	// Classify reports whether the file at path is text, together with the
	// sniffed MIME type.
	Classify(path string) (isText bool, mimeType string, err error)
}

// MimeClassifier sniffs the head of a file with github.com/gabriel-vasile/mimetype.
type MimeClassifier struct {
	fs afero.Fs
}

// NewMimeClassifier returns a classifier reading through fs.
func NewMimeClassifier(fs afero.Fs) *MimeClassifier {
	return &MimeClassifier{fs: fs}
}

// Classify implements Classifier.
func (c *MimeClassifier) Classify(path string) (bool, string, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		return false, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, "", fmt.Errorf("read %s: %w", path, err)
	}
	sample := buf[:n]
	if len(sample) == 0 {
		return true, "", nil
	}

	mt := mimetype.Detect(sample)
	return IsTextSample(mt, sample), mt.String(), nil
}

// IsTextSample reports whether a sniffed sample is text. Anything in the
// text/plain subtree is text; other text-like types and the generic
// octet-stream fall through to a NUL density check.
func IsTextSample(mt *mimetype.MIME, sample []byte) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	if !isMIMETextBased(mt.String()) {
		return false
	}
	if len(sample) == 0 {
		return true
	}
	nullCount := bytes.Count(sample, []byte{0x00})
	return float64(nullCount)/float64(len(sample)) <= nullThreshold
}

// isMIMETextBased checks if a detected MIME type is likely text-based.
func isMIMETextBased(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])

	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	if knownTextMIMEPrefixes[mimeType] {
		return true
	}
	for suffix := range knownTextMIMESuffixes {
		if strings.HasSuffix(mimeType, suffix) {
			return true
		}
	}
	// octet-stream may still be text in an unusual encoding; rely on the NUL check
	return mimeType == "application/octet-stream"
}
