package encoding

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// outputBufferFactor sizes the initial output buffer relative to the input.
	outputBufferFactor = 2
	// minOutputBuffer keeps tiny inputs from starting with a useless buffer.
	minOutputBuffer = 64
)

// Transcoder rewrites a byte buffer from one encoding to another.
// Implementations must be safe for concurrent use.
type Transcoder interface {
	Transcode(content []byte, from, to string) ([]byte, error)
}

// XTextTranscoder transcodes with golang.org/x/text codecs by chaining the
// source decoder (which consumes a leading BOM) with the target encoder.
type XTextTranscoder struct {
	growBuffer bool
}

// NewXTextTranscoder returns a transcoder. With growBuffer false, output that
// does not fit in twice the input size fails with ErrOutputBufferExhausted
// instead of being retried with a larger buffer.
func NewXTextTranscoder(growBuffer bool) *XTextTranscoder {
	return &XTextTranscoder{growBuffer: growBuffer}
}

// Transcode implements Transcoder. Every error it returns is a
// *ConversionError naming both encodings.
func (t *XTextTranscoder) Transcode(content []byte, from, to string) ([]byte, error) {
	fromEnc, fromName, err := Lookup(from)
	if err != nil {
		return nil, &ConversionError{From: from, To: to, Err: err}
	}
	toEnc, toName, err := Lookup(to)
	if err != nil {
		return nil, &ConversionError{From: from, To: to, Err: err}
	}

	chain := transform.Chain(unicode.BOMOverride(fromEnc.NewDecoder()), toEnc.NewEncoder())
	out, err := t.run(chain, content)
	if err != nil {
		return nil, &ConversionError{From: fromName, To: toName, Err: err}
	}
	return out, nil
}

// run drives the transformer over src in a single pass, doubling the output
// buffer whenever it reports ErrShortDst.
func (t *XTextTranscoder) run(tr transform.Transformer, src []byte) ([]byte, error) {
	tr.Reset()
	size := len(src) * outputBufferFactor
	if size < minOutputBuffer {
		size = minOutputBuffer
	}
	dst := make([]byte, size)

	var nDst, nSrc int
	for {
		n, m, err := tr.Transform(dst[nDst:], src[nSrc:], true)
		nDst += n
		nSrc += m
		if err == nil {
			return dst[:nDst], nil
		}
		if !errors.Is(err, transform.ErrShortDst) {
			return nil, err
		}
		if !t.growBuffer {
			return nil, ErrOutputBufferExhausted
		}
		grown := make([]byte, len(dst)*2)
		copy(grown, dst[:nDst])
		dst = grown
	}
}
