package encoding

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Lookup resolves an encoding label to a codec and its canonical name.
//
// The IANA index is consulted first so that labels like "latin1" keep their
// registered meaning; the WHATWG table from x/net covers browser aliases
// ("gbk", "x-sjis"). Labels emitted by detectors with stray dashes
// ("GB-18030") are retried with the dashes removed.
func Lookup(label string) (encoding.Encoding, string, error) {
	name := strings.TrimSpace(label)
	if name == "" {
		return nil, "", fmt.Errorf("%w: empty label", ErrUnsupportedEncoding)
	}

	candidates := []string{name}
	if stripped := strings.ReplaceAll(name, "-", ""); stripped != name {
		candidates = append(candidates, stripped)
	}
	if dashed := strings.ReplaceAll(name, "_", "-"); dashed != name {
		candidates = append(candidates, dashed)
	}

	for _, candidate := range candidates {
		// A registered but unimplemented charset yields a nil encoding and nil error.
		if enc, err := ianaindex.IANA.Encoding(candidate); err == nil && enc != nil {
			return enc, preferredName(enc, candidate), nil
		}
		if enc, canonical := charset.Lookup(candidate); enc != nil {
			return enc, canonical, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, label)
}

// preferredName returns the MIME preferred name of enc ("ISO-8859-1" rather
// than "ISO_8859-1:1987"), then its IANA name, then fallback.
func preferredName(enc encoding.Encoding, fallback string) string {
	for _, index := range []*ianaindex.Index{ianaindex.MIME, ianaindex.IANA} {
		if name, err := index.Name(enc); err == nil && name != "" {
			return name
		}
	}
	return fallback
}

// Normalize folds a label to a comparison key: upper case with dashes,
// underscores and spaces removed. "utf-8", "UTF8" and "utf_8" share a key.
func Normalize(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range strings.ToUpper(strings.TrimSpace(label)) {
		switch r {
		case '-', '_', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SameEncoding reports whether two labels name the same encoding, first by
// normalized spelling and then by canonical name after lookup.
func SameEncoding(a, b string) bool {
	if Normalize(a) == Normalize(b) {
		return true
	}
	_, canonA, errA := Lookup(a)
	_, canonB, errB := Lookup(b)
	if errA != nil || errB != nil {
		return false
	}
	return Normalize(canonA) == Normalize(canonB)
}
