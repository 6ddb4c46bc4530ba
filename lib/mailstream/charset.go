package mailstream

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"

	"nkmail/lib/utils/asciiutils"
)

// IsPlainCharset reports whether text in charset can be matched as is.
func IsPlainCharset(cs string) bool {
	return cs == "" ||
		asciiutils.EqualFoldString(cs, "US-ASCII") ||
		asciiutils.EqualFoldString(cs, "UTF-8")
}

// LookupCharset finds decoder for MIME charset name.
func LookupCharset(cs string) (encoding.Encoding, error) {
	enc, err := ianaindex.MIME.Encoding(cs)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", cs, err)
	}
	if enc == nil {
		// known name but no implementation
		return nil, fmt.Errorf("unsupported charset %q", cs)
	}
	return enc, nil
}

// DecodeCharset converts text in charset into UTF-8.
func DecodeCharset(cs string, b []byte) (string, error) {
	if IsPlainCharset(cs) {
		return string(b), nil
	}
	enc, err := LookupCharset(cs)
	if err != nil {
		return "", err
	}
	r, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding %q text: %w", cs, err)
	}
	return string(r), nil
}

var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(cs string, input io.Reader) (io.Reader, error) {
		enc, err := LookupCharset(cs)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// DecodeHeaderText decodes RFC 2047 encoded words. Undecodable text stays as is.
func DecodeHeaderText(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	d, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return d
}

var folder = cases.Fold()

// Fold gives case folded NFC form suitable for case-insensitive comparisons.
func Fold(s string) string {
	return folder.String(norm.NFC.String(s))
}

// ContainsFold is case-insensitive substring search. Empty needle matches.
func ContainsFold(hay, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(Fold(hay), Fold(needle))
}
