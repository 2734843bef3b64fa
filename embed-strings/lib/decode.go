package lib

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// ErrNotText is returned for content that cannot be embedded as text
var ErrNotText = errors.New("not a text file")

const byteOrderMark = "\uFEFF"

// Decode converts raw file content to text the way a text-mode read does.
// Content in a charset other than UTF-8 is converted using the WHATWG label
// given as encoding (for example "latin1" or "utf-16le"). A leading byte
// order mark is dropped and CRLF or CR line endings become LF.
func Decode(data []byte, encoding string) (string, error) {
	var text string

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: invalid UTF-8", ErrNotText)
		}
		text = string(data)
	default:
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return "", fmt.Errorf("unknown encoding %q: %w", encoding, err)
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("%w: cannot decode as %s: %v", ErrNotText, encoding, err)
		}
		text = string(decoded)
	}

	if strings.ContainsRune(text, 0) {
		return "", fmt.Errorf("%w: contains NUL bytes", ErrNotText)
	}

	text = strings.TrimPrefix(text, byteOrderMark)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}

// ValidEncoding reports whether Decode accepts the encoding label
func ValidEncoding(encoding string) error {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return nil
	}
	if _, err := htmlindex.Get(encoding); err != nil {
		return fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}
	return nil
}
