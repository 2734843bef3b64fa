package lib

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultSuffix is appended to every generated header path
const DefaultSuffix = ".h"

// maxDelimiter is the longest d-char-sequence a C++ raw string may use
const maxDelimiter = 16

// Header is one generated C++ header embedding a text file
type Header struct {
	Source    string // provenance, printed verbatim
	Namespace string // already sanitized
	Name      string // already sanitized, without the _str suffix
	Contents  string
}

// Symbol returns the name of the embedded constant
func (h Header) Symbol() string {
	return h.Name + "_str"
}

// WriteTo renders the header to w
func (h Header) WriteTo(w io.Writer) (int64, error) {
	delim := RawDelimiter(h.Contents)
	n, err := fmt.Fprintf(w,
		"// Generated from %s\n"+
			"#pragma once\n\n"+
			"namespace %s\n"+
			"{\n"+
			"\tinline constexpr char %s[] = R\"%s(%s)%s\";\n"+
			"}\n",
		h.Source, h.Namespace, h.Symbol(), delim, h.Contents, delim)
	return int64(n), err
}

// String renders the header
func (h Header) String() string {
	var sb strings.Builder
	h.WriteTo(&sb)
	return sb.String()
}

// RawDelimiter picks a raw string delimiter whose closing sequence does not
// occur in contents. Most files need none.
func RawDelimiter(contents string) string {
	if !strings.Contains(contents, `)"`) {
		return ""
	}
	delim := "embed"
	for i := 1; len(delim) <= maxDelimiter; i++ {
		if !strings.Contains(contents, ")"+delim+`"`) {
			return delim
		}
		delim = "embed" + strconv.Itoa(i)
	}
	// unreachable for any file that fits in memory
	return delim
}
