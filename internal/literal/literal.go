// Package literal turns plain text into the body of a C string-array
// initializer, one quoted string per input line.
package literal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

const (
	indent    = "  "
	separator = ",\n"
)

// Only backslash and double quote are escaped. Control characters and
// non-ASCII bytes pass through untouched.
var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Quote renders one line as an indented, escaped string literal.
func Quote(line string) string {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	return indent + `"` + escaper.Replace(line) + `"`
}

// Format reads r line by line and writes the quoted lines to w joined by
// ",\n". No trailing newline is written, and empty input writes nothing.
func Format(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	first := true
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading input: %w", err)
		}
		// A final line without a newline still counts; EOF right after a
		// newline does not start a new one.
		if line != "" {
			if !first {
				if _, werr := bw.WriteString(separator); werr != nil {
					return fmt.Errorf("writing output: %w", werr)
				}
			}
			first = false
			if _, werr := bw.WriteString(Quote(line)); werr != nil {
				return fmt.Errorf("writing output: %w", werr)
			}
		}
		if err != nil {
			break
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
