package utils

import (
	"bufio"
	"bytes"
	"strings"
)

// SplitLines splits b into lines, dropping line terminators (both \n and
// \r\n) and a trailing empty line.
func SplitLines(b []byte) []string {
	lines := make([]string, 0)
	s := bufio.NewScanner(bytes.NewReader(b))
	s.Buffer(make([]byte, 0, 64*1024), len(b)+1)
	for s.Scan() {
		lines = append(lines, strings.TrimRight(s.Text(), "\r"))
	}

	return lines
}

// TrimFields trims leading and trailing white space from each field in place.
func TrimFields(fields []string) []string {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	return fields
}
