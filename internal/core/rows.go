package core

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// rowReader yields one record per input line.
//
// Records never span lines. A line holding a quote is parsed as CSV so
// quoted commas survive; if that parse fails the line falls back to a plain
// comma split, so a stray quote only affects its own line.
type rowReader struct {
	br   *bufio.Reader
	line int
	eof  bool
}

func newRowReader(r io.Reader) *rowReader {
	return &rowReader{br: bufio.NewReader(r)}
}

// Read returns the fields of the next non-blank line. It returns io.EOF
// once the input is exhausted.
func (r *rowReader) Read() ([]string, error) {
	for {
		if r.eof {
			return nil, io.EOF
		}
		text, err := r.br.ReadString('\n')
		if errors.Is(err, io.EOF) {
			r.eof = true
		} else if err != nil {
			return nil, err
		}
		if text == "" && r.eof {
			return nil, io.EOF
		}
		r.line++

		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
		if text == "" {
			continue
		}
		return splitFields(text), nil
	}
}

// Line is the 1-based number of the line last returned by Read.
func (r *rowReader) Line() int {
	return r.line
}

func splitFields(line string) []string {
	// An odd quote count can only be an unclosed field, which csv would
	// stretch to the end of the line.
	if n := strings.Count(line, `"`); n == 0 || n%2 == 1 {
		return strings.Split(line, ",")
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		return strings.Split(line, ",")
	}
	return fields
}
