// Package parser reads vocabulary import text.
//
// Each non-blank line is one card. Columns are separated by tabs when the line
// contains a tab and by commas otherwise, in this order:
//
//	front, back, example, pos, topic, syn, collocation
//
// Only front and back are required.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/lexicard/internal/domain"
)

const maxLineSize = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// LineError reports a line that could not be turned into a record. Line is
// the 1-based position among the non-blank lines of the input. Lines longer
// than the size limit are reported with TooLong set and Raw cut short.
type LineError struct {
	Line    int    `json:"line"`
	Raw     string `json:"raw"`
	TooLong bool   `json:"tooLong,omitempty"`
}

func (e LineError) Error() string {
	if e.TooLong {
		return fmt.Sprintf("line %d: longer than %d bytes: %q...", e.Line, maxLineSize, e.Raw)
	}
	return fmt.Sprintf("line %d: front and back are required: %q", e.Line, e.Raw)
}

// Result holds the parsed records and the lines that were skipped.
type Result struct {
	Records []domain.ImportRecord
	Errors  []LineError
}

// ParseFile reads a file from the given path and parses its lines.
func ParseFile(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer file.Close()

	return Parse(file)
}

// ParseString parses import text held in memory, where reading cannot fail.
func ParseString(text string) Result {
	res, _ := Parse(strings.NewReader(text))
	return res
}

// Parse reads from an io.Reader and extracts all records. Malformed or
// oversized lines are collected in Result.Errors; the returned error is only
// set when reading fails, together with what was parsed up to that point.
func Parse(r io.Reader) (Result, error) {
	br := bufio.NewReader(r)

	var res Result
	n := 0
	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return res, readErr
		}

		if line := strings.TrimSpace(raw); line != "" {
			n++
			res.add(n, line)
		}
		if readErr == io.EOF {
			return res, nil
		}
	}
}

func (res *Result) add(n int, line string) {
	if len(line) > maxLineSize {
		res.Errors = append(res.Errors, LineError{Line: n, Raw: clip(line), TooLong: true})
		return
	}
	rec := parseLine(line)
	if err := validate.Struct(rec); err != nil {
		res.Errors = append(res.Errors, LineError{Line: n, Raw: line})
		return
	}
	res.Records = append(res.Records, rec)
}

// clip keeps the first 64 runes of s.
func clip(s string) string {
	i := 0
	for j := range s {
		if i == 64 {
			return s[:j]
		}
		i++
	}
	return s
}

func parseLine(line string) domain.ImportRecord {
	sep := ","
	if strings.Contains(line, "\t") {
		sep = "\t"
	}
	parts := strings.Split(line, sep)
	col := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	return domain.ImportRecord{
		Front:       col(0),
		Back:        col(1),
		Example:     col(2),
		Pos:         col(3),
		Topic:       col(4),
		Syn:         col(5),
		Collocation: col(6),
	}
}

// Template returns sample import text covering both separators.
func Template() string {
	return strings.Join([]string{
		"apple\t苹果\tI eat an apple every day.",
		"banana\t香蕉",
		"abandon,放弃,He abandoned the plan.",
	}, "\n")
}
