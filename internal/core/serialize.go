package core

// serialize.go writes a ResultSet back to delimited text.
//
// encoding/csv is not used here: it also quotes fields with leading spaces
// and line breaks and emits "\r\n" when configured for it. Output here is
// quoted only when a field contains the delimiter or a double quote.

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// WriteCSV writes rs to w. The header row is taken from the first record's
// field names. Each line, header included, ends with '\n'.
// Returns ErrEmptyResult if rs has no records.
func WriteCSV(w io.Writer, rs ResultSet) error {
	if len(rs) == 0 {
		return ErrEmptyResult
	}

	bw := bufio.NewWriter(w)
	headers := rs[0].Names()

	if err := writeLine(bw, headers); err != nil {
		return err
	}
	for _, rec := range rs {
		if err := writeLine(bw, rec.Values()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// MarshalCSV returns the serialized form of rs.
func MarshalCSV(rs ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.WriteString(Delimiter); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(QuoteField(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// QuoteField wraps s in double quotes, doubling any embedded quotes, if and
// only if s contains the delimiter or a double quote.
func QuoteField(s string) string {
	if !strings.Contains(s, Delimiter) && !strings.Contains(s, `"`) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
