package core

// align.go implements column alignment between two delimited text tables.
//
// The output follows the first table's header order. Each cell is taken from
// the second table's column whose header has the same normalized key, or is
// left empty when no such column exists or the row is too short.
//
// Input parsing is deliberately simple: lines are split on '\n' and cells on
// the delimiter with no quote handling. A delimiter inside a quoted input
// field splits the field. Output escaping is handled separately by WriteCSV.

import (
	"strings"
	"unicode"
)

// Delimiter separates cells on both the input and the output side.
const Delimiter = ","

// Field is a single aligned cell: a raw header name from the first table and
// the value taken from the second table.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one aligned output row, holding one Field per first-table header
// in the first table's header order. Duplicate header names are kept as
// separate fields.
type Record []Field

// Get returns the value of the first field named name.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in order.
func (r Record) Values() []string {
	values := make([]string, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

// ResultSet is the ordered output of Align, one Record per non-blank data row
// of the second table.
type ResultSet []Record

// HeaderIndex maps normalized header names to their column position.
type HeaderIndex map[string]int

// trim strips surrounding whitespace and byte order marks, so text that was
// not read through ReadText still matches by header name.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// NormalizeKey returns the matching identity of a header name: trimmed and
// lower-cased.
func NormalizeKey(h string) string {
	return strings.ToLower(trim(h))
}

// ParseHeader splits a header line into trimmed, non-empty column names.
// Stray delimiters do not create columns. Names are not deduplicated.
func ParseHeader(line string) []string {
	parts := strings.Split(line, Delimiter)
	headers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = trim(p)
		if p != "" {
			headers = append(headers, p)
		}
	}
	return headers
}

// BuildHeaderIndex maps each header's normalized key to its position.
// When two headers normalize to the same key, the later position wins.
func BuildHeaderIndex(headers []string) HeaderIndex {
	idx := make(HeaderIndex, len(headers))
	for i, h := range headers {
		idx[NormalizeKey(h)] = i
	}
	return idx
}

// splitLines trims the whole text and splits it into lines.
// Returns ErrEmptyInput if nothing is left after trimming.
func splitLines(text string) ([]string, error) {
	text = trim(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	return strings.Split(text, "\n"), nil
}

// Align projects the data rows of table2 onto the header of table1.
//
// For every non-blank data row of table2, one Record is produced with a field
// per table1 header. The value is the trimmed table2 cell in the column whose
// normalized header matches, or "" when the header is absent from table2 or
// the row has fewer cells than that column's position.
//
// Returns ErrEmptyInput if either text is empty after trimming. A table2 with
// a header but no data rows yields an empty ResultSet and no error.
func Align(table1, table2 string) (ResultSet, error) {
	lines1, err := splitLines(table1)
	if err != nil {
		return nil, err
	}
	lines2, err := splitLines(table2)
	if err != nil {
		return nil, err
	}

	targetHeaders := ParseHeader(lines1[0])
	sourceIndex := BuildHeaderIndex(ParseHeader(lines2[0]))

	// Resolve column positions once; -1 marks a header with no match.
	positions := make([]int, len(targetHeaders))
	for i, h := range targetHeaders {
		pos, ok := sourceIndex[NormalizeKey(h)]
		if !ok {
			pos = -1
		}
		positions[i] = pos
	}

	rs := make(ResultSet, 0, len(lines2)-1)
	for _, line := range lines2[1:] {
		line = trim(line)
		if line == "" {
			continue
		}

		cells := strings.Split(line, Delimiter)
		rec := make(Record, len(targetHeaders))
		for i, h := range targetHeaders {
			rec[i].Name = h
			if pos := positions[i]; pos >= 0 && pos < len(cells) {
				rec[i].Value = trim(cells[pos])
			}
		}
		rs = append(rs, rec)
	}

	return rs, nil
}
