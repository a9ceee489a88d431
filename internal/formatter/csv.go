// Package formatter renders pipeline output: CSV artifacts and run summaries.
package formatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"ytrends/internal/models"
)

// LineTerminator ends every CSV record, header included.
const LineTerminator = "\r\n"

// ErrColumnMismatch is returned when a row does not have one value per header column.
var ErrColumnMismatch = errors.New("row does not match header column count")

// WriteCSV writes the header followed by one line per row. A field is quoted
// only when it contains the delimiter, a quote or a line break; leading and
// trailing spaces are written as-is.
func WriteCSV(rows []models.OutputRow, header []string) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}

	writeRecord(buf, header)

	for i := range rows {
		record := rows[i].Record()
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d",
				ErrColumnMismatch, i+1, len(record), len(header))
		}

		writeRecord(buf, record)
	}

	return buf, nil
}

func writeRecord(buf *bytes.Buffer, record []string) {
	for i, field := range record {
		if i > 0 {
			buf.WriteByte(',')
		}

		if !strings.ContainsAny(field, ",\"\r\n") {
			buf.WriteString(field)

			continue
		}

		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}

	buf.WriteString(LineTerminator)
}
