package importer

import (
	"fmt"
	"strings"
)

// SplitCSVLine splits one comma-delimited line honouring double-quoted fields.
// Embedded commas stay inside a quoted field and `""` unescapes to a literal
// quote, matching how the field spreadsheets are exported.
func SplitCSVLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	fields = append(fields, current.String())
	return fields
}

// SplitTSVLine splits one tab-delimited line. TSV exports never quote fields.
func SplitTSVLine(line string) []string {
	return strings.Split(line, "\t")
}

// Document is a parsed tabular upload: a header row plus raw string rows keyed
// by header name.
type Document struct {
	Headers []string
	Rows    []map[string]string
}

// ParseDocument reads raw CSV or TSV text. The first non-empty line is the
// header row; rows shorter than the header are padded with empty strings and
// longer rows keep only the canonical columns.
func ParseDocument(raw string, tabDelimited bool) (*Document, error) {
	split := SplitCSVLine
	if tabDelimited {
		split = SplitTSVLine
	}

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	doc := &Document{}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := split(line)
		if doc.Headers == nil {
			headers := make([]string, 0, len(fields))
			for _, h := range fields {
				headers = append(headers, strings.ToLower(strings.TrimSpace(h)))
			}
			doc.Headers = headers
			continue
		}
		row := make(map[string]string, len(doc.Headers))
		for i, header := range doc.Headers {
			if i < len(fields) {
				row[header] = fields[i]
			} else {
				row[header] = ""
			}
		}
		doc.Rows = append(doc.Rows, row)
	}

	if doc.Headers == nil {
		return nil, fmt.Errorf("document has no header row")
	}
	return doc, nil
}
