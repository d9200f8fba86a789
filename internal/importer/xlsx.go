package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of a workbook into a Document using the same
// header semantics as the CSV path: first row is the header, remaining rows
// become raw string maps for the normalizer.
func ParseXLSX(r io.Reader) (*Document, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close() //nolint:errcheck

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	doc := &Document{}
	for _, cells := range rows {
		if len(cells) == 0 {
			continue
		}
		if doc.Headers == nil {
			headers := make([]string, 0, len(cells))
			empty := true
			for _, cell := range cells {
				header := strings.ToLower(strings.TrimSpace(cell))
				if header != "" {
					empty = false
				}
				headers = append(headers, header)
			}
			if empty {
				continue
			}
			doc.Headers = headers
			continue
		}
		row := make(map[string]string, len(doc.Headers))
		for i, header := range doc.Headers {
			if header == "" {
				continue
			}
			if i < len(cells) {
				row[header] = cells[i]
			} else {
				row[header] = ""
			}
		}
		doc.Rows = append(doc.Rows, row)
	}

	if doc.Headers == nil {
		return nil, fmt.Errorf("sheet %s has no header row", sheets[0])
	}
	return doc, nil
}
