package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel streams every sheet of a workbook (reading lists, bibliography
// exports) as "<sheet>" followed by one line of non-empty cells per row.
// A sheet that cannot be read is skipped.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.Rows(sheet)
		if err != nil {
			continue
		}
		buf.WriteString(sheet)
		buf.WriteByte('\n')
		for rows.Next() {
			cols, err := rows.Columns()
			if err != nil {
				break
			}
			cells := cols[:0]
			for _, c := range cols {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				buf.WriteString(strings.Join(cells, "\t"))
				buf.WriteByte('\n')
			}
		}
		rows.Close()
	}
	return strings.TrimSpace(buf.String()), nil
}
