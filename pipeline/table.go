package pipeline

import (
	"encoding/csv"
	"strings"
)

// parseTable decodes delimited tabular text with a header row into
// string-keyed rows. Blank lines and rows shorter than the header are
// tolerated; missing cells become empty strings.
func parseTable(text string) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	ans := make([]map[string]string, 0, len(rows)-1)

	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		m := make(map[string]string, len(header))

		for i, col := range header {
			col = strings.TrimSpace(col)
			if col == "" {
				continue
			}

			if i < len(row) {
				m[col] = row[i]
			} else {
				m[col] = ""
			}
		}

		ans = append(ans, m)
	}

	return ans, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
