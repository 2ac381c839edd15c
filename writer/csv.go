package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"vizflow/table"
)

// WriteTableCSV writes the table to a local CSV file with a header row.
// Null cells become empty fields.
func WriteTableCSV(t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Names()); err != nil {
		return err
	}

	record := make([]string, t.NumCols())
	for row := 0; row < t.NumRows(); row++ {
		for i, c := range t.Columns() {
			if !c.IsValid(row) {
				record[i] = ""
				continue
			}
			switch c.Kind {
			case table.Float64:
				record[i] = strconv.FormatFloat(c.Floats[row], 'g', -1, 64)
			case table.Int64:
				record[i] = strconv.FormatInt(c.Ints[row], 10)
			case table.String:
				record[i] = c.Strings[row]
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
