package reader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"vizflow/config"
	"vizflow/table"
)

// ReadCSV loads a CSV file into a table. The column mapping renames and
// drops header names before anything else, so casts and downstream code see
// semantic names only. Types are inferred per column: all-integer cells make
// an int64 column, otherwise all-numeric cells make a float64 column,
// otherwise the column stays string. Empty cells are null. Casts override
// the inferred type per column.
func ReadCSV(path string, mapping config.Mapping, casts map[string]string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = false
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	header := records[0]
	rows := records[1:]

	type colSpec struct {
		name string
		idx  int
	}
	var specs []colSpec
	for i, raw := range header {
		name, keep := mapping.Resolve(raw)
		if !keep {
			continue
		}
		specs = append(specs, colSpec{name: name, idx: i})
	}

	cols := make([]*table.Column, 0, len(specs))
	for _, spec := range specs {
		cells := make([]string, len(rows))
		for j, row := range rows {
			if spec.idx < len(row) {
				cells[j] = row[spec.idx]
			}
		}
		col := inferColumn(spec.name, cells)
		if target, ok := casts[spec.name]; ok {
			cast, err := castColumn(col, target)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			col = cast
		}
		cols = append(cols, col)
	}

	return table.New(cols...)
}

func inferColumn(name string, cells []string) *table.Column {
	allInt := true
	allFloat := true
	for _, c := range cells {
		if c == "" {
			continue
		}
		if _, err := strconv.ParseInt(c, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			allFloat = false
			break
		}
	}

	valid := make([]bool, len(cells))
	switch {
	case allInt:
		vals := make([]int64, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			vals[i], _ = strconv.ParseInt(c, 10, 64)
			valid[i] = true
		}
		return table.NewInt64Nullable(name, vals, valid)
	case allFloat:
		vals := make([]float64, len(cells))
		for i, c := range cells {
			if c == "" {
				continue
			}
			vals[i], _ = strconv.ParseFloat(c, 64)
			valid[i] = true
		}
		return table.NewFloat64Nullable(name, vals, valid)
	default:
		return table.NewString(name, cells)
	}
}

// castColumn converts a column to the target kind. Nulls stay null;
// float-to-int truncates toward zero, which squashes the precision noise
// float-typed id columns pick up upstream.
func castColumn(c *table.Column, target string) (*table.Column, error) {
	n := c.Len()
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		valid[i] = c.IsValid(i)
	}

	switch target {
	case "int64":
		if c.Kind == table.String {
			return nil, fmt.Errorf("column %q: cannot cast string to int64", c.Name)
		}
		vals := make([]int64, n)
		for i := 0; i < n; i++ {
			if valid[i] {
				vals[i] = int64(c.Number(i))
			}
		}
		return table.NewInt64Nullable(c.Name, vals, valid), nil
	case "float64":
		if c.Kind == table.String {
			return nil, fmt.Errorf("column %q: cannot cast string to float64", c.Name)
		}
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			if valid[i] {
				vals[i] = c.Number(i)
			}
		}
		return table.NewFloat64Nullable(c.Name, vals, valid), nil
	case "string":
		vals := make([]string, n)
		for i := 0; i < n; i++ {
			if valid[i] {
				vals[i] = c.Key(i)
			}
		}
		return table.NewStringNullable(c.Name, vals, valid), nil
	default:
		return nil, fmt.Errorf("column %q: unsupported cast target %q", c.Name, target)
	}
}
