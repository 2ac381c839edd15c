package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Format is an input file format, detected from the file extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatParquet
	FormatCSV
)

// DetectFormat maps a file path to its input format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return FormatParquet
	case ".csv":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// ExpandPattern substitutes the date into a file name pattern like
// "{date}.parquet".
func ExpandPattern(pattern, date string) string {
	return strings.ReplaceAll(pattern, "{date}", date)
}

// ListDates scans a directory for files matching the pattern and returns the
// dates they cover, sorted ascending. Only eight-digit YYYYMMDD dates count;
// anything else in the slot is some other file.
func ListDates(dir, pattern string) ([]string, error) {
	parts := strings.SplitN(pattern, "{date}", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("pattern %q must contain {date}", pattern)
	}
	prefix, suffix := parts[0], parts[1]

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) < len(prefix)+len(suffix) ||
			!strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		date := name[len(prefix) : len(name)-len(suffix)]
		if isDate(date) {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// IntersectDates returns the dates present in every input list, sorted
// ascending.
func IntersectDates(lists ...[]string) []string {
	if len(lists) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, list := range lists {
		seen := make(map[string]struct{}, len(list))
		for _, d := range list {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			counts[d]++
		}
	}
	var out []string
	for d, n := range counts {
		if n == len(lists) {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func isDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
