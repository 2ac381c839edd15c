package processor

import "fmt"

// HorizonLabel renders a forward horizon in seconds as a column suffix.
// Horizons of 60 seconds and below, and any horizon that is not a whole
// number of minutes, keep the second suffix; the rest are minute-denominated.
// So 30 -> "30s", 60 -> "60s", 90 -> "90s", 180 -> "3m".
func HorizonLabel(h int) string {
	if h <= 60 || h%60 != 0 {
		return fmt.Sprintf("%ds", h)
	}
	return fmt.Sprintf("%dm", h/60)
}

// ForwardMidColumn names the matched future mid column for a horizon.
func ForwardMidColumn(h int) string {
	return "forward_mid_" + HorizonLabel(h)
}

// ReturnColumn names the forward return column for a horizon.
func ReturnColumn(h int) string {
	return "y_" + HorizonLabel(h)
}

// ValidateHorizons rejects non-positive and duplicate horizons, and label
// collisions between distinct horizons.
func ValidateHorizons(horizons []int) error {
	seen := make(map[string]int, len(horizons))
	for _, h := range horizons {
		if h <= 0 {
			return fmt.Errorf("horizon must be positive, got %d", h)
		}
		label := HorizonLabel(h)
		if prev, ok := seen[label]; ok {
			return fmt.Errorf("horizons %d and %d share label %q", prev, h, label)
		}
		seen[label] = h
	}
	return nil
}
