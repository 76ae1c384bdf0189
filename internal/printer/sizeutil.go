package printer

import "fmt"

var sizeUnits = []string{"KB", "MB", "GB"}

// FormatCodeSize returns a human-readable size of a submitted source.
// Examples: "0 B", "512 B", "2.0 KB", "9.8 MB".
func FormatCodeSize(bytes int) string {
	if bytes < 1024 {
		if bytes < 0 {
			bytes = 0
		}
		return fmt.Sprintf("%d B", bytes)
	}

	size := float64(bytes) / 1024
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}
