package tracklist

import "fmt"

// FormatTimestamp renders whole seconds as MM:SS under one hour and HH:MM:SS
// from there on. Fractions are truncated and hours keep counting past a day.
func FormatTimestamp(seconds float64) string {
	total := wholeSeconds(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func wholeSeconds(seconds float64) int {
	if seconds <= 0 || seconds != seconds {
		return 0
	}
	return int(seconds)
}
