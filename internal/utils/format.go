package utils

import (
	"fmt"
	"strconv"
	"time"
)

const (
	humanSizeUnits = "KMGTPE"

	recentModifiedLayout = "Jan _2 15:04"
	oldModifiedLayout    = "Jan _2  2006"

	// oldModifiedThreshold matches the ls convention of switching from
	// clock to year after roughly half a year.
	oldModifiedThreshold = 182 * 24 * time.Hour
)

// FormatSize renders a byte count for the size column: exact digits by
// default, scaled binary units when humanReadable is set.
func FormatSize(sizeBytes int64, humanReadable bool) string {
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	if !humanReadable || sizeBytes < 1024 {
		return strconv.FormatInt(sizeBytes, 10)
	}
	value := float64(sizeBytes)
	unitIndex := -1
	for value >= 1024 && unitIndex < len(humanSizeUnits)-1 {
		value /= 1024
		unitIndex++
	}
	if value < 10 {
		return fmt.Sprintf("%.1f%c", value, humanSizeUnits[unitIndex])
	}
	return fmt.Sprintf("%.0f%c", value, humanSizeUnits[unitIndex])
}

// FormatModified renders a modification time for the date column using the
// ls convention: recent timestamps show the clock, older ones the year.
func FormatModified(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	now := time.Now()
	if now.Sub(value) > oldModifiedThreshold || value.After(now) {
		return value.Format(oldModifiedLayout)
	}
	return value.Format(recentModifiedLayout)
}
