package ui

import (
	"fmt"
	"strconv"

	"docqa/internal/api"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders bytes in base-1024 units rounded to two decimals,
// dropping trailing zeros: 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = float64(int64(v*100+0.5)) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// DocumentSize prefers the server's display string.
func DocumentSize(d api.Document) string {
	if d.FileSizeDisplay != "" {
		return d.FileSizeDisplay
	}
	return FormatFileSize(d.FileSize)
}

func FormatDate(ts api.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("Jan 2, 2006 3:04:05 PM")
}

// Percent renders a [0,1] score as a percentage with one decimal.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func Seconds(v float64) string {
	return fmt.Sprintf("%.2fs", v)
}
