// Package format renders raw numbers into the strings shown on dashboard tiles.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vesaa/talondash/internal/counter"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// Bytes renders n in the largest base-1024 unit up to TB, with at most two
// decimals and trailing zeros trimmed: 1536 -> "1.5 KB". Rounding happens
// after the unit is chosen, so 1048575 renders as "1024 KB".
func Bytes(n uint64) string {
	if n == 0 {
		return "0 Bytes"
	}

	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return humanize.Ftoa(math.Round(value*100)/100) + " " + byteUnits[unit]
}

// Uptime renders seconds as "Nd Nh Nm Ns", omitting zero units. Zero renders
// as "0s".
func Uptime(seconds uint64) string {
	days := seconds / 86400
	hours := (seconds / 3600) % 24
	minutes := (seconds / 60) % 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// KBps renders a throughput with two decimals, or "N/A" when unavailable.
func KBps(t counter.Throughput) string {
	if !t.Available {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", t.KBps)
}

// Percent renders a 0-100 value with two decimals.
func Percent(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Celsius converts a millidegree reading to degrees with one decimal.
func Celsius(milli int64) string {
	return fmt.Sprintf("%.1f", float64(milli)/1000)
}
