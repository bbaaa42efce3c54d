package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var suffixes = []string{"", "K", "M", "B", "T", "Qa", "Qi"}

// FormatNumber renders v compactly: whole numbers below 1000, then one
// suffix per power of 1000 with two decimals.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if v < 1000 {
		if v == math.Trunc(v) {
			return sign + strconv.FormatFloat(v, 'f', 0, 64)
		}
		return sign + strconv.FormatFloat(v, 'f', 1, 64)
	}
	i := 0
	for v >= 1000 && i < len(suffixes)-1 {
		v /= 1000
		i++
	}
	return sign + strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.2f", v), "0"), ".0") + suffixes[i]
}

// FormatRate renders a per-second rate, keeping two decimals for small values.
func FormatRate(v float64) string {
	if v > 0 && v < 10 {
		return strconv.FormatFloat(v, 'f', 2, 64) + "/s"
	}
	return FormatNumber(v) + "/s"
}
