package report

import (
	"fmt"
	"math"
)

// ZeroPercent is rendered whenever a ratio has no denominator.
const ZeroPercent = "0%"

// floorPercent renders floor(100*num/den) as "N%". Integer arithmetic keeps
// values such as 29/100 from truncating to 28.
func floorPercent(num, den int) string {
	if den <= 0 {
		return ZeroPercent
	}
	return fmt.Sprintf("%d%%", num*100/den)
}

// decimalPercent renders 100*num/den with two decimals.
func decimalPercent(num, den int) string {
	if den <= 0 {
		return ZeroPercent
	}
	return fmt.Sprintf("%.2f%%", round2(float64(num)*100/float64(den)))
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
