package utils

import (
	"regexp"
	"strconv"
)

var numberToken = regexp.MustCompile(`\d+(?:\.\d+)?`)

// MaxEstimateHours returns the largest number found in a free-text
// estimate such as "4-6 hours", or 0 when there is none.
func MaxEstimateHours(estimate string) float64 {
	var max float64
	for _, tok := range numberToken.FindAllString(estimate, -1) {
		v, err := strconv.ParseFloat(tok, 64)
		if err == nil && v > max {
			max = v
		}
	}
	return max
}
