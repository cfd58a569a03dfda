package services

import (
	"fmt"
	"math"
)

// DefaultDoseChangeThreshold is the fractional difference from the prior
// dose above which a recommendation carries an advisory warning.
const DefaultDoseChangeThreshold = 0.20

// CheckDoseChange compares a new recommendation's dose against the
// patient's most recent comparable prior dose. A change above the threshold
// yields an advisory warning string; it never blocks the recommendation
// from being returned or saved. A zero or negative prior dose yields no
// warning since there is nothing meaningful to compare against.
func CheckDoseChange(newDose, priorDose, threshold float64) (string, bool) {
	if priorDose <= 0 {
		return "", false
	}
	ratio := math.Abs(newDose-priorDose) / priorDose
	if ratio <= threshold {
		return "", false
	}
	return fmt.Sprintf(
		"Recommended dose %.1f IU differs from the previous dose %.1f IU by %.0f%%, above the %.0f%% review threshold. Double-check before administering.",
		newDose, priorDose, ratio*100, threshold*100), true
}
