package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/utils"
)

// NoPatternData is returned when the patient has no insulin entries to
// derive patterns from. Callers inline the result into the prompt, so this
// must never be empty.
const NoPatternData = "No medication pattern data available for this patient."

const recentDoseSample = 5

type dayPeriod struct {
	name      string
	hourRange string
}

var dayPeriods = []dayPeriod{
	{"Morning", "06:00-11:59"},
	{"Afternoon", "12:00-17:59"},
	{"Evening/Night", "18:00-05:59"},
}

// periodIndex buckets a local hour into morning [6,12), afternoon [12,18)
// or evening/night [18,24)+[0,6).
func periodIndex(hour int) int {
	switch {
	case hour >= 6 && hour < 12:
		return 0
	case hour >= 12 && hour < 18:
		return 1
	default:
		return 2
	}
}

// AnalyzeMedicationPatterns derives a human-readable summary of which
// insulin brand the patient uses at which time of day, plus recent dose
// statistics. Entries must be insulin entries sorted newest first; hours
// are bucketed in the caregiver's timezone, not the server's.
func AnalyzeMedicationPatterns(entries []domain.Entry, loc *time.Location) string {
	if len(entries) == 0 {
		return NoPatternData
	}

	type bucket struct {
		counts map[string]int
		order  []string // brands in first-encountered order
	}
	buckets := [3]bucket{}
	for i := range buckets {
		buckets[i].counts = make(map[string]int)
	}

	for _, e := range entries {
		brand := strings.TrimSpace(e.MedicationBrand)
		if brand == "" {
			continue
		}
		idx := periodIndex(utils.LocalHour(e.OccurredAt, loc))
		b := &buckets[idx]
		if _, seen := b.counts[brand]; !seen {
			b.order = append(b.order, brand)
		}
		b.counts[brand]++
	}

	var lines []string
	for i, period := range dayPeriods {
		b := buckets[i]
		if len(b.order) == 0 {
			continue
		}
		// Ties go to the first-encountered brand. Input is sorted newest
		// first, so on a tie the most recently used brand wins; accepted
		// behavior, not a clinical rule.
		top := b.order[0]
		for _, brand := range b.order {
			if b.counts[brand] > b.counts[top] {
				top = brand
			}
		}
		lines = append(lines, fmt.Sprintf("%s (%s): Primarily uses %s (%d entries)",
			period.name, period.hourRange, top, b.counts[top]))
	}

	if line := recentDoseLine(entries); line != "" {
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return NoPatternData
	}
	return strings.Join(lines, "\n")
}

// recentDoseLine summarizes the numeric doses of the most recent insulin
// entries, or returns "" when none of them parse.
func recentDoseLine(entries []domain.Entry) string {
	var doses []float64
	for i := 0; i < len(entries) && i < recentDoseSample; i++ {
		dose, err := strconv.ParseFloat(strings.TrimSpace(entries[i].Value), 64)
		if err != nil {
			continue
		}
		doses = append(doses, dose)
	}
	if len(doses) == 0 {
		return ""
	}

	min, max, sum := doses[0], doses[0], 0.0
	for _, d := range doses {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		sum += d
	}
	avg := sum / float64(len(doses))

	return fmt.Sprintf("Recent dose range: %s-%s IU (average: %.1f IU)",
		formatDose(min), formatDose(max), avg)
}

func formatDose(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
