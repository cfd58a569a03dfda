package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dosewise/dosewise/internal/domain"
)

const (
	historyLookback = 72 * time.Hour
	recentLookback  = 24 * time.Hour
	minEntryCount   = 3
)

// HistoryWindow is the bounded slice of patient history a recommendation is
// built from.
type HistoryWindow struct {
	// Recent holds entries from the last 24 hours, newest first.
	Recent []domain.Entry
	// Older holds entries between 24 and 72 hours old, newest first.
	Older []domain.Entry
	// TotalEntries is the all-time entry count, not just the window.
	TotalEntries int
	// Sufficient reports whether there is enough history to reason about
	// trends. When false, Message names the precise reason.
	Sufficient bool
	Message    string
}

// HistoryService selects and gates the history window for the pipeline.
type HistoryService struct {
	entries domain.EntryStore
}

// NewHistoryService creates a new history service
func NewHistoryService(entries domain.EntryStore) *HistoryService {
	return &HistoryService{entries: entries}
}

// SelectWindow loads the patient's entries, splits them into the 24h and
// 24-72h sub-windows and runs the sufficiency check. A model given only
// same-day or sparse data cannot reason about trends, so this gate must
// pass before any model call regardless of what a client enforces.
func (s *HistoryService) SelectWindow(ctx context.Context, patientID uint, now time.Time) (*HistoryWindow, error) {
	all, err := s.entries.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	window := &HistoryWindow{TotalEntries: len(all)}

	windowStart := now.Add(-historyLookback)
	recentStart := now.Add(-recentLookback)
	hasOlderThanDay := false
	for _, e := range all {
		if e.OccurredAt.Before(recentStart) {
			hasOlderThanDay = true
		}
		if e.OccurredAt.Before(windowStart) {
			continue
		}
		if e.OccurredAt.Before(recentStart) {
			window.Older = append(window.Older, e)
		} else {
			window.Recent = append(window.Recent, e)
		}
	}

	// First failing condition wins.
	switch {
	case len(all) == 0:
		window.Message = "No history recorded for this patient yet. Add glucose, meal and insulin entries before requesting a recommendation."
	case len(all) < minEntryCount:
		window.Message = fmt.Sprintf("Only %d entries recorded for this patient. At least %d entries are needed before requesting a recommendation.", len(all), minEntryCount)
	case !hasOlderThanDay:
		window.Message = "All entries are from the last 24 hours. Add entries from at least one day ago so trends can be assessed."
	default:
		window.Sufficient = true
	}

	return window, nil
}

// InsulinEntries returns the window's insulin entries, newest first.
func (w *HistoryWindow) InsulinEntries() []domain.Entry {
	var insulin []domain.Entry
	for _, e := range w.Recent {
		if e.Type == domain.EntryInsulin {
			insulin = append(insulin, e)
		}
	}
	for _, e := range w.Older {
		if e.Type == domain.EntryInsulin {
			insulin = append(insulin, e)
		}
	}
	return insulin
}
