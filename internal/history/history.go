// Package history filters a user's saved reports.
package history

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mayerbet/QAtool/internal/report"
)

// DateLayout is the prefix format accepted by Filter.Date.
const DateLayout = "2006-01-02"

// Filter narrows a list of saved reports. Zero fields match everything.
type Filter struct {
	// Evaluator matches a substring of the evaluator name, ignoring case.
	Evaluator string
	// Contact matches a substring of the contact id, ignoring case.
	Contact string
	// Date matches a prefix of the creation date formatted as YYYY-MM-DD,
	// so "2024-05" selects a whole month.
	Date string
}

// IsZero reports whether the filter lets everything through.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Evaluator) == "" &&
		strings.TrimSpace(f.Contact) == "" &&
		strings.TrimSpace(f.Date) == ""
}

// Apply returns the matching records, newest first. The input is not
// modified.
func Apply(records []report.Record, f Filter) []report.Record {
	fold := cases.Fold()
	evaluator := fold.String(strings.TrimSpace(f.Evaluator))
	contact := fold.String(strings.TrimSpace(f.Contact))
	date := strings.TrimSpace(f.Date)

	out := make([]report.Record, 0, len(records))
	for _, rec := range records {
		if evaluator != "" && !strings.Contains(fold.String(rec.EvaluatorName), evaluator) {
			continue
		}
		if contact != "" && !strings.Contains(fold.String(rec.ContactID), contact) {
			continue
		}
		if date != "" && !strings.HasPrefix(rec.CreatedAt.Format(DateLayout), date) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
