package session

import (
	"errors"

	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/report"
)

// Notice messages shown after successful actions.
const (
	NoticeSaved        = "✅ Saved."
	NoticeCommentSaved = "✅ Comment saved."
	NoticeCleared      = "Checklist cleared."
)

// Notice turns an error into a message for the evaluator. It returns the
// empty string for nil.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, report.ErrUnauthenticated), errors.Is(err, comments.ErrUnauthenticated):
		return "❌ No user set. Run `qatool whoami --set <user>` or export QATOOL_USER."
	case errors.Is(err, checklist.ErrInvalidMarking):
		return "❌ Invalid marking. Use error or n/a."
	case errors.Is(err, ErrUnknownTopic), errors.Is(err, comments.ErrUnknownTopic):
		return "❌ Unknown topic."
	case errors.Is(err, report.ErrNotGenerated):
		return "Generate the report first."
	case errors.Is(err, report.ErrEmpty):
		return "The report is empty; nothing to save."
	case errors.Is(err, ErrPersistence):
		return "❌ Could not save: " + err.Error()
	default:
		return "❌ " + err.Error()
	}
}
