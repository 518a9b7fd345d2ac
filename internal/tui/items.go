package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/format"
	"github.com/mayerbet/QAtool/internal/history"
	"github.com/mayerbet/QAtool/internal/report"
)

// topicItem implements list.Item for one checklist row.
type topicItem struct {
	topic  catalog.Topic
	answer checklist.Answer
}

func (i topicItem) Title() string {
	return fmt.Sprintf("%s %s", badge(i.answer.Marking), i.topic.Label)
}

func (i topicItem) Description() string {
	switch {
	case i.answer.Note != "":
		return "Obs: " + format.Excerpt(i.answer.Note, 60)
	case i.topic.Guide != "":
		return "g · guide available"
	default:
		return " "
	}
}

func (i topicItem) FilterValue() string { return i.topic.Label }

func badge(m checklist.Marking) string {
	switch m {
	case checklist.MarkingError:
		return "[❌]"
	case checklist.MarkingNotApplicable:
		return "[N/A]"
	default:
		return "[  ]"
	}
}

// commentItem implements list.Item for the comment catalogue.
type commentItem struct {
	comments.Effective
}

func (i commentItem) Title() string {
	if i.Personalized {
		return i.Label + " ★"
	}
	return i.Label
}

func (i commentItem) Description() string { return format.Excerpt(i.Text, 70) }
func (i commentItem) FilterValue() string { return i.Label }

// historyItem implements list.Item for a saved report.
type historyItem struct {
	report.Record
}

func (i historyItem) Title() string {
	who := i.EvaluatorName
	if who == "" {
		who = "-"
	}
	return fmt.Sprintf("%s · %s · %s", i.CreatedAt.Local().Format("2006-01-02 15:04"), who, i.ContactID)
}

func (i historyItem) Description() string { return format.Excerpt(i.Text, 70) }
func (i historyItem) FilterValue() string { return i.ContactID }

func topicItems(cat *catalog.Catalog, answers map[catalog.TopicID]checklist.Answer) []list.Item {
	topics := cat.Topics()
	items := make([]list.Item, len(topics))
	for idx, t := range topics {
		items[idx] = topicItem{topic: t, answer: answers[t.ID]}
	}
	return items
}

func commentItems(effective []comments.Effective) []list.Item {
	items := make([]list.Item, len(effective))
	for idx, e := range effective {
		items[idx] = commentItem{e}
	}
	return items
}

func historyItems(records []report.Record) []list.Item {
	items := make([]list.Item, len(records))
	for idx, r := range records {
		items[idx] = historyItem{r}
	}
	return items
}

// parseFilter reads "evaluator:ana contact:C-1 date:2024-05" style input.
// Bare words match the contact id.
func parseFilter(input string) history.Filter {
	var f history.Filter
	var bare []string
	for _, token := range strings.Fields(input) {
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			bare = append(bare, token)
			continue
		}
		switch strings.ToLower(key) {
		case "evaluator", "e":
			f.Evaluator = value
		case "contact", "c":
			f.Contact = value
		case "date", "d":
			f.Date = value
		default:
			bare = append(bare, token)
		}
	}
	if f.Contact == "" && len(bare) > 0 {
		f.Contact = strings.Join(bare, " ")
	}
	return f
}
