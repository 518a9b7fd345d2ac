// Package report turns a checklist into the text an evaluator pastes into
// the feedback channel, keeps it editable, and saves it on request.
package report

import (
	"context"
	"strings"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/identity"
)

const (
	blockSeparator = "\n\n"
	noteMarker     = ">"
)

// CommentSource resolves the comment text for a topic. *comments.Resolver
// satisfies it.
type CommentSource interface {
	Resolve(ctx context.Context, topic catalog.TopicID, user identity.UserID) string
}

// Report is a synthesized report.
type Report struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
}

// Empty reports whether nothing was marked.
func (r Report) Empty() bool { return len(r.Lines) == 0 }

// Synthesize renders one block per marked topic, in catalog order. Topics
// absent from the catalog are ignored, as are unmarked answers even when
// they carry a note. It never fails: missing comments come back from the
// source as placeholder text.
func Synthesize(ctx context.Context, cat *catalog.Catalog, answers map[catalog.TopicID]checklist.Answer, src CommentSource, user identity.UserID) Report {
	lines := []string{}
	for _, topic := range cat.Topics() {
		answer, ok := answers[topic.ID]
		if !ok || !answer.Marked() {
			continue
		}
		comment := src.Resolve(ctx, topic.ID, user)
		lines = append(lines, Block(answer.Marking, topic.Label, Merge(comment, answer.Note)))
	}
	return Report{Lines: lines, Text: strings.Join(lines, blockSeparator)}
}

// Block formats a single report entry.
func Block(m checklist.Marking, label, body string) string {
	return m.Prefix() + " " + label + "\n" + body
}

// Merge folds an evaluator note into a comment. The first ">" in the
// comment is replaced by the note; without one the note goes on its own
// line. The note is inserted verbatim.
func Merge(comment, note string) string {
	if note == "" {
		return comment
	}
	obs := "(Obs: " + note + ")"
	if strings.Contains(comment, noteMarker) {
		return strings.Replace(comment, noteMarker, obs, 1)
	}
	return comment + "\n" + obs
}
