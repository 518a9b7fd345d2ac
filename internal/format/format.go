// Package format renders history and comment listings as terminal or
// Markdown tables for the CLI.
package format

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"

	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/report"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ColumnAlign specifies the horizontal alignment for a column.
type ColumnAlign int

const (
	AlignDefault ColumnAlign = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// ColumnConfig controls per-column formatting.
type ColumnConfig struct {
	Number   int         // 1-based column index
	Align    ColumnAlign // horizontal alignment
	MaxWidth int         // wrap content beyond this width (0 = unlimited)
}

// TableBuilder builds a table once and renders it in the Mode chosen at
// creation.
type TableBuilder interface {
	Header(cols ...string)
	Row(vals ...any)
	Footer(vals ...any)
	Columns(cfgs ...ColumnConfig)
	String() string
}

// NewTable returns a TableBuilder that renders in the given Mode.
func NewTable(m Mode) TableBuilder {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &prettyAdapter{writer: w, mode: m}
}

type prettyAdapter struct {
	writer table.Writer
	mode   Mode
}

func (a *prettyAdapter) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	a.writer.AppendHeader(row)
}

func (a *prettyAdapter) Row(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	a.writer.AppendRow(row)
}

func (a *prettyAdapter) Footer(vals ...any) {
	row := make(table.Row, len(vals))
	copy(row, vals)
	a.writer.AppendFooter(row)
}

func (a *prettyAdapter) Columns(cfgs ...ColumnConfig) {
	goCfgs := make([]table.ColumnConfig, len(cfgs))
	for i, c := range cfgs {
		goCfgs[i] = table.ColumnConfig{
			Number:   c.Number,
			Align:    toTextAlign(c.Align),
			WidthMax: c.MaxWidth,
		}
	}
	a.writer.SetColumnConfigs(goCfgs)
}

func (a *prettyAdapter) String() string {
	if a.mode == Markdown {
		return a.writer.RenderMarkdown()
	}
	return a.writer.Render()
}

func toTextAlign(a ColumnAlign) text.Align {
	switch a {
	case AlignLeft:
		return text.AlignLeft
	case AlignRight:
		return text.AlignRight
	case AlignCenter:
		return text.AlignCenter
	default:
		return text.AlignDefault
	}
}

// Excerpt flattens s to one line and truncates it to width display cells.
func Excerpt(s string, width int) string {
	flat := strings.Join(strings.Fields(s), " ")
	if width <= 0 || runewidth.StringWidth(flat) <= width {
		return flat
	}
	return runewidth.Truncate(flat, width, "…")
}

// History renders saved reports, one row each.
func History(records []report.Record, m Mode) string {
	tb := NewTable(m)
	tb.Header("Date", "Evaluator", "Contact", "Report")
	for _, rec := range records {
		tb.Row(rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.EvaluatorName, rec.ContactID, Excerpt(rec.Text, 60))
	}
	tb.Footer("", "", "", fmt.Sprintf("%d report(s)", len(records)))
	return tb.String()
}

// Comments renders the comment catalogue. Personalized rows are starred.
func Comments(list []comments.Effective, m Mode) string {
	tb := NewTable(m)
	tb.Header("Topic", "Label", "", "Comment")
	tb.Columns(ColumnConfig{Number: 3, Align: AlignCenter})
	for _, e := range list {
		mark := ""
		if e.Personalized {
			mark = "*"
		}
		tb.Row(string(e.TopicID), e.Label, mark, Excerpt(e.Text, 70))
	}
	return tb.String()
}
