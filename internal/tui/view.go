package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#5B8DEF")
	colorMuted  = lipgloss.Color("#AAAAAA")
	colorBorder = lipgloss.Color("#444444")
	colorTitle  = lipgloss.Color("#FF6B6B")
	colorFooter = lipgloss.Color("#888888")
)

var keyHelp = map[screen]string{
	screenChecklist:   "e error · n n/a · o note · g guide · r report · C clear · c comments · h history · q quit",
	screenNote:        "ctrl+s save note · esc cancel",
	screenReport:      "tab next field · ctrl+r regenerate · ctrl+s save · esc back",
	screenComments:    "enter edit · esc back",
	screenCommentEdit: "ctrl+s save comment · esc cancel",
	screenHistory:     "type a filter · enter apply · ↑/↓ browse · esc back",
}

func (a *App) View() string {
	mainWidth, sideWidth := a.columns()
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitle).
		MarginBottom(1).
		Render("✔ QA TOOL")
	mainBox := panelStyle().
		Width(max(20, mainWidth)).
		Render(a.renderMainArea(mainWidth - 4))
	body := mainBox
	if sideWidth > 0 {
		side := panelStyle().
			Width(max(20, sideWidth)).
			Render(a.renderSessionPanel())
		body = lipgloss.JoinHorizontal(lipgloss.Top, mainBox, side)
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(colorFooter).
		MarginTop(1).
		Render(strings.TrimSpace(a.notice + "\n" + keyHelp[a.screen]))
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
}

func (a *App) renderMainArea(width int) string {
	switch a.screen {
	case screenNote:
		return a.renderEditor("Note · "+labelFor(a.sess.Catalog(), a.editingTopic), width)
	case screenReport:
		return lipgloss.JoinVertical(lipgloss.Left,
			sectionTitle("Report"),
			a.reportArea.View(),
			"",
			a.evaluator.View(),
			a.contact.View(),
		)
	case screenComments:
		return a.commentsList.View()
	case screenCommentEdit:
		return a.renderEditor("Comment · "+labelFor(a.sess.Catalog(), a.editingTopic), width)
	case screenHistory:
		return lipgloss.JoinVertical(lipgloss.Left,
			a.filter.View(),
			"",
			a.historyList.View(),
		)
	default:
		content := a.checklist.View()
		if guide := a.renderGuide(width); guide != "" {
			content = lipgloss.JoinVertical(lipgloss.Left, content, guide)
		}
		return content
	}
}

func (a *App) renderEditor(title string, width int) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionTitle(title),
		lipgloss.NewStyle().Width(max(20, width)).Render(a.editor.View()),
	)
}

func (a *App) renderGuide(width int) string {
	if !a.showGuide {
		return ""
	}
	item, ok := a.selectedTopic()
	if !ok {
		return ""
	}
	guide := strings.TrimSpace(item.topic.Guide)
	if guide == "" {
		guide = "No guide for this topic."
	}
	return panelStyle().
		Width(max(20, width-2)).
		Render(fmt.Sprintf("%s\n%s", sectionTitle("GUIDE · "+item.topic.Label),
			lipgloss.NewStyle().Foreground(colorMuted).Render(guide)))
}

func (a *App) renderSessionPanel() string {
	user := a.sess.User().String()
	if user == "" {
		user = "(not set)"
	}
	errs, na := a.answeredCounts()
	meta := a.sess.Metadata()
	rows := []string{
		sectionTitle("SESSION"),
		"User      " + user,
		fmt.Sprintf("Topics    %d", a.sess.Catalog().Len()),
		fmt.Sprintf("Errors    %d", errs),
		fmt.Sprintf("N/A       %d", na),
	}
	if meta.EvaluatorName != "" {
		rows = append(rows, "Evaluator "+meta.EvaluatorName)
	}
	if meta.ContactID != "" {
		rows = append(rows, "Contact   "+meta.ContactID)
	}
	if a.lastSaved != nil {
		rows = append(rows, "", "Last saved "+a.lastSaved.CreatedAt.Local().Format("15:04:05"))
	}
	if warnings := a.sess.Warnings(); len(warnings) > 0 {
		rows = append(rows, "", lipgloss.NewStyle().Foreground(colorTitle).
			Render(fmt.Sprintf("%d catalog warning(s)", len(warnings))))
	}
	return strings.Join(rows, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccent).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(colorMuted).
		Render(strings.Join(lines, "\n"))
	return panelStyle().Render(fmt.Sprintf("%s\n%s", head, body))
}

func sectionTitle(s string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(s)
}
