// Package tui is the terminal front end of the QA checklist.
//
// It follows bubbletea's Elm architecture: the App holds every piece of
// screen state, Update turns key presses and command results into state
// changes, and View renders the result. Writes to the store run inside
// tea.Cmds; while one is in flight the App ignores input.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/history"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/logbook"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/session"
)

// screen is the view currently owning the keyboard.
type screen int

const (
	screenChecklist   screen = iota // topic list with markings
	screenNote                      // note editor for one topic
	screenReport                    // generated report and metadata
	screenComments                  // comment catalogue
	screenCommentEdit               // override editor for one topic
	screenHistory                   // saved reports
)

const (
	focusReportText = iota
	focusEvaluator
	focusContact
	focusCount
)

// HistorySource lists the reports a user saved.
type HistorySource interface {
	ListReports(ctx context.Context, user identity.UserID) ([]report.Record, error)
}

type reportSavedMsg struct {
	record report.Record
	err    error
}

type commentSavedMsg struct {
	topic catalog.TopicID
	err   error
}

type commentsLoadedMsg struct {
	items []comments.Effective
}

type historyLoadedMsg struct {
	records []report.Record
	err     error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithHistory enables the history screen.
func WithHistory(src HistorySource) AppOption {
	return func(a *App) {
		if src != nil {
			a.history = src
		}
	}
}

// WithContext sets the context passed to store calls.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the main application model.
type App struct {
	ctx     context.Context
	sess    *session.Session
	logbook *logbook.Logbook
	history HistorySource

	screen    screen
	busy      bool
	showGuide bool
	notice    string
	lastSaved *report.Record

	checklist    list.Model
	commentsList list.Model
	historyList  list.Model
	records      []report.Record

	editor       textarea.Model
	editingTopic catalog.TopicID

	reportArea  textarea.Model
	evaluator   textinput.Model
	contact     textinput.Model
	reportFocus int

	filter textinput.Model

	width  int
	height int
}

// NewApp builds the UI around an open session.
func NewApp(sess *session.Session, lb *logbook.Logbook, opts ...AppOption) *App {
	checklistMenu := newMenu("✔ CHECKLIST", topicItems(sess.Catalog(), sess.Answers()))
	commentsMenu := newMenu("Comments", nil)
	historyMenu := newMenu("History", nil)

	editor := textarea.New()
	editor.Placeholder = "Type here. ctrl+s saves, esc cancels."
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.MaxHeight = 0

	reportArea := textarea.New()
	reportArea.ShowLineNumbers = false
	reportArea.CharLimit = 0
	reportArea.MaxHeight = 0

	evaluator := textinput.New()
	evaluator.Prompt = "Evaluator | "
	evaluator.Placeholder = "name"
	evaluator.CharLimit = 120

	contact := textinput.New()
	contact.Prompt = "Contact   | "
	contact.Placeholder = "contact id"
	contact.CharLimit = 120

	filter := textinput.New()
	filter.Prompt = "Filter | "
	filter.Placeholder = "evaluator:ana contact:C-123 date:2024-05"
	filter.CharLimit = 200

	app := &App{
		ctx:          context.Background(),
		sess:         sess,
		logbook:      lb,
		screen:       screenChecklist,
		checklist:    checklistMenu,
		commentsList: commentsMenu,
		historyList:  historyMenu,
		editor:       editor,
		reportArea:   reportArea,
		evaluator:    evaluator,
		contact:      contact,
		filter:       filter,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	for _, warn := range sess.Warnings() {
		lb.Warn("catalog: %v", warn)
	}
	if sess.User().IsZero() {
		app.notice = "No user set: reports and comments cannot be saved."
	}
	app.resize(100, 32)
	return app
}

func newMenu(title string, items []list.Item) list.Model {
	menu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	menu.Title = title
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.DisableQuitKeybindings()
	return menu
}

func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case reportSavedMsg:
		a.busy = false
		if msg.err != nil {
			a.notice = session.Notice(msg.err)
			return a, nil
		}
		rec := msg.record
		a.lastSaved = &rec
		a.notice = session.NoticeSaved
		return a, nil

	case commentSavedMsg:
		a.busy = false
		if msg.err != nil {
			a.notice = session.Notice(msg.err)
			return a, nil
		}
		a.notice = session.NoticeCommentSaved
		a.screen = screenComments
		a.editor.Blur()
		return a, a.loadComments()

	case commentsLoadedMsg:
		a.commentsList.SetItems(commentItems(msg.items))
		return a, nil

	case historyLoadedMsg:
		if msg.err != nil {
			a.notice = session.Notice(msg.err)
			return a, nil
		}
		a.records = msg.records
		a.applyFilter()
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.busy {
			return a, nil
		}
		switch a.screen {
		case screenChecklist:
			return a.updateChecklist(msg)
		case screenNote:
			return a.updateNote(msg)
		case screenReport:
			return a.updateReport(msg)
		case screenComments:
			return a.updateComments(msg)
		case screenCommentEdit:
			return a.updateCommentEdit(msg)
		case screenHistory:
			return a.updateHistory(msg)
		}
	}
	return a, nil
}

func (a *App) updateChecklist(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "e":
		a.markSelected(checklist.MarkingError)
		return a, nil
	case "n":
		a.markSelected(checklist.MarkingNotApplicable)
		return a, nil
	case "o":
		item, ok := a.selectedTopic()
		if !ok {
			return a, nil
		}
		a.editingTopic = item.topic.ID
		a.editor.SetValue(a.sess.Answer(item.topic.ID).Note)
		a.editor.Focus()
		a.screen = screenNote
		return a, nil
	case "g":
		a.showGuide = !a.showGuide
		return a, nil
	case "r":
		a.generate()
		return a, nil
	case "C":
		a.sess.ClearAll()
		a.lastSaved = nil
		a.refreshChecklist()
		a.notice = session.NoticeCleared
		return a, nil
	case "c":
		a.screen = screenComments
		return a, a.loadComments()
	case "h":
		if a.history == nil {
			a.notice = "History is not available."
			return a, nil
		}
		a.screen = screenHistory
		a.filter.Focus()
		return a, a.loadHistory()
	}
	var cmd tea.Cmd
	a.checklist, cmd = a.checklist.Update(msg)
	return a, cmd
}

func (a *App) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.closeEditor(screenChecklist)
		return a, nil
	case "ctrl+s":
		if err := a.sess.Note(a.editingTopic, a.editor.Value()); err != nil {
			a.notice = session.Notice(err)
			return a, nil
		}
		a.refreshChecklist()
		a.closeEditor(screenChecklist)
		return a, nil
	}
	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return a, cmd
}

func (a *App) updateReport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.syncMetadata()
		a.reportArea.Blur()
		a.evaluator.Blur()
		a.contact.Blur()
		a.screen = screenChecklist
		return a, nil
	case "tab":
		a.setReportFocus((a.reportFocus + 1) % focusCount)
		return a, nil
	case "shift+tab":
		a.setReportFocus((a.reportFocus + focusCount - 1) % focusCount)
		return a, nil
	case "ctrl+r":
		a.generate()
		return a, nil
	case "ctrl+s":
		a.syncMetadata()
		a.busy = true
		a.notice = "Saving..."
		return a, a.saveReport()
	}
	var cmd tea.Cmd
	switch a.reportFocus {
	case focusReportText:
		a.reportArea, cmd = a.reportArea.Update(msg)
		if text := a.reportArea.Value(); text != a.sess.ReportText() {
			if err := a.sess.EditReport(text); err != nil {
				a.notice = session.Notice(err)
			}
		}
	case focusEvaluator:
		a.evaluator, cmd = a.evaluator.Update(msg)
		a.syncMetadata()
	case focusContact:
		a.contact, cmd = a.contact.Update(msg)
		a.syncMetadata()
	}
	return a, cmd
}

func (a *App) updateComments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.screen = screenChecklist
		return a, nil
	case "enter":
		item, ok := a.commentsList.SelectedItem().(commentItem)
		if !ok {
			return a, nil
		}
		a.editingTopic = item.TopicID
		a.editor.SetValue(item.Text)
		a.editor.Focus()
		a.screen = screenCommentEdit
		return a, nil
	}
	var cmd tea.Cmd
	a.commentsList, cmd = a.commentsList.Update(msg)
	return a, cmd
}

func (a *App) updateCommentEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.closeEditor(screenComments)
		return a, nil
	case "ctrl+s":
		a.busy = true
		a.notice = "Saving..."
		return a, a.saveComment(a.editingTopic, a.editor.Value())
	}
	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return a, cmd
}

func (a *App) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.filter.Blur()
		a.screen = screenChecklist
		return a, nil
	case "enter":
		a.applyFilter()
		return a, nil
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		a.historyList, cmd = a.historyList.Update(msg)
		return a, cmd
	}
	var cmd tea.Cmd
	a.filter, cmd = a.filter.Update(msg)
	return a, cmd
}

func (a *App) markSelected(m checklist.Marking) {
	item, ok := a.selectedTopic()
	if !ok {
		return
	}
	if err := a.sess.Mark(item.topic.ID, m); err != nil {
		a.notice = session.Notice(err)
		return
	}
	a.refreshChecklist()
}

func (a *App) generate() {
	r := a.sess.Generate(a.ctx)
	a.reportArea.SetValue(r.Text)
	meta := a.sess.Metadata()
	a.evaluator.SetValue(meta.EvaluatorName)
	a.contact.SetValue(meta.ContactID)
	a.setReportFocus(focusReportText)
	a.screen = screenReport
	if r.Empty() {
		a.notice = "No topic is marked; the report is empty."
	} else {
		a.notice = fmt.Sprintf("Report generated with %d block(s).", len(r.Lines))
	}
}

func (a *App) setReportFocus(focus int) {
	a.reportFocus = focus
	a.reportArea.Blur()
	a.evaluator.Blur()
	a.contact.Blur()
	switch focus {
	case focusReportText:
		a.reportArea.Focus()
	case focusEvaluator:
		a.evaluator.Focus()
	case focusContact:
		a.contact.Focus()
	}
}

func (a *App) syncMetadata() {
	a.sess.SetMetadata(report.Metadata{
		EvaluatorName: a.evaluator.Value(),
		ContactID:     a.contact.Value(),
	})
}

func (a *App) closeEditor(next screen) {
	a.editor.Blur()
	a.editor.Reset()
	a.editingTopic = ""
	a.screen = next
}

func (a *App) selectedTopic() (topicItem, bool) {
	item, ok := a.checklist.SelectedItem().(topicItem)
	return item, ok
}

func (a *App) refreshChecklist() {
	a.checklist.SetItems(topicItems(a.sess.Catalog(), a.sess.Answers()))
}

func (a *App) applyFilter() {
	filtered := history.Apply(a.records, parseFilter(a.filter.Value()))
	a.historyList.SetItems(historyItems(filtered))
	a.historyList.Title = fmt.Sprintf("History · %d of %d", len(filtered), len(a.records))
}

func (a *App) saveReport() tea.Cmd {
	ctx, sess := a.ctx, a.sess
	return func() tea.Msg {
		rec, err := sess.Save(ctx)
		return reportSavedMsg{record: rec, err: err}
	}
}

func (a *App) saveComment(topic catalog.TopicID, text string) tea.Cmd {
	ctx, sess := a.ctx, a.sess
	return func() tea.Msg {
		return commentSavedMsg{topic: topic, err: sess.SaveComment(ctx, topic, text)}
	}
}

func (a *App) loadComments() tea.Cmd {
	ctx, sess := a.ctx, a.sess
	return func() tea.Msg {
		return commentsLoadedMsg{items: sess.Comments(ctx)}
	}
}

func (a *App) loadHistory() tea.Cmd {
	ctx, src, user := a.ctx, a.history, a.sess.User()
	return func() tea.Msg {
		if user.IsZero() {
			return historyLoadedMsg{err: report.ErrUnauthenticated}
		}
		records, err := src.ListReports(ctx, user)
		return historyLoadedMsg{records: records, err: err}
	}
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	mainWidth, _ := a.columns()
	listHeight := max(6, height-14)
	a.checklist.SetSize(max(20, mainWidth-4), listHeight)
	a.commentsList.SetSize(max(20, mainWidth-4), listHeight)
	a.historyList.SetSize(max(20, mainWidth-4), max(4, listHeight-2))
	a.editor.SetWidth(max(20, mainWidth-6))
	a.editor.SetHeight(max(3, listHeight/2))
	a.reportArea.SetWidth(max(20, mainWidth-6))
	a.reportArea.SetHeight(max(4, listHeight-4))
	a.evaluator.Width = max(10, mainWidth-20)
	a.contact.Width = max(10, mainWidth-20)
	a.filter.Width = max(10, mainWidth-16)
}

// columns splits the width between the main area and the side panel.
func (a *App) columns() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	side := max(28, width/4)
	body := width - side - 4
	if body < 40 {
		return width - 2, 0
	}
	return body, side
}

func (a *App) answeredCounts() (errs, na int) {
	for _, ans := range a.sess.Answers() {
		switch ans.Marking {
		case checklist.MarkingError:
			errs++
		case checklist.MarkingNotApplicable:
			na++
		}
	}
	return errs, na
}

func labelFor(cat *catalog.Catalog, id catalog.TopicID) string {
	if t, ok := cat.Lookup(id); ok {
		return t.Label
	}
	return strings.TrimSpace(string(id))
}
