package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/logbook"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/store"
)

const seedYAML = `topics:
  - id: a
    label: Greeting
    default_comment: Did not greet > as scripted.
  - id: b
    label: Tone
    default_comment: Agent was polite.
  - id: c
    label: Resolution
    default_comment: Issue left open.
`

type failingSaver struct{ err error }

func (f failingSaver) SaveReport(context.Context, report.Record) (report.Record, error) {
	return report.Record{}, f.err
}

func newTestSession(t *testing.T, user string, saver report.Saver) (*Session, *store.MemStore, *logbook.Logbook) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemStore()
	seed, err := catalog.ParseSeedYAML([]byte(seedYAML))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := mem.ImportSeed(ctx, seed); err != nil {
		t.Fatalf("import: %v", err)
	}
	if saver == nil {
		saver = mem
	}
	journal, err := logbook.New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	snap := catalog.Load(ctx, mem)
	s := New(identity.UserID(user), Deps{
		Resolver:  comments.NewResolver(snap, mem),
		Persister: report.NewPersister(saver),
		Journal:   journal,
		Warnings:  snap.Warnings,
	}, WithID("s-1"))
	return s, mem, journal
}

func TestGenerateFollowsCatalogOrderRegardlessOfClickOrder(t *testing.T) {
	s, _, _ := newTestSession(t, "ana", nil)
	mustMark(t, s, "c", checklist.MarkingError)
	mustMark(t, s, "a", checklist.MarkingNotApplicable)
	if err := s.Note("a", "rushed"); err != nil {
		t.Fatalf("note: %v", err)
	}

	r := s.Generate(context.Background())
	want := "🟡 N/A Greeting\nDid not greet (Obs: rushed) as scripted.\n\n❌ Resolution\nIssue left open."
	if diff := cmp.Diff(want, r.Text); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if s.ReportText() != want {
		t.Fatalf("buffer not updated")
	}
}

func TestClearAllResetsEverything(t *testing.T) {
	s, _, journal := newTestSession(t, "ana", nil)
	mustMark(t, s, "b", checklist.MarkingError)
	s.SetMetadata(report.Metadata{EvaluatorName: "Bia", ContactID: "C-1"})
	s.Generate(context.Background())

	s.ClearAll()

	if len(s.Answers()) != 0 || s.Generated() || s.ReportText() != "" {
		t.Fatalf("state survived clear")
	}
	if s.Metadata() != (report.Metadata{}) {
		t.Fatalf("metadata survived clear: %+v", s.Metadata())
	}
	if r := s.Generate(context.Background()); r.Text != "" {
		t.Fatalf("expected empty report, got %q", r.Text)
	}
	lines, _ := journal.Tail(10)
	if !containsLine(lines, "checklist cleared") {
		t.Fatalf("journal missing clear entry: %v", lines)
	}
}

func TestMarkValidation(t *testing.T) {
	s, _, _ := newTestSession(t, "ana", nil)
	if err := s.Mark("zzz", checklist.MarkingError); !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("expected ErrUnknownTopic, got %v", err)
	}
	if err := s.Mark("a", checklist.MarkingNone); !errors.Is(err, checklist.ErrInvalidMarking) {
		t.Fatalf("expected ErrInvalidMarking, got %v", err)
	}
}

func TestSaveLifecycle(t *testing.T) {
	s, mem, _ := newTestSession(t, "ana", nil)
	ctx := context.Background()
	if _, err := s.Save(ctx); !errors.Is(err, report.ErrNotGenerated) {
		t.Fatalf("expected ErrNotGenerated, got %v", err)
	}
	mustMark(t, s, "b", checklist.MarkingError)
	s.SetMetadata(report.Metadata{EvaluatorName: "Bia", ContactID: "C-7"})
	s.Generate(ctx)
	if err := s.EditReport(s.ReportText() + "\nextra"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	rec, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(rec.Text, "\nextra") || rec.ContactID != "C-7" || rec.UserID != "ana" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	saved, _ := mem.ListReports(ctx, "ana")
	if len(saved) != 1 || saved[0].ID != rec.ID {
		t.Fatalf("store has %+v", saved)
	}
	if s.LastSaved() == nil || s.LastSaved().ID != rec.ID {
		t.Fatalf("last saved not tracked")
	}
}

func TestSaveWithoutUserIsRejected(t *testing.T) {
	s, mem, _ := newTestSession(t, "", nil)
	ctx := context.Background()
	mustMark(t, s, "a", checklist.MarkingError)
	s.Generate(ctx)
	_, err := s.Save(ctx)
	if !errors.Is(err, report.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if n, _ := mem.ListReports(ctx, ""); len(n) != 0 {
		t.Fatalf("nothing should be saved")
	}
	if err := s.SaveComment(ctx, "a", "x"); !errors.Is(err, comments.ErrUnauthenticated) {
		t.Fatalf("expected comments.ErrUnauthenticated, got %v", err)
	}
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	boom := errors.New("network down")
	s, _, _ := newTestSession(t, "ana", failingSaver{err: boom})
	ctx := context.Background()
	mustMark(t, s, "a", checklist.MarkingError)
	s.Generate(ctx)
	before := s.ReportText()

	_, err := s.Save(ctx)
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, boom) {
		t.Fatalf("expected persistence failure wrapping cause, got %v", err)
	}
	if s.ReportText() != before || s.LastSaved() != nil {
		t.Fatalf("state changed after failed save")
	}
	if !strings.Contains(Notice(err), "Could not save") {
		t.Fatalf("notice = %q", Notice(err))
	}
}

func TestSaveCommentShadowsDefaultInNextReport(t *testing.T) {
	s, _, _ := newTestSession(t, "ana", nil)
	ctx := context.Background()
	if err := s.SaveComment(ctx, "b", "Tone was fine overall."); err != nil {
		t.Fatalf("save comment: %v", err)
	}
	mustMark(t, s, "b", checklist.MarkingError)
	if got := s.Generate(ctx).Text; got != "❌ Tone\nTone was fine overall." {
		t.Fatalf("report = %q", got)
	}

	var personalized []catalog.TopicID
	for _, e := range s.Comments(ctx) {
		if e.Personalized {
			personalized = append(personalized, e.TopicID)
		}
	}
	if diff := cmp.Diff([]catalog.TopicID{"b"}, personalized); diff != "" {
		t.Fatalf("personalized mismatch:\n%s", diff)
	}
}

func TestNotice(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{report.ErrNotGenerated, "Generate the report first."},
		{checklist.ErrInvalidMarking, "❌ Invalid marking. Use error or n/a."},
		{comments.ErrUnknownTopic, "❌ Unknown topic."},
	}
	for _, tc := range cases {
		if got := Notice(tc.err); got != tc.want {
			t.Fatalf("Notice(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestWithClock(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New("ana", Deps{}, WithClock(func() time.Time { return at }))
	if !s.CreatedAt().Equal(at) || s.ID() == "" {
		t.Fatalf("unexpected session: %s %s", s.ID(), s.CreatedAt())
	}
	if s.Catalog().Len() != 0 {
		t.Fatalf("expected empty catalog")
	}
}

func mustMark(t *testing.T, s *Session, id catalog.TopicID, m checklist.Marking) {
	t.Helper()
	if err := s.Mark(id, m); err != nil {
		t.Fatalf("mark %s: %v", id, err)
	}
}

func containsLine(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
