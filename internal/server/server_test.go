package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/config"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/session"
	"github.com/mayerbet/QAtool/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const seedYAML = `topics:
  - id: greeting
    label: Greeting
    default_comment: Did not greet > as scripted.
  - id: tone
    label: Tone
    default_comment: Agent was polite.
`

func newTestServer(t *testing.T) (*Server, *store.MemStore) {
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
	snap := catalog.Load(ctx, mem)
	deps := session.Deps{
		Resolver:  comments.NewResolver(snap, mem),
		Persister: report.NewPersister(mem),
	}
	fixed := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	srv := NewServer(Settings{Enabled: true, Host: "127.0.0.1", MaxBodyBytes: 256}, deps,
		WithHistory(mem),
		WithClock(func() time.Time { return fixed }))
	return srv, mem
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	t.Setenv("QATOOL_SERVER_PORT", "9001")
	t.Setenv("QATOOL_SERVER_HOST", "0.0.0.0")
	t.Setenv("QATOOL_SERVER_ENABLED", "false")
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	settings := SettingsFromConfig(cfg)
	if settings.Port != 9001 || settings.Host != "0.0.0.0" || settings.Enabled {
		t.Fatalf("unexpected settings: %+v", settings)
	}
	if settings.MaxBodyBytes != DefaultMaxBodyBytes || settings.SessionTTL != DefaultSessionTTL {
		t.Fatalf("defaults not applied: %+v", settings)
	}
}

func TestSessionFlow(t *testing.T) {
	srv, mem := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/sessions", "ana", map[string]string{"contact_id": "C-9"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var view sessionView
	decodeInto(t, rec, &view)
	base := "/api/sessions/" + view.ID

	rec = do(t, h, http.MethodPut, base+"/answers/tone", "ana", map[string]string{"marking": "error"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark tone: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodPut, base+"/answers/greeting", "ana", map[string]string{"marking": "n/a", "note": "busy line"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark greeting: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, base+"/report", "ana", nil)
	var r report.Report
	decodeInto(t, rec, &r)
	want := "🟡 N/A Greeting\nDid not greet (Obs: busy line) as scripted.\n\n❌ Tone\nAgent was polite."
	if r.Text != want {
		t.Fatalf("report = %q", r.Text)
	}

	rec = do(t, h, http.MethodPost, base+"/save", "ana", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save: %d %s", rec.Code, rec.Body)
	}
	saved, _ := mem.ListReports(context.Background(), "ana")
	if len(saved) != 1 || saved[0].ContactID != "C-9" {
		t.Fatalf("saved = %+v", saved)
	}

	rec = do(t, h, http.MethodGet, "/api/history?contact=c-9", "ana", nil)
	var hist []report.Record
	decodeInto(t, rec, &hist)
	if len(hist) != 1 || hist[0].Text != want {
		t.Fatalf("history = %+v", hist)
	}

	rec = do(t, h, http.MethodPost, base+"/clear", "ana", nil)
	decodeInto(t, rec, &view)
	if len(view.Answers) != 0 || view.Report.Generated || view.Metadata.ContactID != "" {
		t.Fatalf("clear left state: %+v", view)
	}

	rec = do(t, h, http.MethodPost, base+"/report", "ana", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"lines":[]`) {
		t.Fatalf("report after clear: %d %s", rec.Code, rec.Body)
	}
}

func TestSessionIsScopedToUser(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	rec := do(t, h, http.MethodPost, "/api/sessions", "ana", nil)
	var view sessionView
	decodeInto(t, rec, &view)

	if rec := do(t, h, http.MethodGet, "/api/sessions/"+view.ID, "bia", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("other user got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/sessions/"+view.ID, "ana", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/sessions/"+view.ID, "ana", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted session still served: %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	rec := do(t, h, http.MethodPost, "/api/sessions", "", nil)
	var view sessionView
	decodeInto(t, rec, &view)
	base := "/api/sessions/" + view.ID

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad marking", http.MethodPut, base + "/answers/tone", map[string]string{"marking": "maybe"}, http.StatusBadRequest},
		{"unknown topic", http.MethodPut, base + "/answers/nope", map[string]string{"marking": "error"}, http.StatusNotFound},
		{"empty answer", http.MethodPut, base + "/answers/tone", map[string]string{}, http.StatusBadRequest},
		{"save before generate", http.MethodPost, base + "/save", nil, http.StatusConflict},
		{"edit before generate", http.MethodPut, base + "/report", map[string]string{"text": "x"}, http.StatusConflict},
		{"comment without user", http.MethodPut, "/api/comments/tone", map[string]string{"text": "x"}, http.StatusUnauthorized},
		{"history without user", http.MethodGet, "/api/history", nil, http.StatusUnauthorized},
		{"too large", http.MethodPut, base + "/report", map[string]string{"text": strings.Repeat("a", 512)}, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, "", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body)
			}
		})
	}

	do(t, h, http.MethodPut, base+"/answers/tone", "", map[string]string{"marking": "error"})
	do(t, h, http.MethodPost, base+"/report", "", nil)
	rec = do(t, h, http.MethodPost, base+"/save", "", nil)
	var resp errorResponse
	decodeInto(t, rec, &resp)
	if rec.Code != http.StatusUnauthorized || resp.Notice == "" {
		t.Fatalf("save without user: %d %+v", rec.Code, resp)
	}
}

func TestCommentsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPut, "/api/comments/tone", "ana", map[string]string{"text": "Calm and clear."})
	if rec.Code != http.StatusOK {
		t.Fatalf("set comment: %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/comments", "ana", nil)
	var list []comments.Effective
	decodeInto(t, rec, &list)
	if len(list) != 2 || list[1].Label != "Tone" || !list[1].Personalized || list[1].Text != "Calm and clear." {
		t.Fatalf("ana comments = %+v", list)
	}
	rec = do(t, h, http.MethodGet, "/api/comments", "bia", nil)
	decodeInto(t, rec, &list)
	if list[1].Personalized || list[1].Text != "Agent was polite." {
		t.Fatalf("bia comments = %+v", list)
	}
}

func TestServerLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(srv.BaseURL() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health.Status != string(StatusReady) || health.Topics != 2 {
		t.Fatalf("unexpected health: %d %+v", resp.StatusCode, health)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if srv.Status() != StatusDraining || srv.Addr() != "" {
		t.Fatalf("server not drained")
	}
}

func TestStartDisabled(t *testing.T) {
	srv := NewServer(Settings{Enabled: false}, session.Deps{})
	if err := srv.Start(context.Background()); err != ErrServerDisabled {
		t.Fatalf("expected ErrServerDisabled, got %v", err)
	}
}
