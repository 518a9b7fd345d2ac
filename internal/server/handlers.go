package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/checklist"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/history"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/report"
	"github.com/mayerbet/QAtool/internal/session"
)

type healthResponse struct {
	Status        string `json:"status"`
	Version       int    `json:"version"`
	Topics        int    `json:"topics"`
	Sessions      int    `json:"sessions"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type topicsResponse struct {
	Topics   []catalog.Topic `json:"topics"`
	Warnings []string        `json:"warnings,omitempty"`
}

type reportView struct {
	Text      string `json:"text"`
	Generated bool   `json:"generated"`
}

type sessionView struct {
	ID        string                               `json:"id"`
	User      identity.UserID                      `json:"user,omitempty"`
	CreatedAt time.Time                            `json:"created_at"`
	Answers   map[catalog.TopicID]checklist.Answer `json:"answers"`
	Metadata  report.Metadata                      `json:"metadata"`
	Report    reportView                           `json:"report"`
	LastSaved *report.Record                       `json:"last_saved,omitempty"`
}

type answerRequest struct {
	Marking string  `json:"marking,omitempty"`
	Note    *string `json:"note,omitempty"`
}

type editReportRequest struct {
	Text          *string `json:"text,omitempty"`
	EvaluatorName *string `json:"evaluator_name,omitempty"`
	ContactID     *string `json:"contact_id,omitempty"`
}

type commentRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        string(s.Status()),
		Version:       APIVersion,
		Topics:        s.deps.Resolver.Catalog().Len(),
		Sessions:      s.sessions.len(),
		UptimeSeconds: s.uptimeSeconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	resp := topicsResponse{Topics: s.deps.Resolver.Catalog().Topics()}
	for _, warn := range s.deps.Warnings {
		resp.Warnings = append(resp.Warnings, warn.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var meta report.Metadata
	if !s.decodeOptional(w, r, &meta) {
		return
	}
	sess := session.New(userFrom(r), s.deps, session.WithClock(s.now))
	sess.SetMetadata(meta)
	s.sessions.add(sess)
	s.logger.Printf("server: session %s created for %q", sess.ID(), sess.User())
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, viewOf(sess))
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(r.PathValue("id"), userFrom(r)) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Marking == "" && req.Note == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "marking or note is required"})
		return
	}
	topic := catalog.TopicID(r.PathValue("topic"))
	s.withSession(w, r, func(sess *session.Session) {
		if req.Marking != "" {
			m, err := checklist.ParseMarking(req.Marking)
			if err != nil {
				writeError(w, err)
				return
			}
			if err := sess.Mark(topic, m); err != nil {
				writeError(w, err)
				return
			}
		}
		if req.Note != nil {
			if err := sess.Note(topic, *req.Note); err != nil {
				writeError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, viewOf(sess))
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) {
		sess.ClearAll()
		writeJSON(w, http.StatusOK, viewOf(sess))
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) {
		writeJSON(w, http.StatusOK, sess.Generate(r.Context()))
	})
}

func (s *Server) handleEditReport(w http.ResponseWriter, r *http.Request) {
	var req editReportRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.withSession(w, r, func(sess *session.Session) {
		if req.Text != nil {
			if err := sess.EditReport(*req.Text); err != nil {
				writeError(w, err)
				return
			}
		}
		meta := sess.Metadata()
		if req.EvaluatorName != nil {
			meta.EvaluatorName = *req.EvaluatorName
		}
		if req.ContactID != nil {
			meta.ContactID = *req.ContactID
		}
		sess.SetMetadata(meta)
		writeJSON(w, http.StatusOK, viewOf(sess))
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session.Session) {
		rec, err := sess.Save(r.Context())
		if err != nil {
			s.logger.Printf("server: session %s save failed: %v", sess.ID(), err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	writeJSON(w, http.StatusOK, s.deps.Resolver.Effective(r.Context(), user))
}

func (s *Server) handleSetComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !s.decode(w, r, &req) {
		return
	}
	topic := catalog.TopicID(r.PathValue("topic"))
	user := userFrom(r)
	if err := s.deps.Resolver.Upsert(r.Context(), topic, user, req.Text); err != nil {
		if !errors.Is(err, comments.ErrUnauthenticated) && !errors.Is(err, comments.ErrUnknownTopic) {
			err = errors.Join(session.ErrPersistence, err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments.Effective{
		TopicID:      topic,
		Label:        labelOf(s.deps.Resolver.Catalog(), topic),
		Text:         req.Text,
		Personalized: true,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "history is not configured"})
		return
	}
	user := userFrom(r)
	if user.IsZero() {
		writeError(w, report.ErrUnauthenticated)
		return
	}
	records, err := s.history.ListReports(r.Context(), user)
	if err != nil {
		s.logger.Printf("server: list history for %q: %v", user, err)
		writeError(w, errors.Join(session.ErrPersistence, err))
		return
	}
	q := r.URL.Query()
	filtered := history.Apply(records, history.Filter{
		Evaluator: q.Get("evaluator"),
		Contact:   q.Get("contact"),
		Date:      q.Get("date"),
	})
	writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session)) {
	if !s.sessions.with(r.PathValue("id"), userFrom(r), fn) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	}
}

// decode reads a required JSON body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := s.readBody(w, r)
	if !ok {
		return false
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty body"})
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := s.readBody(w, r)
	if !ok {
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return false
	}
	return true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload exceeds limit"})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unable to read body"})
		return nil, false
	}
	return body, true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Notice: session.Notice(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, report.ErrUnauthenticated), errors.Is(err, comments.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrUnknownTopic), errors.Is(err, comments.ErrUnknownTopic):
		return http.StatusNotFound
	case errors.Is(err, checklist.ErrInvalidMarking), errors.Is(err, report.ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrNotGenerated):
		return http.StatusConflict
	case errors.Is(err, session.ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func userFrom(r *http.Request) identity.UserID {
	return identity.Normalize(r.Header.Get(UserHeader))
}

func viewOf(sess *session.Session) sessionView {
	return sessionView{
		ID:        sess.ID(),
		User:      sess.User(),
		CreatedAt: sess.CreatedAt(),
		Answers:   sess.Answers(),
		Metadata:  sess.Metadata(),
		Report:    reportView{Text: sess.ReportText(), Generated: sess.Generated()},
		LastSaved: sess.LastSaved(),
	}
}

func labelOf(cat *catalog.Catalog, id catalog.TopicID) string {
	t, _ := cat.Lookup(id)
	return t.Label
}
