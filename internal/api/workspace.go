package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/report"
	"github.com/joescharf/bugless/internal/view"
)

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	user := c.session.CurrentUser()
	if user == nil {
		s.fail(w, view.ErrNotSignedIn)
		return
	}
	records := []models.ReviewRecord{}
	if s.history != nil {
		records = s.history.List(r.Context(), user.UID)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) startReview(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req struct {
		HistoryID string `json:"historyId"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.fail(w, err)
			return
		}
	}

	var item *models.ReviewRecord
	if req.HistoryID != "" {
		user := c.session.CurrentUser()
		if user == nil {
			s.fail(w, view.ErrNotSignedIn)
			return
		}
		item = s.findRecord(r, user.UID, req.HistoryID)
		if item == nil {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
	}

	if err := c.ctrl.StartReview(item); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

func (s *Server) findRecord(r *http.Request, uid, id string) *models.ReviewRecord {
	if s.history == nil {
		return nil
	}
	for _, rec := range s.history.List(r.Context(), uid) {
		if rec.ID == id {
			return &rec
		}
	}
	return nil
}

func (s *Server) editWorkspace(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	var req struct {
		Code     *string `json:"code"`
		Language *string `json:"language"`
	}
	if err := decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := c.ctrl.Edit(req.Code, req.Language); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

func (s *Server) runReview(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	if err := c.ctrl.Review(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.ctrl.Snapshot())
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	c := s.client(w, r)
	snap := c.ctrl.Snapshot()
	if snap.User == nil {
		s.fail(w, view.ErrNotSignedIn)
		return
	}

	rw, err := report.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws := snap.Workspace
	rec := models.ReviewRecord{ID: ws.ID, Language: ws.Language, SourceCode: ws.Code, Result: ws.Result}
	if snap.Selected != nil && snap.Selected.ID == ws.ID {
		rec.CreatedAt = snap.Selected.CreatedAt
	}
	if rec.Result == nil {
		writeError(w, http.StatusConflict, "There is no analysis to export yet.")
		return
	}

	var buf bytes.Buffer
	if err := rw.Write(&buf, rec); err != nil {
		s.logger.Error("rendering report", "format", rw.Extension(), "error", err)
		writeError(w, http.StatusInternalServerError, "The report could not be generated.")
		return
	}
	w.Header().Set("Content-Type", rw.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(rec, rw)))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("writing report", "error", err)
	}
}
