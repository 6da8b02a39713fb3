package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
	"github.com/mind-engage/mindengage-mocktest/internal/submission"
)

func ListPapersHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.Papers(r.Context(), exam.ListOpts{
			Q:        strings.TrimSpace(q.Get("q")),
			Category: exam.Category(strings.ToUpper(strings.TrimSpace(q.Get("category")))),
			Limit:    parseIntDefault(q.Get("limit"), 50),
			Offset:   parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetPaperHandler serves the paper. Answer keys are only included for roles
// allowed to edit papers.
func GetPaperHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Paper(r.Context(), chi.URLParam(r, "paperID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !rbac.Can(r.Context(), rbac.PermPaperEdit) {
			p = p.StudentView()
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// PutPaperHandler creates or replaces a paper; the URL id wins over the body's.
func PutPaperHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p exam.Paper
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		p.ID = chi.URLParam(r, "paperID")
		saved, err := svc.SavePaper(r.Context(), p)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
