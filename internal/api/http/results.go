package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-mocktest/internal/auth/middleware"
	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
	"github.com/mind-engage/mindengage-mocktest/internal/submission"
)

const maxSubmitBytes = 1 << 20

// unwrapAnswers accepts either the answers object itself or an envelope
// {"answers": {...}} with no other fields.
func unwrapAnswers(body []byte) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil || len(env) != 1 {
		return body
	}
	inner, ok := env["answers"]
	if !ok {
		return body
	}
	if t := bytes.TrimSpace(inner); len(t) > 0 && t[0] == '{' {
		return t
	}
	return body
}

// SubmitHandler scores the caller's answers and stores the result.
func SubmitHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmitBytes+1))
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		if len(body) > maxSubmitBytes {
			writeErrorMsg(w, http.StatusRequestEntityTooLarge, "answers too large")
			return
		}
		answers, err := exam.ParseAnswers(unwrapAnswers(body))
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.Score(r.Context(), chi.URLParam(r, "paperID"), authmw.SubjectFromContext(r.Context()), answers)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// ListResultsHandler lists the caller's results on a paper, newest first.
// Admins may list another learner's results with ?user_phone=.
func ListResultsHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		caller := authmw.SubjectFromContext(r.Context())
		phone := caller
		if other := strings.TrimSpace(q.Get("user_phone")); other != "" {
			if !rbac.OwnerOr(r.Context(), caller, other, rbac.PermResultViewAll) {
				writeErrorMsg(w, http.StatusForbidden, "forbidden")
				return
			}
			phone = other
		}
		list, err := svc.Results(r.Context(), exam.ResultListOpts{
			PaperID:   chi.URLParam(r, "paperID"),
			UserPhone: phone,
			Limit:     parseIntDefault(q.Get("limit"), 50),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetResultHandler returns one result to its owner or an admin. Other callers
// get 404 so result ids cannot be probed.
func GetResultHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Result(r.Context(), chi.URLParam(r, "resultID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !rbac.OwnerOr(r.Context(), authmw.SubjectFromContext(r.Context()), res.UserPhone, rbac.PermResultViewAll) {
			writeErrorMsg(w, http.StatusNotFound, exam.ErrNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
