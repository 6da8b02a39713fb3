package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-mocktest/internal/auth/middleware"
	"github.com/mind-engage/mindengage-mocktest/internal/exam"
	"github.com/mind-engage/mindengage-mocktest/internal/export"
	"github.com/mind-engage/mindengage-mocktest/internal/ranking"
	"github.com/mind-engage/mindengage-mocktest/internal/submission"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func RankingHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := ranking.ParseVariant(r.URL.Query().Get("variant"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		paperID := chi.URLParam(r, "paperID")
		var entries []exam.RankEntry
		if v == ranking.VariantAggregate && r.URL.Query().Get("cached") == "1" {
			entries, err = svc.StoredRanking(r.Context(), paperID)
		} else {
			entries, err = svc.RankAll(r.Context(), paperID, v)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// MyRankHandler ranks the authenticated learner.
func MyRankHandler(svc *submission.Service) http.HandlerFunc {
	return rankFor(svc, func(r *http.Request) string { return authmw.SubjectFromContext(r.Context()) })
}

// UserRankHandler ranks the learner named in the path.
func UserRankHandler(svc *submission.Service) http.HandlerFunc {
	return rankFor(svc, func(r *http.Request) string { return chi.URLParam(r, "userPhone") })
}

func rankFor(svc *submission.Service, who func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := ranking.ParseVariant(r.URL.Query().Get("variant"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		e, err := svc.RankFor(r.Context(), chi.URLParam(r, "paperID"), who(r), v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// RankingXLSXHandler downloads the ranking as a workbook.
func RankingXLSXHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := ranking.ParseVariant(r.URL.Query().Get("variant"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		paperID := chi.URLParam(r, "paperID")
		p, err := svc.Paper(r.Context(), paperID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries, err := svc.RankAll(r.Context(), paperID, v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := export.WriteLeaderboard(&buf, p, entries); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ranking-%s-%s.xlsx"`, p.ID, v))
		_, _ = buf.WriteTo(w)
	}
}
