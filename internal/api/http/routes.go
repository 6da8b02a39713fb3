package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-mocktest/internal/auth"
	authmw "github.com/mind-engage/mindengage-mocktest/internal/auth/middleware"
	"github.com/mind-engage/mindengage-mocktest/internal/rbac"
	"github.com/mind-engage/mindengage-mocktest/internal/submission"
)

// MountAuth registers the public OTP login routes.
func MountAuth(r chi.Router, otp *auth.OTPService, a *authmw.AuthService) {
	r.Post("/auth/otp", RequestOTPHandler(otp))
	r.Post("/auth/verify", VerifyOTPHandler(otp, a))
}

// MountPapers registers paper, result and ranking routes. r must already
// carry the JWT middleware.
func MountPapers(r chi.Router, svc *submission.Service) {
	r.With(rbac.Require(rbac.PermPaperView)).Get("/papers", ListPapersHandler(svc))
	r.Route("/papers/{paperID}", func(pr chi.Router) {
		pr.With(rbac.Require(rbac.PermPaperView)).Get("/", GetPaperHandler(svc))
		pr.With(rbac.Require(rbac.PermPaperEdit)).Put("/", PutPaperHandler(svc))

		pr.With(rbac.Require(rbac.PermResultSubmit)).Post("/submit", SubmitHandler(svc))
		pr.With(rbac.RequireAny(rbac.PermResultViewOwn, rbac.PermResultViewAll)).Get("/results", ListResultsHandler(svc))

		pr.With(rbac.Require(rbac.PermRankView)).Get("/ranking", RankingHandler(svc))
		pr.With(rbac.Require(rbac.PermRankView)).Get("/ranking/me", MyRankHandler(svc))
		pr.With(rbac.Require(rbac.PermRankViewAll)).Get("/ranking/{userPhone}", UserRankHandler(svc))
		pr.With(rbac.Require(rbac.PermRankExport)).Get("/ranking.xlsx", RankingXLSXHandler(svc))
	})
	r.With(rbac.RequireAny(rbac.PermResultViewOwn, rbac.PermResultViewAll)).Get("/results/{resultID}", GetResultHandler(svc))
}

// NewRouter builds the API surface without process-level middleware; the
// gateway adds logging, CORS and timeouts around it.
func NewRouter(svc *submission.Service, otp *auth.OTPService, a *authmw.AuthService, extra ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	MountAuth(r, otp, a)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(a))
		pr.Use(extra...)
		MountPapers(pr, svc)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
