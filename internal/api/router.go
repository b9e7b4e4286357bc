package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/scribe/internal/api/middleware"
	"github.com/kiranshivaraju/scribe/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler              http.HandlerFunc
	SubmitTranscriptionHandler http.HandlerFunc
	GetTranscriptionHandler    http.HandlerFunc
	SubmitSummarizationHandler http.HandlerFunc
	GetSummarizationHandler    http.HandlerFunc
	SummaryDocxHandler         http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/transcriptions", orNotImplemented(deps.SubmitTranscriptionHandler))
		r.Get("/api/v1/transcriptions/{jobID}", orNotImplemented(deps.GetTranscriptionHandler))

		r.Post("/api/v1/summaries", orNotImplemented(deps.SubmitSummarizationHandler))
		r.Get("/api/v1/summaries/{jobID}", orNotImplemented(deps.GetSummarizationHandler))
		r.Get("/api/v1/summaries/{jobID}/docx", orNotImplemented(deps.SummaryDocxHandler))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Route not found", nil)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
