// Package gateway is the HTTP submission surface: one endpoint that validates
// a submission and publishes it to the classify queue.
package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/pkms/content-pipeline/internal/model"
)

// SubmissionPublisher hands a validated submission to the pipeline.
type SubmissionPublisher interface {
	PublishSubmission(ctx context.Context, submission *model.SubmittedContent) error
}

// Handler serves the submission API.
type Handler struct {
	publisher SubmissionPublisher
	log       zerolog.Logger
}

// NewHandler creates the submission handler.
func NewHandler(publisher SubmissionPublisher, log zerolog.Logger) *Handler {
	return &Handler{publisher: publisher, log: log}
}

// Routes builds the gateway router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/submit", h.submit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	return r
}

type submitResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var submission model.SubmittedContent
	if err := render.DecodeJSON(r.Body, &submission); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: "request body is not valid json"})
		return
	}
	if err := model.ValidateSubmission(&submission); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: err.Error()})
		return
	}

	if err := h.publisher.PublishSubmission(r.Context(), &submission); err != nil {
		h.log.Error().Err(err).Msg("failed to publish submission")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, errorResponse{Error: "submission could not be queued"})
		return
	}

	h.log.Info().Int("content_len", len(submission.Content)).Msg("submission accepted")
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, submitResponse{Status: "accepted"})
}
