package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/sosexpat/notification-service/internal/core_notification/domain"
	"github.com/sosexpat/notification-service/internal/platform/messagebroker"
)

// EventHandler ingests notification events and publishes them to the
// dispatch subject. The API never sends anything itself; delivery is the
// worker's job.
type EventHandler struct {
	natsClient *messagebroker.NatsClient
	subject    string
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(natsClient *messagebroker.NatsClient, subject string, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		natsClient: natsClient,
		subject:    subject,
		validate:   validator.New(),
		logger:     logger.With("handler", "event"),
	}
}

// RegisterRoutes registers event routes with the given router.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Post("/events", h.handleIngestEvent)
}

func (h *EventHandler) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, logger, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		jsonError(w, logger, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	event := domain.Event{
		EventID:   req.EventID,
		Locale:    req.Locale,
		To:        req.To,
		Context:   req.Context,
		DedupeKey: req.DedupeKey,
		UID:       req.UID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to marshal event", "error", err, "event_id", event.EventID)
		jsonError(w, logger, "Internal error", http.StatusInternalServerError)
		return
	}

	if err := h.natsClient.Publish(ctx, h.subject, payload); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "event_id", event.EventID)
		jsonError(w, logger, "Failed to enqueue event", http.StatusServiceUnavailable)
		return
	}

	logger.InfoContext(ctx, "Event accepted", "event_id", event.EventID, "dedupe_key", event.EffectiveDedupeKey())
	writeJSON(w, http.StatusAccepted, IngestEventResponse{
		EventID:   event.EventID,
		DedupeKey: event.EffectiveDedupeKey(),
		Accepted:  true,
	})
}
