package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/sosexpat/notification-service/internal/dispatch_service/repository"
)

// DeliveryHandler is the read surface over the delivery ledger plus the
// provider delivery-confirmation webhook.
type DeliveryHandler struct {
	deliveryRepo repository.DeliveryRepository
	inboxRepo    repository.InboxRepository
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliveryRepo repository.DeliveryRepository, inboxRepo repository.InboxRepository, logger *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryRepo: deliveryRepo,
		inboxRepo:    inboxRepo,
		validate:     validator.New(),
		logger:       logger.With("handler", "delivery"),
	}
}

// RegisterRoutes registers delivery routes with the given router.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/deliveries", h.handleListDeliveries)
	r.Get("/deliveries/{deliveryKey}", h.handleGetDelivery)
	r.Post("/callbacks/delivery", h.handleDeliveryCallback)
	r.Get("/inbox/{uid}", h.handleListInbox)
}

func (h *DeliveryHandler) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	uid := r.URL.Query().Get("uid")
	if uid == "" {
		jsonError(w, logger, "Query parameter 'uid' is required", http.StatusBadRequest)
		return
	}
	eventID := r.URL.Query().Get("eventId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.deliveryRepo.ListByUser(ctx, uid, eventID, limit)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list deliveries", "error", err, "uid", uid)
		jsonError(w, logger, "Failed to list deliveries", http.StatusInternalServerError)
		return
	}

	resp := make([]DeliveryRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toDeliveryResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DeliveryHandler) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	key := chi.URLParam(r, "deliveryKey")
	rec, err := h.deliveryRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrDeliveryNotFound) {
			jsonError(w, logger, "Delivery record not found", http.StatusNotFound)
			return
		}
		logger.ErrorContext(ctx, "Failed to get delivery", "error", err, "delivery_key", key)
		jsonError(w, logger, "Failed to get delivery", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryResponse(rec))
}

// handleDeliveryCallback accepts asynchronous provider confirmations and
// moves sent records to delivered. Unknown provider message ids return 404
// so the provider stops retrying a message this system never sent.
func (h *DeliveryHandler) handleDeliveryCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req DeliveryCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, logger, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		jsonError(w, logger, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.deliveryRepo.GetByProviderMessageID(ctx, req.ProviderMessageID)
	if err != nil {
		if errors.Is(err, repository.ErrDeliveryNotFound) {
			jsonError(w, logger, "No delivery for provider message id", http.StatusNotFound)
			return
		}
		logger.ErrorContext(ctx, "Failed to resolve delivery callback", "error", err)
		jsonError(w, logger, "Failed to resolve callback", http.StatusInternalServerError)
		return
	}

	switch req.Status {
	case "delivered":
		err = h.deliveryRepo.UpdateDelivered(ctx, rec.Key, time.Now().UTC())
	case "failed":
		err = h.deliveryRepo.UpdateFailed(ctx, rec.Key, "provider delivery failure callback", time.Now().UTC())
	}
	if err != nil && !errors.Is(err, repository.ErrDeliveryNotFound) {
		logger.ErrorContext(ctx, "Failed to apply delivery callback", "error", err, "delivery_key", rec.Key)
		jsonError(w, logger, "Failed to apply callback", http.StatusInternalServerError)
		return
	}

	logger.InfoContext(ctx, "Delivery callback applied",
		"delivery_key", rec.Key, "status", req.Status, "provider_message_id", req.ProviderMessageID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeliveryHandler) handleListInbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	uid := chi.URLParam(r, "uid")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.inboxRepo.ListByUser(ctx, uid, limit)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list inbox", "error", err, "uid", uid)
		jsonError(w, logger, "Failed to list inbox", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
