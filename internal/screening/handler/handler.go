package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quickfi/internal/platform/middleware"
	"quickfi/internal/screening/models"
	vmodels "quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
	"quickfi/pkg/platform/httputil"
)

// Service defines the interface for screening operations.
type Service interface {
	Screen(ctx context.Context, vendorID id.VendorID, accountID *id.AccountID, stages []models.StageID) (*models.RunReport, error)
	Flags(ctx context.Context, vendorID id.VendorID) (*vmodels.FlagSummary, error)
	Notify(ctx context.Context, vendorID id.VendorID, recipient string) (*models.NotificationResult, error)
	DueDiligence(ctx context.Context, accountID id.AccountID, vendorID id.VendorID) (*vmodels.DueDiligence, error)
}

// Handler handles screening HTTP endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register registers the screening routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/vendors/{vendorID}/screenings", h.HandleScreen)
	r.Get("/vendors/{vendorID}/flags", h.HandleFlags)
	r.Post("/vendors/{vendorID}/notifications", h.HandleNotify)
	r.Get("/vendors/{vendorID}/due-diligence", h.HandleDueDiligence)
}

// HandleScreen runs the requested stages and returns the run report.
// Stages run synchronously within the configured run budget.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	vendorID, ok := h.vendorID(w, r, requestID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ScreeningRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	// Validate already accepted the names.
	stages, _ := models.ParseStages(req.Stages)

	var accountID *id.AccountID
	if req.AccountID != "" {
		parsed, err := id.ParseAccountID(req.AccountID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		accountID = &parsed
	}

	report, err := h.service.Screen(ctx, vendorID, accountID, stages)
	if err != nil {
		h.logger.ErrorContext(ctx, "screening run failed",
			"error", err,
			"vendor_id", vendorID.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) HandleFlags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	vendorID, ok := h.vendorID(w, r, requestID)
	if !ok {
		return
	}
	summary, err := h.service.Flags(ctx, vendorID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load flags",
			"error", err,
			"vendor_id", vendorID.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleNotify sends the flag summary for a vendor.
// Input: { "recipient": "risk@example.com" } (optional)
func (h *Handler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	vendorID, ok := h.vendorID(w, r, requestID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.NotificationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Notify(ctx, vendorID, req.Recipient)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to send notification",
			"error", err,
			"vendor_id", vendorID.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleDueDiligence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	vendorID, ok := h.vendorID(w, r, requestID)
	if !ok {
		return
	}
	accountID, err := id.ParseAccountID(r.URL.Query().Get("account_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.DueDiligence(ctx, accountID, vendorID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to build due diligence view",
			"error", err,
			"vendor_id", vendorID.String(),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) vendorID(w http.ResponseWriter, r *http.Request, requestID string) (id.VendorID, bool) {
	vendorID, err := id.ParseVendorID(chi.URLParam(r, "vendorID"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid vendor id",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return id.VendorID{}, false
	}
	return vendorID, true
}
