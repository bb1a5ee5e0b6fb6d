package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-attendance/internal/application"
)

type registrationService interface {
	RequestRegistration(ctx context.Context, params application.RequestRegistrationParams) (application.Registration, error)
	CancelRegistration(ctx context.Context, params application.CancelRegistrationParams) (application.Registration, error)
}

type RegistrationHandler struct {
	service   registrationService
	responder responder
	logger    *slog.Logger
}

func NewRegistrationHandler(service registrationService, logger *slog.Logger) *RegistrationHandler {
	base := defaultLogger(logger)
	return &RegistrationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RegistrationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RegistrationHandler", operation, attrs...)
}

func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "event_id", eventID, "user_id", req.UserID)

	registration, err := h.service.RequestRegistration(r.Context(), application.RequestRegistrationParams{
		UserID:  strings.TrimSpace(req.UserID),
		EventID: eventID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "registration request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With(
		"registration_id", registration.ID,
		"status", string(registration.Status),
	).InfoContext(r.Context(), "registration created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, registrationResponse{Registration: toRegistrationDTO(registration)})
}

func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}
	userID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	logger := h.log(r.Context(), "Delete", "event_id", eventID, "user_id", userID)

	if _, err := h.service.CancelRegistration(r.Context(), application.CancelRegistrationParams{
		UserID:  userID,
		EventID: eventID,
	}); err != nil {
		logger.ErrorContext(r.Context(), "registration cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "registration cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type registrationRequest struct {
	UserID string `json:"user_id"`
}

type registrationResponse struct {
	Registration registrationDTO `json:"registration"`
}

type registrationDTO struct {
	ID               string  `json:"id"`
	EventID          string  `json:"event_id"`
	UserID           string  `json:"user_id"`
	Status           string  `json:"status"`
	RequestedAt      string  `json:"requested_at"`
	ConfirmedAt      *string `json:"confirmed_at,omitempty"`
	CheckedInAt      *string `json:"checked_in_at,omitempty"`
	WaitlistPosition *int    `json:"waitlist_position,omitempty"`
}

func toRegistrationDTO(registration application.Registration) registrationDTO {
	dto := registrationDTO{
		ID:               registration.ID,
		EventID:          registration.EventID,
		UserID:           registration.UserID,
		Status:           string(registration.Status),
		RequestedAt:      registration.RequestedAt.UTC().Format(time.RFC3339Nano),
		WaitlistPosition: registration.WaitlistPosition,
	}
	if registration.ConfirmedAt != nil {
		confirmed := registration.ConfirmedAt.UTC().Format(time.RFC3339Nano)
		dto.ConfirmedAt = &confirmed
	}
	if registration.CheckedInAt != nil {
		checkedIn := registration.CheckedInAt.UTC().Format(time.RFC3339Nano)
		dto.CheckedInAt = &checkedIn
	}
	return dto
}
