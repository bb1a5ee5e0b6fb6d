package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-attendance/internal/application"
)

type attendanceService interface {
	CheckIn(ctx context.Context, eventID, userID string) (application.CheckInResult, error)
	UndoCheckIn(ctx context.Context, eventID, userID string) (application.CheckInResult, error)
	GetAttendanceSummary(ctx context.Context, eventID string) (application.AttendanceSummary, error)
	ListAttendanceEvents(ctx context.Context) ([]application.AttendanceSummary, error)
}

type AttendanceHandler struct {
	service   attendanceService
	responder responder
	logger    *slog.Logger
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	base := defaultLogger(logger)
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.applyCheckIn(w, r, "CheckIn", true)
}

func (h *AttendanceHandler) UndoCheckIn(w http.ResponseWriter, r *http.Request) {
	h.applyCheckIn(w, r, "UndoCheckIn", false)
}

func (h *AttendanceHandler) applyCheckIn(w http.ResponseWriter, r *http.Request, operation string, present bool) {
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

	logger := h.log(r.Context(), operation, "event_id", eventID, "user_id", userID)

	var result application.CheckInResult
	var err error
	if present {
		result, err = h.service.CheckIn(r.Context(), eventID, userID)
	} else {
		result, err = h.service.UndoCheckIn(r.Context(), eventID, userID)
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("checked_in", result.CheckedIn).InfoContext(r.Context(), "attendance updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, checkInResponse{
		EventID:          eventID,
		UserID:           userID,
		CheckedIn:        result.CheckedIn,
		RegisteredCount:  result.RegisteredCount,
		CheckedInCount:   result.CheckedInCount,
		OccupancyPercent: result.OccupancyPercent,
	})
}

func (h *AttendanceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	summary, err := h.service.GetAttendanceSummary(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "GetSummary", "event_id", eventID).ErrorContext(r.Context(), "attendance summary failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, summaryResponse{Summary: toSummaryDTO(summary)})
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	summaries, err := h.service.ListAttendanceEvents(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "attendance list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(summaries)).InfoContext(r.Context(), "attendance listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSummariesResponse{Events: toSummaryDTOs(summaries)})
}

type checkInResponse struct {
	EventID          string  `json:"event_id"`
	UserID           string  `json:"user_id"`
	CheckedIn        bool    `json:"checked_in"`
	RegisteredCount  int     `json:"registered_count"`
	CheckedInCount   int     `json:"checked_in_count"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

type summaryResponse struct {
	Summary summaryDTO `json:"summary"`
}

type listSummariesResponse struct {
	Events []summaryDTO `json:"events"`
}

type summaryDTO struct {
	EventID          string  `json:"event_id"`
	Title            string  `json:"title"`
	Start            string  `json:"start"`
	RegisteredCount  int     `json:"registered_count"`
	CheckedInCount   int     `json:"checked_in_count"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

func toSummaryDTO(summary application.AttendanceSummary) summaryDTO {
	return summaryDTO{
		EventID:          summary.EventID,
		Title:            summary.Title,
		Start:            summary.Start.UTC().Format(time.RFC3339Nano),
		RegisteredCount:  summary.RegisteredCount,
		CheckedInCount:   summary.CheckedInCount,
		OccupancyPercent: summary.OccupancyPercent,
	}
}

func toSummaryDTOs(summaries []application.AttendanceSummary) []summaryDTO {
	if len(summaries) == 0 {
		return nil
	}
	out := make([]summaryDTO, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toSummaryDTO(summary))
	}
	return out
}
