package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/middleware"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/response"
	"github.com/assyin/pointaflex-26-sub002/internal/service/punch"
	"github.com/go-chi/chi/v5"
)

type PunchHandler interface {
	PunchIn(w http.ResponseWriter, r *http.Request)
	PunchOut(w http.ResponseWriter, r *http.Request)
	CorrectAnomaly(w http.ResponseWriter, r *http.Request)
	ListAnomalies(w http.ResponseWriter, r *http.Request)
}

type punchHandlerImpl struct {
	punchService *punch.Service
	eventRepo    attendance.EventRepository
}

func NewPunchHandler(punchService *punch.Service, eventRepo attendance.EventRepository) PunchHandler {
	return &punchHandlerImpl{
		punchService: punchService,
		eventRepo:    eventRepo,
	}
}

// PunchIn implements PunchHandler.
func (h *punchHandlerImpl) PunchIn(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	var req attendance.PunchInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	event, err := h.punchService.PunchIn(r.Context(), tn.ID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punch in recorded", toEventView(event))
}

// PunchOut implements PunchHandler.
func (h *punchHandlerImpl) PunchOut(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	var req attendance.PunchOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	event, err := h.punchService.PunchOut(r.Context(), tn.ID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punch out recorded", toEventView(event))
}

// CorrectAnomaly implements PunchHandler.
func (h *punchHandlerImpl) CorrectAnomaly(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	eventID := chi.URLParam(r, "eventID")

	var req attendance.CorrectAnomalyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	event, err := h.punchService.CorrectAnomaly(r.Context(), tn.ID, eventID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toEventView(event))
}

// ListAnomalies implements PunchHandler. The date query parameter selects one
// tenant-local calendar day; it defaults to today.
func (h *punchHandlerImpl) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	loc := tn.Location()
	day := time.Now().In(loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			response.BadRequest(w, "date must be YYYY-MM-DD", nil)
			return
		}
		day = parsed
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	events, err := h.eventRepo.ListAnomaliesBetween(r.Context(), tn.ID, from, to)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toEventViews(events))
}
