package http

import (
	"encoding/json"
	"net/http"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/overtime"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/middleware"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/response"
	otsvc "github.com/assyin/pointaflex-26-sub002/internal/service/overtime"
	"github.com/go-chi/chi/v5"
)

type OvertimeHandler interface {
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type overtimeHandlerImpl struct {
	overtimeService *otsvc.Service
}

func NewOvertimeHandler(overtimeService *otsvc.Service) OvertimeHandler {
	return &overtimeHandlerImpl{
		overtimeService: overtimeService,
	}
}

// actorCanApprove is a placeholder for real authorization, which lives
// outside this service. The gateway in front is expected to set the header.
func actorCanApprove(r *http.Request) bool {
	switch r.Header.Get("X-Actor-Role") {
	case "manager", "admin":
		return true
	}
	return false
}

// Approve implements OvertimeHandler.
func (h *overtimeHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	entryID := chi.URLParam(r, "entryID")

	var req overtime.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	entry, err := h.overtimeService.Approve(r.Context(), tn.ID, entryID, req.Hours(), actorCanApprove(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toOvertimeView(entry))
}

// Reject implements OvertimeHandler.
func (h *overtimeHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	entryID := chi.URLParam(r, "entryID")

	var req overtime.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}

	entry, err := h.overtimeService.Reject(r.Context(), tn.ID, entryID, reason, actorCanApprove(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toOvertimeView(entry))
}
