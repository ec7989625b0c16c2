package http

import (
	"encoding/json"
	"net/http"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/recovery"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/middleware"
	"github.com/assyin/pointaflex-26-sub002/internal/handler/http/response"
	recsvc "github.com/assyin/pointaflex-26-sub002/internal/service/recovery"
)

type RecoveryHandler interface {
	Convert(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type recoveryHandlerImpl struct {
	recoveryService *recsvc.Service
}

func NewRecoveryHandler(recoveryService *recsvc.Service) RecoveryHandler {
	return &recoveryHandlerImpl{
		recoveryService: recoveryService,
	}
}

// Convert implements RecoveryHandler.
func (h *recoveryHandlerImpl) Convert(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	var req recovery.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	grant, err := h.recoveryService.Convert(r.Context(), tn, req, actorCanApprove(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Recovery days granted", toGrantView(grant))
}

// Cancel implements RecoveryHandler.
func (h *recoveryHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	tn, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		response.BadRequest(w, "Missing tenant context", nil)
		return
	}

	var req recovery.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	grants, err := h.recoveryService.Cancel(r.Context(), tn, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toGrantViews(grants))
}
