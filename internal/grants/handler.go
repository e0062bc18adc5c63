package grants

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Handler wires HTTP endpoints for grant administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers grant routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourcePermission, shared.ActionView, authz.ScopeNone)))
		r.Get("/permissions", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourcePermission, shared.ActionGrant, authz.ScopeNone)))
		r.Post("/permissions", h.ensurePermission)
		r.Put("/permissions/{id}/active", h.setPermissionActive)

		r.Post("/overrides", h.createOverride)
		r.Delete("/overrides/{id}", h.deleteOverride)

		r.Put("/direct", h.setDirectGrant)
		r.Delete("/direct", h.revokeDirectGrant)

		r.Put("/roles/{roleID}/permissions/{permissionID}", h.attachRolePermission)
		r.Delete("/roles/{roleID}/permissions/{permissionID}", h.detachRolePermission)
	})
}

type permissionRequest struct {
	Resource    string `json:"resource" validate:"required,max=80"`
	Action      string `json:"action" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

type overrideRequest struct {
	StaffID      int64      `json:"staff_id" validate:"required,gt=0"`
	PermissionID int64      `json:"permission_id" validate:"required,gt=0"`
	IsGranted    bool       `json:"is_granted"`
	ValidUntil   *time.Time `json:"valid_until"`
}

type directGrantRequest struct {
	StaffID      int64 `json:"staff_id" validate:"required,gt=0"`
	PermissionID int64 `json:"permission_id" validate:"required,gt=0"`
	IsGranted    bool  `json:"is_granted"`
}

type rolePermissionRequest struct {
	Scope     string `json:"scope" validate:"omitempty,oneof=OWN DEPARTMENT SCHOOL ALL"`
	IsGranted bool   `json:"is_granted"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) ensurePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	perm, err := h.service.EnsurePermission(r.Context(), req.Resource, req.Action, req.Description)
	if err != nil {
		h.logger.Error("ensure permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) setPermissionActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req activeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.service.SetPermissionActive(r.Context(), id, req.Active); err != nil {
		h.logger.Error("set permission active", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if !h.decode(w, r, &req) {
		return
	}
	override, err := h.service.CreateOverride(r.Context(), req.StaffID, req.PermissionID, req.IsGranted, req.ValidUntil)
	if err != nil {
		h.logger.Error("create override", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, override)
}

func (h *Handler) deleteOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteOverride(r.Context(), id); err != nil {
		h.logger.Error("delete override", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setDirectGrant(w http.ResponseWriter, r *http.Request) {
	var req directGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetDirectGrant(r.Context(), req.StaffID, req.PermissionID, req.IsGranted); err != nil {
		h.logger.Error("set direct grant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeDirectGrant(w http.ResponseWriter, r *http.Request) {
	var req directGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RevokeDirectGrant(r.Context(), req.StaffID, req.PermissionID); err != nil {
		h.logger.Error("revoke direct grant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) attachRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	var req rolePermissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.AttachRolePermission(r.Context(), roleID, permissionID, authz.Scope(req.Scope), req.IsGranted); err != nil {
		h.logger.Error("attach role permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) detachRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	permissionID, ok := h.pathID(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.service.DetachRolePermission(r.Context(), roleID, permissionID); err != nil {
		h.logger.Error("detach role permission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}
