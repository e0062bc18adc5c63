package staff

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Handler wires HTTP endpoints for staff administration.
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

// MountRoutes registers staff routes on the provided router. Detail and
// update routes carry scoped requirements so a member without a broad
// grant can still reach their own record through the ownership fallback.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourceStaff, shared.ActionView, authz.ScopeDepartment)))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourceStaff, shared.ActionView, authz.ScopeOwn)))
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourceStaff, shared.ActionCreate, authz.ScopeNone)))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourceStaff, shared.ActionUpdate, authz.ScopeOwn)))
		r.Put("/{id}", h.updateProfile)
		r.Put("/{id}/password", h.changePassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourceStaff, shared.ActionUpdate, authz.ScopeSchool)))
		r.Put("/{id}/affiliation", h.updateAffiliation)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(shared.ResourceStaff, shared.ActionDelete, authz.ScopeNone)))
		r.Delete("/{id}", h.deactivate)
	})
}

type createRequest struct {
	Email        string `json:"email" validate:"required,email"`
	FullName     string `json:"full_name" validate:"required,max=200"`
	Password     string `json:"password" validate:"required,min=8"`
	SchoolID     *int64 `json:"school_id" validate:"omitempty,gt=0"`
	DepartmentID *int64 `json:"department_id" validate:"omitempty,gt=0"`
	PositionID   *int64 `json:"position_id" validate:"omitempty,gt=0"`
}

type profileRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

type affiliationRequest struct {
	SchoolID     *int64 `json:"school_id" validate:"omitempty,gt=0"`
	DepartmentID *int64 `json:"department_id" validate:"omitempty,gt=0"`
	PositionID   *int64 `json:"position_id" validate:"omitempty,gt=0"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var departmentID *int64
	if raw := r.URL.Query().Get("department_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid department_id")
			return
		}
		departmentID = &id
	}
	members, err := h.service.List(r.Context(), departmentID)
	if err != nil {
		h.logger.Error("list staff", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	member, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	aff := Affiliation{SchoolID: req.SchoolID, DepartmentID: req.DepartmentID, PositionID: req.PositionID}
	member, err := h.service.Create(r.Context(), req.Email, req.FullName, req.Password, aff)
	if err != nil {
		h.logger.Error("create staff", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, member)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}
	member, err := h.service.UpdateProfile(r.Context(), id, req.Email, req.FullName)
	if err != nil {
		h.logger.Error("update staff profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) updateAffiliation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req affiliationRequest
	if !h.decode(w, r, &req) {
		return
	}
	aff := Affiliation{SchoolID: req.SchoolID, DepartmentID: req.DepartmentID, PositionID: req.PositionID}
	member, err := h.service.UpdateAffiliation(r.Context(), id, aff)
	if err != nil {
		h.logger.Error("update staff affiliation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req passwordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, req.Password); err != nil {
		h.logger.Error("change staff password", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.logger.Error("deactivate staff", slog.Any("error", err))
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

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}
