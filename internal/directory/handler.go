package directory

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

// Handler wires HTTP endpoints for schools, departments and positions.
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

// MountSchoolRoutes registers school routes on the provided router.
func (h *Handler) MountSchoolRoutes(r chi.Router) {
	h.mountCRUD(r, shared.ResourceSchool, crudHandlers{
		list:       h.listSchools,
		get:        h.getSchool,
		create:     h.createSchool,
		update:     h.updateSchool,
		deactivate: h.deactivateSchool,
	})
}

// MountDepartmentRoutes registers department routes on the provided router.
func (h *Handler) MountDepartmentRoutes(r chi.Router) {
	h.mountCRUD(r, shared.ResourceDepartment, crudHandlers{
		list:       h.listDepartments,
		get:        h.getDepartment,
		create:     h.createDepartment,
		update:     h.updateDepartment,
		deactivate: h.deactivateDepartment,
	})
}

// MountPositionRoutes registers position routes on the provided router.
func (h *Handler) MountPositionRoutes(r chi.Router) {
	h.mountCRUD(r, shared.ResourcePosition, crudHandlers{
		list:       h.listPositions,
		get:        h.getPosition,
		create:     h.createPosition,
		deactivate: h.deactivatePosition,
	})
}

type crudHandlers struct {
	list       http.HandlerFunc
	get        http.HandlerFunc
	create     http.HandlerFunc
	update     http.HandlerFunc
	deactivate http.HandlerFunc
}

func (h *Handler) mountCRUD(r chi.Router, resource string, hs crudHandlers) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(resource, shared.ActionView, authz.ScopeNone)))
		r.Get("/", hs.list)
		r.Get("/{id}", hs.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(resource, shared.ActionCreate, authz.ScopeNone)))
		r.Post("/", hs.create)
	})
	if hs.update != nil {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(authz.Req(resource, shared.ActionUpdate, authz.ScopeNone)))
			r.Put("/{id}", hs.update)
		})
	}
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Req(resource, shared.ActionDelete, authz.ScopeNone)))
		r.Delete("/{id}", hs.deactivate)
	})
}

// codeNameRequest is the shared create/update body for schools and for
// department renames.
type codeNameRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=200"`
}

type departmentRequest struct {
	SchoolID int64  `json:"school_id" validate:"required,gt=0"`
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=200"`
}

type positionRequest struct {
	DepartmentID int64  `json:"department_id" validate:"required,gt=0"`
	Code         string `json:"code" validate:"required,max=32"`
	Name         string `json:"name" validate:"required,max=200"`
}

func (h *Handler) listSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.service.ListSchools(r.Context())
	if err != nil {
		h.logger.Error("list schools", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, schools)
}

func (h *Handler) getSchool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	school, err := h.service.GetSchool(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, school)
}

func (h *Handler) createSchool(w http.ResponseWriter, r *http.Request) {
	var req codeNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	school, err := h.service.CreateSchool(r.Context(), req.Code, req.Name)
	if err != nil {
		h.logger.Error("create school", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, school)
}

func (h *Handler) updateSchool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req codeNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	school, err := h.service.UpdateSchool(r.Context(), id, req.Code, req.Name)
	if err != nil {
		h.logger.Error("update school", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, school)
}

func (h *Handler) deactivateSchool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeactivateSchool(r.Context(), id); err != nil {
		h.logger.Error("deactivate school", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	schoolID, ok := optionalQueryID(w, r, "school_id")
	if !ok {
		return
	}
	departments, err := h.service.ListDepartments(r.Context(), schoolID)
	if err != nil {
		h.logger.Error("list departments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, departments)
}

func (h *Handler) getDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	department, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, department)
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	department, err := h.service.CreateDepartment(r.Context(), req.SchoolID, req.Code, req.Name)
	if err != nil {
		h.logger.Error("create department", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, department)
}

func (h *Handler) updateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req codeNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	department, err := h.service.UpdateDepartment(r.Context(), id, req.Code, req.Name)
	if err != nil {
		h.logger.Error("update department", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, department)
}

func (h *Handler) deactivateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeactivateDepartment(r.Context(), id); err != nil {
		h.logger.Error("deactivate department", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPositions(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := optionalQueryID(w, r, "department_id")
	if !ok {
		return
	}
	positions, err := h.service.ListPositions(r.Context(), departmentID)
	if err != nil {
		h.logger.Error("list positions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, positions)
}

func (h *Handler) getPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	position, err := h.service.GetPosition(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, position)
}

func (h *Handler) createPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !h.decode(w, r, &req) {
		return
	}
	position, err := h.service.CreatePosition(r.Context(), req.DepartmentID, req.Code, req.Name)
	if err != nil {
		h.logger.Error("create position", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, position)
}

func (h *Handler) deactivatePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeactivatePosition(r.Context(), id); err != nil {
		h.logger.Error("deactivate position", slog.Any("error", err))
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

func optionalQueryID(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return nil, false
	}
	return &id, true
}
