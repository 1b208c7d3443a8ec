package handler

import (
	"net/http"

	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/service"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// @Summary List projects
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param q query string false "Search project number, title, customer name and manager"
// @Param filters query string false "JSON object of filters keyed by field id"
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Router /projects [get]
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	query, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	result, err := h.projectService.List(r.Context(), page, pageSize, query)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list projects")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create project
// @Description Creates a project with the next project number
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body domain.CreateProjectRequest true "Project data"
// @Success 201 {object} domain.ProjectDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Customer does not exist"
// @Router /projects [post]
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := h.projectService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create project")
		return
	}

	w.Header().Set("Location", "/api/v1/projects/"+project.ID.String())
	respondJSON(w, http.StatusCreated, project)
}

// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} domain.ProjectDTO
// @Failure 404 {object} domain.APIError
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "project")
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// @Summary Update project
// @Description Updates only the supplied fields. The percentage is clamped to 0-100.
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body domain.UpdateProjectRequest true "Fields to change"
// @Success 200 {object} domain.ProjectDTO
// @Failure 404 {object} domain.APIError
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "project")
	if !ok {
		return
	}

	var req domain.UpdateProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := h.projectService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// @Summary Update project status
// @Description Completing a project sets it to 100%
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body domain.UpdateProjectStatusRequest true "New status"
// @Success 200 {object} domain.ProjectDTO
// @Failure 404 {object} domain.APIError
// @Router /projects/{id}/status [put]
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "project")
	if !ok {
		return
	}

	var req domain.UpdateProjectStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	project, err := h.projectService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update project status")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// @Summary Delete project
// @Description Projects converted from a deal cannot be deleted
// @Tags Projects
// @Param id path string true "Project ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
