package handler

import (
	"errors"
	"net/http"

	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/service"
	"go.uber.org/zap"
)

type BulkHandler struct {
	bulkService *service.BulkService
	logger      *zap.Logger
}

func NewBulkHandler(bulkService *service.BulkService, logger *zap.Logger) *BulkHandler {
	return &BulkHandler{
		bulkService: bulkService,
		logger:      logger,
	}
}

// Actions serves the bulk action catalog of entity.
//
// @Summary List bulk actions
// @Tags Bulk
// @Produce json
// @Param entity path string true "customers, deals or projects"
// @Success 200 {array} domain.BulkActionDTO
// @Router /{entity}/bulk-actions [get]
func (h *BulkHandler) Actions(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actions, err := h.bulkService.Actions(entity)
		if err != nil {
			respondServiceError(w, h.logger, err, "failed to list bulk actions")
			return
		}
		respondJSON(w, http.StatusOK, actions)
	}
}

// Execute applies a catalog action to the selected records of entity.
//
// @Summary Run bulk action
// @Description Applies one action to the selected records. Selection is limited to records matching search and filters.
// @Description Destructive actions answer 409 until repeated with confirm=true. Partial failures answer 207 with per-item results.
// @Tags Bulk
// @Accept json
// @Produce json
// @Param entity path string true "customers, deals or projects"
// @Param request body domain.BulkActionRequest true "Action and selection"
// @Success 200 {object} domain.BulkActionResultDTO
// @Success 207 {object} domain.BulkActionResultDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /{entity}/bulk [post]
func (h *BulkHandler) Execute(entity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.BulkActionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		result, err := h.bulkService.Execute(r.Context(), entity, &req)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, result)
		case errors.Is(err, bulk.ErrPartialFailure) && result != nil:
			respondJSON(w, http.StatusMultiStatus, result)
		default:
			respondServiceError(w, h.logger, err, "failed to run bulk action")
		}
	}
}
