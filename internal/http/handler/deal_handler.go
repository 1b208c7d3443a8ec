package handler

import (
	"net/http"
	"strconv"

	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/service"
	"go.uber.org/zap"
)

type DealHandler struct {
	dealService *service.DealService
	logger      *zap.Logger
}

func NewDealHandler(dealService *service.DealService, logger *zap.Logger) *DealHandler {
	return &DealHandler{
		dealService: dealService,
		logger:      logger,
	}
}

// DealWithHistoryResponse is a deal together with its stage transitions
type DealWithHistoryResponse struct {
	domain.DealDTO
	History []domain.DealStageHistoryDTO `json:"history"`
}

// @Summary List deals
// @Description List deals matching a free-text search and structured filters. Converted deals are hidden unless includeInactive is set.
// @Tags Deals
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param q query string false "Search title, customer name and source"
// @Param filters query string false "JSON object of filters keyed by field id, e.g. {\"stage\":[\"proposal\"],\"value\":{\"min\":1000}}"
// @Param includeInactive query bool false "Include converted and archived deals"
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Router /deals [get]
func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	query, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))

	result, err := h.dealService.List(r.Context(), page, pageSize, query, includeInactive)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list deals")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create deal
// @Description Create a new deal in the sales pipeline
// @Tags Deals
// @Accept json
// @Produce json
// @Param request body domain.CreateDealRequest true "Deal data"
// @Success 201 {object} domain.DealDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Customer does not exist"
// @Router /deals [post]
func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDealRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deal, err := h.dealService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create deal")
		return
	}

	w.Header().Set("Location", "/api/v1/deals/"+deal.ID.String())
	respondJSON(w, http.StatusCreated, deal)
}

// @Summary Get deal
// @Description Get a deal by ID including its stage history
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {object} DealWithHistoryResponse
// @Failure 404 {object} domain.APIError
// @Router /deals/{id} [get]
func (h *DealHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "deal")
	if !ok {
		return
	}

	deal, err := h.dealService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get deal")
		return
	}
	history, err := h.dealService.GetStageHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get deal history")
		return
	}

	respondJSON(w, http.StatusOK, DealWithHistoryResponse{DealDTO: *deal, History: history})
}

// @Summary Update deal
// @Description Updates only the supplied fields. Converted deals are read only.
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.UpdateDealRequest true "Fields to change"
// @Success 200 {object} domain.DealDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Deal already converted"
// @Router /deals/{id} [put]
func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "deal")
	if !ok {
		return
	}

	var req domain.UpdateDealRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deal, err := h.dealService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// @Summary Delete deal
// @Description Deletes a deal and its stage history
// @Tags Deals
// @Param id path string true "Deal ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Deal already converted"
// @Router /deals/{id} [delete]
func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "deal")
	if !ok {
		return
	}

	if err := h.dealService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete deal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Change deal stage
// @Description Moves the deal to any stage and records the transition
// @Tags Deals
// @Accept json
// @Produce json
// @Param id path string true "Deal ID"
// @Param request body domain.UpdateDealStageRequest true "Target stage"
// @Success 200 {object} domain.DealDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Deal already converted"
// @Router /deals/{id}/stage [put]
func (h *DealHandler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "deal")
	if !ok {
		return
	}

	var req domain.UpdateDealStageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deal, err := h.dealService.ChangeStage(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to change deal stage")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// @Summary Convert deal to project
// @Description Creates a project from the deal. The deal is marked won, linked to the project and archived.
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 201 {object} domain.ConversionResultDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Deal already converted"
// @Router /deals/{id}/convert [post]
func (h *DealHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "deal")
	if !ok {
		return
	}

	result, err := h.dealService.ConvertToProject(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to convert deal")
		return
	}

	w.Header().Set("Location", "/api/v1/projects/"+result.Project.ID.String())
	respondJSON(w, http.StatusCreated, result)
}

// @Summary Get deal stage history
// @Tags Deals
// @Produce json
// @Param id path string true "Deal ID"
// @Success 200 {array} domain.DealStageHistoryDTO
// @Failure 404 {object} domain.APIError
// @Router /deals/{id}/history [get]
func (h *DealHandler) GetStageHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "deal")
	if !ok {
		return
	}

	history, err := h.dealService.GetStageHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get deal history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// @Summary Pipeline statistics
// @Description Count and value of active deals per stage
// @Tags Deals
// @Produce json
// @Success 200 {object} domain.PipelineStatsDTO
// @Router /deals/stats [get]
func (h *DealHandler) PipelineStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dealService.GetPipelineStats(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get pipeline statistics")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// @Summary Import deals
// @Description Creates one deal per row. A row names its customer by customerId, or by customerEmail and customerName.
// @Tags Deals
// @Accept json
// @Produce json
// @Param request body domain.ImportRequest true "Rows"
// @Success 200 {object} domain.ImportResultDTO
// @Router /deals/import [post]
func (h *DealHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.dealService.Import(r.Context(), req.Rows)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to import deals")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
