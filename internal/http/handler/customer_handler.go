package handler

import (
	"net/http"

	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/service"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customerService *service.CustomerService
	logger          *zap.Logger
}

func NewCustomerHandler(customerService *service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		logger:          logger,
	}
}

// @Summary List customers
// @Description List customers matching a free-text search and structured filters
// @Tags Customers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param q query string false "Search name, email, phone and city"
// @Param filters query string false "JSON object of filters keyed by field id"
// @Success 200 {object} domain.PaginatedResponse
// @Failure 400 {object} domain.APIError
// @Router /customers [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	query, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	result, err := h.customerService.List(r.Context(), page, pageSize, query)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list customers")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body domain.CreateCustomerRequest true "Customer data"
// @Success 201 {object} domain.CustomerDTO
// @Failure 400 {object} domain.APIError
// @Router /customers [post]
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	customer, err := h.customerService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to create customer")
		return
	}

	w.Header().Set("Location", "/api/v1/customers/"+customer.ID.String())
	respondJSON(w, http.StatusCreated, customer)
}

// @Summary Find or create customer
// @Description Returns the oldest customer with the same email (case-insensitive) or creates one
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body domain.FindOrCreateCustomerRequest true "Customer data"
// @Success 200 {object} domain.CustomerDTO "Existing customer"
// @Success 201 {object} domain.CustomerDTO "Created customer"
// @Failure 400 {object} domain.APIError
// @Router /customers/find-or-create [post]
func (h *CustomerHandler) FindOrCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.FindOrCreateCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	customer, created, err := h.customerService.FindOrCreate(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to find or create customer")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/v1/customers/"+customer.ID.String())
	}
	respondJSON(w, status, customer)
}

// @Summary Get customer
// @Tags Customers
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} domain.CustomerDTO
// @Failure 404 {object} domain.APIError
// @Router /customers/{id} [get]
func (h *CustomerHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "customer")
	if !ok {
		return
	}

	customer, err := h.customerService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get customer")
		return
	}

	respondJSON(w, http.StatusOK, customer)
}

// @Summary Update customer
// @Description Updates only the supplied fields
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param request body domain.UpdateCustomerRequest true "Fields to change"
// @Success 200 {object} domain.CustomerDTO
// @Failure 404 {object} domain.APIError
// @Router /customers/{id} [put]
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "customer")
	if !ok {
		return
	}

	var req domain.UpdateCustomerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	customer, err := h.customerService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to update customer")
		return
	}

	respondJSON(w, http.StatusOK, customer)
}

// @Summary Delete customer
// @Description Fails with 409 while deals or projects reference the customer
// @Tags Customers
// @Param id path string true "Customer ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /customers/{id} [delete]
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "customer")
	if !ok {
		return
	}

	if err := h.customerService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "failed to delete customer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Import customers
// @Description Creates one customer per row. Rejected rows are reported without affecting the others.
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body domain.ImportRequest true "Rows"
// @Success 200 {object} domain.ImportResultDTO
// @Router /customers/import [post]
func (h *CustomerHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.customerService.Import(r.Context(), req.Rows)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to import customers")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
