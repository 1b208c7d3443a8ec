package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/service"
	"go.uber.org/zap"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	errs := make(map[string]string)
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			errs[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}
	respondProblem(w, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: errs,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "email":
		return "Must be a valid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondProblem(w, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

func respondProblem(w http.ResponseWriter, problem domain.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	default:
		return domain.ErrorTypeInternal
	}
}

// confirmationResponse is returned instead of running a destructive bulk action
type confirmationResponse struct {
	domain.APIError
	Action string `json:"action"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// respondServiceError maps service errors to problem responses. Anything
// unrecognised is logged and reported as a 500 with a generic message.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, failure string) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.NotFoundError
		refErr        *service.ReferentialError
		terminalErr   *service.TerminalStateError
		confirmErr    *bulk.ConfirmationRequiredError
	)

	switch {
	case errors.As(err, &validationErr):
		fields := make(map[string]string, len(validationErr.Fields))
		for field, msg := range validationErr.Fields {
			fields[toJSONFieldName(field)] = msg
		}
		respondProblem(w, domain.APIError{
			Type:   domain.ErrorTypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: validationErr.Error(),
			Errors: fields,
		})
	case errors.As(err, &notFoundErr):
		respondWithError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &refErr):
		respondProblem(w, domain.APIError{
			Type:      domain.ErrorTypeReferential,
			Title:     "Referential Integrity Violation",
			Status:    http.StatusConflict,
			Detail:    refErr.Error(),
			Retryable: service.IsRetryable(err),
		})
	case errors.As(err, &terminalErr):
		respondProblem(w, domain.APIError{
			Type:   domain.ErrorTypeTerminalState,
			Title:  "Record Is Read Only",
			Status: http.StatusConflict,
			Detail: terminalErr.Error(),
		})
	case errors.As(err, &confirmErr):
		respondJSON(w, http.StatusConflict, confirmationResponse{
			APIError: domain.APIError{
				Type:   domain.ErrorTypeConfirmationRequired,
				Title:  "Confirmation Required",
				Status: http.StatusConflict,
				Detail: confirmErr.Message,
			},
			Action: confirmErr.ActionID,
			Label:  confirmErr.Label,
			Count:  confirmErr.Count,
		})
	case errors.Is(err, service.ErrUnknownEntity),
		errors.Is(err, bulk.ErrUnknownAction),
		errors.Is(err, bulk.ErrNothingSelected),
		errors.Is(err, bulk.ErrNothingPending):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(failure, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, strings.ToUpper(failure[:1])+failure[1:])
	}
}

// parseID reads the {id} URL parameter
func parseID(w http.ResponseWriter, r *http.Request, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID: must be a valid UUID", entity))
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON request body and runs struct validation
func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return false
	}
	if err := validate.Struct(target); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// parsePagination reads page and pageSize, defaulting to the first page of 20
func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

// parseListQuery reads the free-text search (q) and the JSON encoded filters
// parameter, e.g. filters={"status":["active"],"value":{"min":1000}}
func parseListQuery(w http.ResponseWriter, r *http.Request) (domain.ListQuery, bool) {
	query := domain.ListQuery{Search: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("filters"); raw != "" {
		if err := parseJSON(raw, &query.Filters); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid filters: must be a JSON object")
			return query, false
		}
	}
	return query, true
}

// parseJSON parses a JSON string into the target interface
func parseJSON(data string, target interface{}) error {
	return json.Unmarshal([]byte(data), target)
}
