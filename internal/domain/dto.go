package domain

import (
	"time"

	"github.com/google/uuid"
)

// CustomerDTO is the API representation of a customer
type CustomerDTO struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city,omitempty"`
	PostalCode   string         `json:"postalCode,omitempty"`
	Status       CustomerStatus `json:"status"`
	CustomerType CustomerType   `json:"customerType"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    string         `json:"createdAt"`
	UpdatedAt    string         `json:"updatedAt"`
}

type DealDTO struct {
	ID                   uuid.UUID  `json:"id"`
	Title                string     `json:"title"`
	CustomerID           uuid.UUID  `json:"customerId"`
	CustomerName         string     `json:"customerName,omitempty"`
	Value                float64    `json:"value"`
	WeightedValue        float64    `json:"weightedValue"`
	Stage                DealStage  `json:"stage"`
	Probability          int        `json:"probability"`
	Priority             Priority   `json:"priority"`
	ExpectedCloseDate    *string    `json:"expectedCloseDate,omitempty"`
	Source               string     `json:"source,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	ConvertedToProjectID *uuid.UUID `json:"convertedToProjectId,omitempty"`
	ConvertedAt          *string    `json:"convertedAt,omitempty"`
	Archived             bool       `json:"archived"`
	CreatedAt            string     `json:"createdAt"`
	UpdatedAt            string     `json:"updatedAt"`
}

type DealStageHistoryDTO struct {
	ID        uuid.UUID  `json:"id"`
	DealID    uuid.UUID  `json:"dealId"`
	FromStage *DealStage `json:"fromStage,omitempty"`
	ToStage   DealStage  `json:"toStage"`
	Notes     string     `json:"notes,omitempty"`
	ChangedAt string     `json:"changedAt"`
}

type ProjectDTO struct {
	ID                 uuid.UUID     `json:"id"`
	ProjectNumber      string        `json:"projectNumber"`
	Title              string        `json:"title"`
	CustomerID         uuid.UUID     `json:"customerId"`
	CustomerName       string        `json:"customerName,omitempty"`
	Status             ProjectStatus `json:"status"`
	PercentComplete    int           `json:"percentComplete"`
	ContractAmount     float64       `json:"contractAmount"`
	Priority           Priority      `json:"priority"`
	Manager            string        `json:"manager,omitempty"`
	StartDate          *string       `json:"startDate,omitempty"`
	ExpectedCompletion *string       `json:"expectedCompletion,omitempty"`
	OriginatingDealID  *uuid.UUID    `json:"originatingDealId,omitempty"`
	CreatedAt          string        `json:"createdAt"`
	UpdatedAt          string        `json:"updatedAt"`
}

// StagePipelineStats aggregates the active deals of one stage
type StagePipelineStats struct {
	Stage         DealStage `json:"stage"`
	Count         int       `json:"count"`
	TotalValue    float64   `json:"totalValue"`
	WeightedValue float64   `json:"weightedValue"`
}

// PipelineStatsDTO summarises the active pipeline. Converted deals are excluded.
type PipelineStatsDTO struct {
	TotalDeals    int                  `json:"totalDeals"`
	TotalValue    float64              `json:"totalValue"`
	WeightedValue float64              `json:"weightedValue"`
	ByStage       []StagePipelineStats `json:"byStage"`
}

// ConversionResultDTO is returned when a deal becomes a project
type ConversionResultDTO struct {
	Deal    DealDTO    `json:"deal"`
	Project ProjectDTO `json:"project"`
}

// SnapshotDTO is a complete, consistent read of every collection
type SnapshotDTO struct {
	TakenAt   string        `json:"takenAt"`
	Customers []CustomerDTO `json:"customers"`
	Deals     []DealDTO     `json:"deals"`
	Projects  []ProjectDTO  `json:"projects"`
}

// ExportResultDTO describes the files written by an export run
type ExportResultDTO struct {
	Prefix string   `json:"prefix"`
	Files  []string `json:"files"`
}

// ImportRowError describes why one imported row was rejected
type ImportRowError struct {
	Row    int               `json:"row"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ImportResultDTO reports the outcome of a batch import
type ImportResultDTO struct {
	Created []uuid.UUID      `json:"created"`
	Failed  []ImportRowError `json:"failed"`
}

// BulkActionDTO describes one entry of a bulk action catalog
type BulkActionDTO struct {
	ID                   string `json:"id"`
	Label                string `json:"label"`
	RequiresConfirmation bool   `json:"requiresConfirmation"`
	ConfirmationMessage  string `json:"confirmationMessage,omitempty"`
}

// BulkItemResultDTO is the outcome for a single selected record
type BulkItemResultDTO struct {
	ID    uuid.UUID `json:"id"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
}

// BulkActionResultDTO reports a bulk action run item by item
type BulkActionResultDTO struct {
	Action    string              `json:"action"`
	Results   []BulkItemResultDTO `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Selected  []uuid.UUID         `json:"selected"`
}

// Pagination
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ListQuery carries the free-text search and structured filters of a list screen
type ListQuery struct {
	Search  string
	Filters map[string]any
}

// Request DTOs

type CreateCustomerRequest struct {
	Name         string         `json:"name" validate:"required,max=200"`
	Email        string         `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone        string         `json:"phone,omitempty" validate:"max=50"`
	Address      string         `json:"address,omitempty" validate:"max=500"`
	City         string         `json:"city,omitempty" validate:"max=100"`
	PostalCode   string         `json:"postalCode,omitempty" validate:"max=20"`
	Status       CustomerStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive prospect"`
	CustomerType CustomerType   `json:"customerType,omitempty" validate:"omitempty,oneof=individual business"`
	Notes        string         `json:"notes,omitempty"`
}

// UpdateCustomerRequest only touches the fields that are present
type UpdateCustomerRequest struct {
	Name         *string         `json:"name,omitempty" validate:"omitnil,min=1,max=200"`
	Email        *string         `json:"email,omitempty" validate:"omitnil,omitempty,email,max=255"`
	Phone        *string         `json:"phone,omitempty" validate:"omitnil,max=50"`
	Address      *string         `json:"address,omitempty" validate:"omitnil,max=500"`
	City         *string         `json:"city,omitempty" validate:"omitnil,max=100"`
	PostalCode   *string         `json:"postalCode,omitempty" validate:"omitnil,max=20"`
	Status       *CustomerStatus `json:"status,omitempty" validate:"omitnil,oneof=active inactive prospect"`
	CustomerType *CustomerType   `json:"customerType,omitempty" validate:"omitnil,oneof=individual business"`
	Notes        *string         `json:"notes,omitempty"`
}

// FindOrCreateCustomerRequest resolves a customer by email before creating one
type FindOrCreateCustomerRequest struct {
	Name         string       `json:"name" validate:"required,max=200"`
	Email        string       `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone        string       `json:"phone,omitempty" validate:"max=50"`
	CustomerType CustomerType `json:"customerType,omitempty" validate:"omitempty,oneof=individual business"`
}

type CreateDealRequest struct {
	Title             string     `json:"title" validate:"required,max=200"`
	CustomerID        uuid.UUID  `json:"customerId" validate:"required"`
	Value             float64    `json:"value,omitempty" validate:"gte=0"`
	Stage             DealStage  `json:"stage,omitempty" validate:"omitempty,oneof=new qualified proposal negotiation won lost"`
	Priority          Priority   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	Source            string     `json:"source,omitempty" validate:"max=100"`
	Notes             string     `json:"notes,omitempty"`
}

// UpdateDealRequest merges only supplied fields. The customer reference is immutable.
type UpdateDealRequest struct {
	Title             *string    `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Value             *float64   `json:"value,omitempty" validate:"omitnil,gte=0"`
	Stage             *DealStage `json:"stage,omitempty" validate:"omitnil,oneof=new qualified proposal negotiation won lost"`
	Priority          *Priority  `json:"priority,omitempty" validate:"omitnil,oneof=low medium high urgent"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	Source            *string    `json:"source,omitempty" validate:"omitnil,max=100"`
	Notes             *string    `json:"notes,omitempty"`
}

type UpdateDealStageRequest struct {
	Stage DealStage `json:"stage" validate:"required,oneof=new qualified proposal negotiation won lost"`
	Notes string    `json:"notes,omitempty"`
}

type CreateProjectRequest struct {
	Title              string        `json:"title" validate:"required,max=200"`
	CustomerID         uuid.UUID     `json:"customerId" validate:"required"`
	Status             ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=not-started in-progress on-hold completed cancelled"`
	PercentComplete    int           `json:"percentComplete,omitempty"`
	ContractAmount     float64       `json:"contractAmount,omitempty" validate:"gte=0"`
	Priority           Priority      `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Manager            string        `json:"manager,omitempty" validate:"max=200"`
	StartDate          *time.Time    `json:"startDate,omitempty"`
	ExpectedCompletion *time.Time    `json:"expectedCompletion,omitempty"`
}

// UpdateProjectRequest merges only supplied fields. PercentComplete is clamped to [0,100].
type UpdateProjectRequest struct {
	Title              *string        `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Status             *ProjectStatus `json:"status,omitempty" validate:"omitnil,oneof=not-started in-progress on-hold completed cancelled"`
	PercentComplete    *int           `json:"percentComplete,omitempty"`
	ContractAmount     *float64       `json:"contractAmount,omitempty" validate:"omitnil,gte=0"`
	Priority           *Priority      `json:"priority,omitempty" validate:"omitnil,oneof=low medium high urgent"`
	Manager            *string        `json:"manager,omitempty" validate:"omitnil,max=200"`
	StartDate          *time.Time     `json:"startDate,omitempty"`
	ExpectedCompletion *time.Time     `json:"expectedCompletion,omitempty"`
}

type UpdateProjectStatusRequest struct {
	Status ProjectStatus `json:"status" validate:"required,oneof=not-started in-progress on-hold completed cancelled"`
}

// BulkActionRequest applies one catalog action to the selected records.
// Selection is scoped to the records matching Search and Filters.
type BulkActionRequest struct {
	Action    string         `json:"action" validate:"required"`
	IDs       []uuid.UUID    `json:"ids,omitempty"`
	SelectAll bool           `json:"selectAll,omitempty"`
	Search    string         `json:"search,omitempty"`
	Filters   map[string]any `json:"filters,omitempty"`
	Confirm   bool           `json:"confirm,omitempty"`
}

// ImportRequest carries loosely typed rows produced by a CSV parser
type ImportRequest struct {
	Rows []map[string]any `json:"rows" validate:"required,min=1"`
}
