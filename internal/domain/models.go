package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all models.
// Identifiers are issued by the application, never by the database.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a fresh identifier when none is set
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusProspect CustomerStatus = "prospect"
)

// IsValid checks if the customer status is a valid value
func (s CustomerStatus) IsValid() bool {
	switch s {
	case CustomerStatusActive, CustomerStatusInactive, CustomerStatusProspect:
		return true
	}
	return false
}

// CustomerStatuses lists every customer status in display order
var CustomerStatuses = []CustomerStatus{
	CustomerStatusActive,
	CustomerStatusInactive,
	CustomerStatusProspect,
}

// CustomerType distinguishes private households from companies
type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "individual"
	CustomerTypeBusiness   CustomerType = "business"
)

// IsValid checks if the customer type is a valid value
func (t CustomerType) IsValid() bool {
	return t == CustomerTypeIndividual || t == CustomerTypeBusiness
}

// Customer represents a renovation customer
type Customer struct {
	BaseModel
	Name         string         `gorm:"type:varchar(200);not null;index"`
	Email        string         `gorm:"type:varchar(255);index"`
	Phone        string         `gorm:"type:varchar(50)"`
	Address      string         `gorm:"type:varchar(500)"`
	City         string         `gorm:"type:varchar(100)"`
	PostalCode   string         `gorm:"type:varchar(20);column:postal_code"`
	Status       CustomerStatus `gorm:"type:varchar(50);not null;default:'prospect'"`
	CustomerType CustomerType   `gorm:"type:varchar(50);not null;default:'individual';column:customer_type"`
	Notes        string         `gorm:"type:text"`
}

// DealStage represents the stage of a deal in the sales pipeline
type DealStage string

const (
	DealStageNew         DealStage = "new"
	DealStageQualified   DealStage = "qualified"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageWon         DealStage = "won"
	DealStageLost        DealStage = "lost"
)

// DealStages lists the pipeline stages in pipeline order
var DealStages = []DealStage{
	DealStageNew,
	DealStageQualified,
	DealStageProposal,
	DealStageNegotiation,
	DealStageWon,
	DealStageLost,
}

// IsValid checks if the deal stage is a valid value
func (s DealStage) IsValid() bool {
	for _, stage := range DealStages {
		if s == stage {
			return true
		}
	}
	return false
}

// Priority is shared by deals and projects
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is a valid value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Deal represents a sales opportunity in the pipeline
type Deal struct {
	BaseModel
	Title                string     `gorm:"type:varchar(200);not null"`
	CustomerID           uuid.UUID  `gorm:"type:uuid;not null;index;column:customer_id"`
	CustomerName         string     `gorm:"type:varchar(200);column:customer_name"`
	Value                float64    `gorm:"type:decimal(15,2);not null;default:0"`
	Stage                DealStage  `gorm:"type:varchar(50);not null;default:'new';index"`
	Probability          int        `gorm:"type:int;not null;default:0"`
	Priority             Priority   `gorm:"type:varchar(20);not null;default:'medium'"`
	ExpectedCloseDate    *time.Time `gorm:"type:date;column:expected_close_date"`
	Source               string     `gorm:"type:varchar(100)"`
	Notes                string     `gorm:"type:text"`
	ConvertedToProjectID *uuid.UUID `gorm:"type:uuid;index;column:converted_to_project_id"`
	ConvertedAt          *time.Time `gorm:"column:converted_at"`
	ArchivedAt           *time.Time `gorm:"index;column:archived_at"`
}

// IsConverted reports whether the deal has already been turned into a project.
// A converted deal is terminal.
func (d *Deal) IsConverted() bool {
	return d.ConvertedToProjectID != nil
}

// IsActive reports whether the deal belongs to the active pipeline
func (d *Deal) IsActive() bool {
	return !d.IsConverted() && d.ArchivedAt == nil
}

// WeightedValue is the deal value scaled by its win probability
func (d *Deal) WeightedValue() float64 {
	return d.Value * float64(d.Probability) / 100
}

// DealStageHistory tracks stage changes for audit purposes
type DealStageHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DealID    uuid.UUID  `gorm:"type:uuid;not null;index;column:deal_id"`
	FromStage *DealStage `gorm:"type:varchar(50);column:from_stage"`
	ToStage   DealStage  `gorm:"type:varchar(50);not null;column:to_stage"`
	Notes     string     `gorm:"type:text"`
	ChangedAt time.Time  `gorm:"not null;column:changed_at"`
}

// TableName overrides the default table name to match the migration
func (DealStageHistory) TableName() string {
	return "deal_stage_history"
}

// BeforeCreate assigns a fresh identifier when none is set
func (h *DealStageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// ProjectStatus represents the status of a project
type ProjectStatus string

const (
	ProjectStatusNotStarted ProjectStatus = "not-started"
	ProjectStatusInProgress ProjectStatus = "in-progress"
	ProjectStatusOnHold     ProjectStatus = "on-hold"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// ProjectStatuses lists every project status in lifecycle order
var ProjectStatuses = []ProjectStatus{
	ProjectStatusNotStarted,
	ProjectStatusInProgress,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

// IsValid checks if the project status is a valid value
func (s ProjectStatus) IsValid() bool {
	for _, status := range ProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Project represents a renovation job under execution
type Project struct {
	BaseModel
	ProjectNumber      string        `gorm:"type:varchar(50);not null;uniqueIndex;column:project_number"`
	Title              string        `gorm:"type:varchar(200);not null"`
	CustomerID         uuid.UUID     `gorm:"type:uuid;not null;index;column:customer_id"`
	CustomerName       string        `gorm:"type:varchar(200);column:customer_name"`
	Status             ProjectStatus `gorm:"type:varchar(50);not null;default:'not-started';index"`
	PercentComplete    int           `gorm:"type:int;not null;default:0;column:percent_complete"`
	ContractAmount     float64       `gorm:"type:decimal(15,2);not null;default:0;column:contract_amount"`
	Priority           Priority      `gorm:"type:varchar(20);not null;default:'medium'"`
	Manager            string        `gorm:"type:varchar(200)"`
	StartDate          *time.Time    `gorm:"type:date;column:start_date"`
	ExpectedCompletion *time.Time    `gorm:"type:date;column:expected_completion"`
	OriginatingDealID  *uuid.UUID    `gorm:"type:uuid;index;column:originating_deal_id"`
}

// ClampPercent keeps a completion percentage within [0,100]
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// NumberSequence tracks the last used sequence number per prefix and year.
// Numbers are issued monotonically and never reused.
type NumberSequence struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix       string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_number_sequence_prefix_year"`
	Year         int       `gorm:"not null;uniqueIndex:idx_number_sequence_prefix_year"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName overrides the default table name to match the migration
func (NumberSequence) TableName() string {
	return "number_sequences"
}

// BeforeCreate assigns a fresh identifier when none is set
func (n *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
