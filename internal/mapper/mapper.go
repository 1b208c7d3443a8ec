package mapper

import (
	"time"

	"github.com/straye-as/renovation-api/internal/domain"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

// ToCustomerDTO converts Customer to CustomerDTO
func ToCustomerDTO(customer *domain.Customer) domain.CustomerDTO {
	return domain.CustomerDTO{
		ID:           customer.ID,
		Name:         customer.Name,
		Email:        customer.Email,
		Phone:        customer.Phone,
		Address:      customer.Address,
		City:         customer.City,
		PostalCode:   customer.PostalCode,
		Status:       customer.Status,
		CustomerType: customer.CustomerType,
		Notes:        customer.Notes,
		CreatedAt:    customer.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:    customer.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToDealDTO converts Deal to DealDTO
func ToDealDTO(deal *domain.Deal) domain.DealDTO {
	return domain.DealDTO{
		ID:                   deal.ID,
		Title:                deal.Title,
		CustomerID:           deal.CustomerID,
		CustomerName:         deal.CustomerName,
		Value:                deal.Value,
		WeightedValue:        deal.WeightedValue(),
		Stage:                deal.Stage,
		Probability:          deal.Probability,
		Priority:             deal.Priority,
		ExpectedCloseDate:    formatDate(deal.ExpectedCloseDate),
		Source:               deal.Source,
		Notes:                deal.Notes,
		ConvertedToProjectID: deal.ConvertedToProjectID,
		ConvertedAt:          formatTimestamp(deal.ConvertedAt),
		Archived:             deal.ArchivedAt != nil,
		CreatedAt:            deal.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:            deal.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToDealStageHistoryDTO converts DealStageHistory to DealStageHistoryDTO
func ToDealStageHistoryDTO(history *domain.DealStageHistory) domain.DealStageHistoryDTO {
	return domain.DealStageHistoryDTO{
		ID:        history.ID,
		DealID:    history.DealID,
		FromStage: history.FromStage,
		ToStage:   history.ToStage,
		Notes:     history.Notes,
		ChangedAt: history.ChangedAt.UTC().Format(timestampLayout),
	}
}

// ToProjectDTO converts Project to ProjectDTO
func ToProjectDTO(project *domain.Project) domain.ProjectDTO {
	return domain.ProjectDTO{
		ID:                 project.ID,
		ProjectNumber:      project.ProjectNumber,
		Title:              project.Title,
		CustomerID:         project.CustomerID,
		CustomerName:       project.CustomerName,
		Status:             project.Status,
		PercentComplete:    project.PercentComplete,
		ContractAmount:     project.ContractAmount,
		Priority:           project.Priority,
		Manager:            project.Manager,
		StartDate:          formatDate(project.StartDate),
		ExpectedCompletion: formatDate(project.ExpectedCompletion),
		OriginatingDealID:  project.OriginatingDealID,
		CreatedAt:          project.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:          project.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToCustomerDTOs converts a slice of customers
func ToCustomerDTOs(customers []domain.Customer) []domain.CustomerDTO {
	dtos := make([]domain.CustomerDTO, len(customers))
	for i := range customers {
		dtos[i] = ToCustomerDTO(&customers[i])
	}
	return dtos
}

// ToDealDTOs converts a slice of deals
func ToDealDTOs(deals []domain.Deal) []domain.DealDTO {
	dtos := make([]domain.DealDTO, len(deals))
	for i := range deals {
		dtos[i] = ToDealDTO(&deals[i])
	}
	return dtos
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []domain.Project) []domain.ProjectDTO {
	dtos := make([]domain.ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = ToProjectDTO(&projects[i])
	}
	return dtos
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(dateLayout)
	return &s
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timestampLayout)
	return &s
}
