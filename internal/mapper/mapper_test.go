package mapper_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDealDTO(t *testing.T) {
	oslo := time.FixedZone("CET", 3600)
	closeDate := time.Date(2024, 6, 30, 0, 30, 0, 0, oslo)
	projectID := uuid.New()
	convertedAt := time.Date(2024, 7, 1, 9, 15, 0, 0, time.UTC)

	deal := &domain.Deal{
		Title:                "Tak",
		Value:                200000,
		Stage:                domain.DealStageWon,
		Probability:          100,
		ExpectedCloseDate:    &closeDate,
		ConvertedToProjectID: &projectID,
		ConvertedAt:          &convertedAt,
		ArchivedAt:           &convertedAt,
	}
	deal.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	dto := mapper.ToDealDTO(deal)
	assert.InDelta(t, 200000, dto.WeightedValue, 0.001)
	require.NotNil(t, dto.ExpectedCloseDate)
	assert.Equal(t, "2024-06-29", *dto.ExpectedCloseDate, "dates are rendered in UTC")
	require.NotNil(t, dto.ConvertedAt)
	assert.Equal(t, "2024-07-01T09:15:00Z", *dto.ConvertedAt)
	assert.True(t, dto.Archived)
	assert.Equal(t, "2024-01-02T03:04:05Z", dto.CreatedAt)
}

func TestToDealDTO_Active(t *testing.T) {
	dto := mapper.ToDealDTO(&domain.Deal{Value: 1000, Probability: 25})
	assert.InDelta(t, 250, dto.WeightedValue, 0.001)
	assert.Nil(t, dto.ExpectedCloseDate)
	assert.Nil(t, dto.ConvertedAt)
	assert.False(t, dto.Archived)
}

func TestToProjectDTOs(t *testing.T) {
	dealID := uuid.New()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	projects := []domain.Project{
		{ProjectNumber: "CR-2024-001", Title: "Bad", OriginatingDealID: &dealID, StartDate: &start},
		{ProjectNumber: "CR-2024-002", Title: "Kjøkken"},
	}

	dtos := mapper.ToProjectDTOs(projects)
	require.Len(t, dtos, 2)
	assert.Equal(t, &dealID, dtos[0].OriginatingDealID)
	require.NotNil(t, dtos[0].StartDate)
	assert.Equal(t, "2024-03-01", *dtos[0].StartDate)
	assert.Nil(t, dtos[1].OriginatingDealID)

	assert.Empty(t, mapper.ToCustomerDTOs(nil))
}

func TestToDealStageHistoryDTO(t *testing.T) {
	from := domain.DealStageNew
	dto := mapper.ToDealStageHistoryDTO(&domain.DealStageHistory{
		FromStage: &from,
		ToStage:   domain.DealStageQualified,
		Notes:     "call booked",
		ChangedAt: time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, &from, dto.FromStage)
	assert.Equal(t, "2024-02-02T10:00:00Z", dto.ChangedAt)
}
