package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/repository"
	"github.com/straye-as/renovation-api/internal/service"
	"github.com/straye-as/renovation-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDealService_Create(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Hansen")

	t.Run("defaults and initial history", func(t *testing.T) {
		deal, err := svc.deals.Create(ctx, &domain.CreateDealRequest{
			Title:      "Kitchen renovation",
			CustomerID: customer.ID,
			Value:      120000,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DealStageNew, deal.Stage)
		assert.Equal(t, 10, deal.Probability)
		assert.Equal(t, domain.PriorityMedium, deal.Priority)
		assert.Equal(t, "Hansen", deal.CustomerName)
		assert.InDelta(t, 12000, deal.WeightedValue, 0.001)
		assert.False(t, deal.Archived)

		history, err := svc.deals.GetStageHistory(ctx, deal.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Nil(t, history[0].FromStage)
		assert.Equal(t, domain.DealStageNew, history[0].ToStage)
		assert.Equal(t, "Deal created", history[0].Notes)
	})

	t.Run("stage sets probability", func(t *testing.T) {
		deal, err := svc.deals.Create(ctx, &domain.CreateDealRequest{
			Title:      "Roof",
			CustomerID: customer.ID,
			Stage:      domain.DealStageNegotiation,
		})
		require.NoError(t, err)
		assert.Equal(t, 75, deal.Probability)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := svc.deals.Create(ctx, &domain.CreateDealRequest{Title: "Ghost", CustomerID: uuid.New()})
		assert.ErrorIs(t, err, service.ErrReferential)

		var re *service.ReferentialError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "customer_id", re.Field)
	})

	t.Run("negative value", func(t *testing.T) {
		_, err := svc.deals.Create(ctx, &domain.CreateDealRequest{Title: "Bad", CustomerID: customer.ID, Value: -1})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestDealService_ChangeStage(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Berg")
	deal := testutil.CreateTestDeal(t, svc.db, customer, "Bathroom", 50000)

	updated, err := svc.deals.ChangeStage(ctx, deal.ID, &domain.UpdateDealStageRequest{
		Stage: domain.DealStageProposal,
		Notes: "Sent offer",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DealStageProposal, updated.Stage)
	assert.Equal(t, 50, updated.Probability)

	history, err := svc.deals.GetStageHistory(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].FromStage)
	assert.Equal(t, domain.DealStageNew, *history[0].FromStage)
	assert.Equal(t, domain.DealStageProposal, history[0].ToStage)
	assert.Equal(t, "Sent offer", history[0].Notes)

	t.Run("backwards is allowed", func(t *testing.T) {
		updated, err := svc.deals.ChangeStage(ctx, deal.ID, &domain.UpdateDealStageRequest{Stage: domain.DealStageQualified})
		require.NoError(t, err)
		assert.Equal(t, 25, updated.Probability)
	})

	t.Run("same stage records nothing", func(t *testing.T) {
		before, err := svc.deals.GetStageHistory(ctx, deal.ID)
		require.NoError(t, err)

		_, err = svc.deals.ChangeStage(ctx, deal.ID, &domain.UpdateDealStageRequest{Stage: domain.DealStageQualified})
		require.NoError(t, err)

		after, err := svc.deals.GetStageHistory(ctx, deal.ID)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("unknown stage", func(t *testing.T) {
		_, err := svc.deals.ChangeStage(ctx, deal.ID, &domain.UpdateDealStageRequest{Stage: "closed"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown deal", func(t *testing.T) {
		_, err := svc.deals.ChangeStage(ctx, uuid.New(), &domain.UpdateDealStageRequest{Stage: domain.DealStageWon})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDealService_Update(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Lie")
	deal := testutil.CreateTestDeal(t, svc.db, customer, "Attic", 10000)

	value := 15000.0
	stage := domain.DealStageWon
	updated, err := svc.deals.Update(ctx, deal.ID, &domain.UpdateDealRequest{Value: &value, Stage: &stage})
	require.NoError(t, err)
	assert.Equal(t, "Attic", updated.Title)
	assert.Equal(t, 15000.0, updated.Value)
	assert.Equal(t, domain.DealStageWon, updated.Stage)
	assert.Equal(t, 100, updated.Probability)
	assert.Nil(t, updated.ConvertedToProjectID)

	history, err := svc.deals.GetStageHistory(ctx, deal.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDealService_Delete(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Dahl")

	deal, err := svc.deals.Create(ctx, &domain.CreateDealRequest{Title: "Basement", CustomerID: customer.ID})
	require.NoError(t, err)

	require.NoError(t, svc.deals.Delete(ctx, deal.ID))

	_, err = svc.deals.GetByID(ctx, deal.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	err = svc.deals.Delete(ctx, deal.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.False(t, service.IsRetryable(err))

	t.Run("customer becomes deletable", func(t *testing.T) {
		assert.NoError(t, svc.customers.Delete(ctx, customer.ID))
	})
}

func TestDealService_ConvertToProject(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Johansen")

	closeDate := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	deal, err := svc.deals.Create(ctx, &domain.CreateDealRequest{
		Title:             "Full house renovation",
		CustomerID:        customer.ID,
		Value:             850000,
		Stage:             domain.DealStageNegotiation,
		Priority:          domain.PriorityHigh,
		ExpectedCloseDate: &closeDate,
	})
	require.NoError(t, err)

	result, err := svc.deals.ConvertToProject(ctx, deal.ID)
	require.NoError(t, err)

	project := result.Project
	assert.Equal(t, fmt.Sprintf("CR-%d-001", time.Now().UTC().Year()), project.ProjectNumber)
	assert.True(t, service.ValidateProjectNumber(project.ProjectNumber))
	assert.Equal(t, "Full house renovation", project.Title)
	assert.Equal(t, customer.ID, project.CustomerID)
	assert.Equal(t, "Johansen", project.CustomerName)
	assert.Equal(t, domain.ProjectStatusNotStarted, project.Status)
	assert.Equal(t, 0, project.PercentComplete)
	assert.Equal(t, 850000.0, project.ContractAmount)
	assert.Equal(t, domain.PriorityHigh, project.Priority)
	require.NotNil(t, project.ExpectedCompletion)
	assert.Equal(t, "2026-05-01", *project.ExpectedCompletion)
	require.NotNil(t, project.OriginatingDealID)
	assert.Equal(t, deal.ID, *project.OriginatingDealID)

	converted := result.Deal
	assert.Equal(t, domain.DealStageWon, converted.Stage)
	assert.Equal(t, 100, converted.Probability)
	assert.True(t, converted.Archived)
	require.NotNil(t, converted.ConvertedToProjectID)
	assert.Equal(t, project.ID, *converted.ConvertedToProjectID)
	assert.NotNil(t, converted.ConvertedAt)

	t.Run("project is persisted", func(t *testing.T) {
		stored, err := svc.projects.GetByID(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, project.ProjectNumber, stored.ProjectNumber)
	})

	t.Run("history records the conversion", func(t *testing.T) {
		history, err := svc.deals.GetStageHistory(ctx, deal.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)

		var found bool
		for _, h := range history {
			if strings.Contains(h.Notes, "Converted to project "+project.ProjectNumber) {
				found = true
				assert.Equal(t, domain.DealStageWon, h.ToStage)
			}
		}
		assert.True(t, found)
	})

	t.Run("converted deal leaves the active list", func(t *testing.T) {
		active, err := svc.deals.List(ctx, 1, 20, domain.ListQuery{}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(0), active.Total)

		all, err := svc.deals.List(ctx, 1, 20, domain.ListQuery{}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), all.Total)

		stored, err := svc.deals.GetByID(ctx, deal.ID)
		require.NoError(t, err)
		assert.True(t, stored.Archived)
	})

	t.Run("converted deal is terminal", func(t *testing.T) {
		title := "Renamed"
		_, err := svc.deals.Update(ctx, deal.ID, &domain.UpdateDealRequest{Title: &title})
		assert.ErrorIs(t, err, service.ErrTerminalState)

		_, err = svc.deals.ChangeStage(ctx, deal.ID, &domain.UpdateDealStageRequest{Stage: domain.DealStageLost})
		assert.ErrorIs(t, err, service.ErrTerminalState)

		err = svc.deals.Delete(ctx, deal.ID)
		assert.ErrorIs(t, err, service.ErrTerminalState)

		_, err = svc.deals.ConvertToProject(ctx, deal.ID)
		assert.ErrorIs(t, err, service.ErrTerminalState)

		var te *service.TerminalStateError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, project.ID, te.ProjectID)
	})

	t.Run("originating project cannot be deleted", func(t *testing.T) {
		err := svc.projects.Delete(ctx, project.ID)
		assert.ErrorIs(t, err, service.ErrReferential)
	})

	t.Run("customer cannot be deleted", func(t *testing.T) {
		err := svc.customers.Delete(ctx, customer.ID)
		assert.ErrorIs(t, err, service.ErrReferential)
	})

	t.Run("unknown deal", func(t *testing.T) {
		_, err := svc.deals.ConvertToProject(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDealService_ConvertToProject_NumbersIncrease(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Moe")

	var numbers []string
	for i := 0; i < 3; i++ {
		deal := testutil.CreateTestDeal(t, svc.db, customer, fmt.Sprintf("Deal %d", i), 1000)
		result, err := svc.deals.ConvertToProject(ctx, deal.ID)
		require.NoError(t, err)
		numbers = append(numbers, result.Project.ProjectNumber)
	}

	year := time.Now().UTC().Year()
	assert.Equal(t, []string{
		fmt.Sprintf("CR-%d-001", year),
		fmt.Sprintf("CR-%d-002", year),
		fmt.Sprintf("CR-%d-003", year),
	}, numbers)

	current, err := svc.numbers.GetCurrentSequence(ctx, year)
	require.NoError(t, err)
	assert.Equal(t, 3, current)
}

func TestDealService_GetPipelineStats(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Strand")

	for _, req := range []domain.CreateDealRequest{
		{Title: "A", CustomerID: customer.ID, Value: 1000, Stage: domain.DealStageNew},
		{Title: "B", CustomerID: customer.ID, Value: 2000, Stage: domain.DealStageProposal},
	} {
		req := req
		_, err := svc.deals.Create(ctx, &req)
		require.NoError(t, err)
	}
	converted, err := svc.deals.Create(ctx, &domain.CreateDealRequest{
		Title: "C", CustomerID: customer.ID, Value: 4000, Stage: domain.DealStageNegotiation,
	})
	require.NoError(t, err)
	_, err = svc.deals.ConvertToProject(ctx, converted.ID)
	require.NoError(t, err)

	stats, err := svc.deals.GetPipelineStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDeals)
	assert.InDelta(t, 3000, stats.TotalValue, 0.001)
	assert.InDelta(t, 1100, stats.WeightedValue, 0.001)
	require.Len(t, stats.ByStage, len(domain.DealStages))

	for _, s := range stats.ByStage {
		switch s.Stage {
		case domain.DealStageNew, domain.DealStageProposal:
			assert.Equal(t, 1, s.Count, s.Stage)
		default:
			assert.Equal(t, 0, s.Count, s.Stage)
		}
	}
}

func TestDealService_List(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	alice := testutil.CreateTestCustomer(t, svc.db, "Alice")
	bob := testutil.CreateTestCustomer(t, svc.db, "Bob")

	for _, req := range []domain.CreateDealRequest{
		{Title: "Kitchen", CustomerID: alice.ID, Value: 100000, Priority: domain.PriorityHigh},
		{Title: "Garden", CustomerID: alice.ID, Value: 20000, Priority: domain.PriorityLow},
		{Title: "Kitchen island", CustomerID: bob.ID, Value: 40000, Priority: domain.PriorityHigh},
	} {
		req := req
		_, err := svc.deals.Create(ctx, &req)
		require.NoError(t, err)
	}

	t.Run("search by customer name", func(t *testing.T) {
		resp, err := svc.deals.List(ctx, 1, 20, domain.ListQuery{Search: "alice"}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)
	})

	t.Run("search and value range", func(t *testing.T) {
		resp, err := svc.deals.List(ctx, 1, 20, domain.ListQuery{
			Search:  "kitchen",
			Filters: map[string]any{"value": map[string]any{"min": 50000}},
		}, false)
		require.NoError(t, err)
		deals := resp.Data.([]domain.DealDTO)
		require.Len(t, deals, 1)
		assert.Equal(t, "Kitchen", deals[0].Title)
	})

	t.Run("multi-select priority", func(t *testing.T) {
		resp, err := svc.deals.List(ctx, 1, 20, domain.ListQuery{
			Filters: map[string]any{"priority": []any{"high", "urgent"}},
		}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)
	})

	t.Run("unknown filter field matches nothing", func(t *testing.T) {
		resp, err := svc.deals.List(ctx, 1, 20, domain.ListQuery{
			Filters: map[string]any{"colour": "red"},
		}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.Total)
	})
}

func TestDealService_Import(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	existing := testutil.CreateTestCustomer(t, svc.db, "Existing")

	result, err := svc.deals.Import(ctx, []map[string]any{
		{"title": "Bathroom", "customerEmail": "Nina@Example.com", "customerName": "Nina", "value": "1500"},
		{"title": "Roof", "customer_email": "nina@example.com", "value": 2000, "stage": "proposal"},
		{"title": "Orphan"},
		{"title": "Broken", "customerId": "not-a-uuid"},
		{"title": "Known", "customer_id": existing.ID.String(), "expected_close_date": "2026-09-30"},
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 3)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, 3, result.Failed[0].Row)
	assert.Equal(t, 4, result.Failed[1].Row)

	bathroom, err := svc.deals.GetByID(ctx, result.Created[0])
	require.NoError(t, err)
	roof, err := svc.deals.GetByID(ctx, result.Created[1])
	require.NoError(t, err)
	assert.Equal(t, bathroom.CustomerID, roof.CustomerID)
	assert.Equal(t, "Nina", bathroom.CustomerName)
	assert.Equal(t, 1500.0, bathroom.Value)
	assert.Equal(t, domain.DealStageProposal, roof.Stage)
	assert.Equal(t, 50, roof.Probability)

	known, err := svc.deals.GetByID(ctx, result.Created[2])
	require.NoError(t, err)
	assert.Equal(t, existing.ID, known.CustomerID)
	require.NotNil(t, known.ExpectedCloseDate)
	assert.Equal(t, "2026-09-30", *known.ExpectedCloseDate)
}

func TestDealService_ConvertToProject_FailureRollsBack(t *testing.T) {
	svc := setupServices(t)
	ctx := context.Background()
	customer := testutil.CreateTestCustomer(t, svc.db, "Lie")
	deal := testutil.CreateTestDeal(t, svc.db, customer, "Attic", 40000)

	// the history insert is the last write of a conversion
	require.NoError(t, svc.db.Migrator().DropTable(&domain.DealStageHistory{}))

	_, err := svc.deals.ConvertToProject(ctx, deal.ID)
	require.Error(t, err)

	var projects int64
	require.NoError(t, svc.db.Model(&domain.Project{}).Count(&projects).Error)
	assert.Zero(t, projects)

	var stored domain.Deal
	require.NoError(t, svc.db.First(&stored, "id = ?", deal.ID).Error)
	assert.Equal(t, domain.DealStageNew, stored.Stage)
	assert.Nil(t, stored.ConvertedToProjectID)
	assert.Nil(t, stored.ConvertedAt)
	assert.Nil(t, stored.ArchivedAt)

	current, err := svc.numbers.GetCurrentSequence(ctx, time.Now().UTC().Year())
	require.NoError(t, err)
	assert.Equal(t, 0, current, "the project number is released")
}

type countingRecorder struct {
	mu          sync.Mutex
	stages      int
	conversions int
}

func (r *countingRecorder) ObserveBatch(string, string, bulk.Policy, int, int, time.Duration) {}
func (r *countingRecorder) ObserveExport(error)                                           {}
func (r *countingRecorder) ObserveImport(string, int, int)                                {}

func (r *countingRecorder) ObserveStageChange(string) {
	r.mu.Lock()
	r.stages++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveConversion(err error) {
	if err != nil {
		return
	}
	r.mu.Lock()
	r.conversions++
	r.mu.Unlock()
}

func TestDealService_MetricsFollowCommit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	ctx := context.Background()
	rec := &countingRecorder{}

	customerRepo := repository.NewCustomerRepository(db)
	dealRepo := repository.NewDealRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), logger)
	customers := service.NewCustomerService(customerRepo, dealRepo, projectRepo, nil, logger, db)
	deals := service.NewDealService(dealRepo, repository.NewDealStageHistoryRepository(db), customerRepo, projectRepo,
		customers, numbers, rec, logger, db)

	customer := testutil.CreateTestCustomer(t, db, "Strand")
	deal := testutil.CreateTestDeal(t, db, customer, "Garage", 90000)
	errAbort := errors.New("abort")

	err := database.RunInTx(ctx, db, func(ctx context.Context) error {
		if _, err := deals.ChangeStage(ctx, deal.ID, &domain.UpdateDealStageRequest{Stage: domain.DealStageProposal}); err != nil {
			return err
		}
		if _, err := deals.ConvertToProject(ctx, deal.ID); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	assert.Zero(t, rec.stages, "rolled back stage changes are not counted")
	assert.Zero(t, rec.conversions, "rolled back conversions are not counted")

	_, err = deals.ChangeStage(ctx, deal.ID, &domain.UpdateDealStageRequest{Stage: domain.DealStageProposal})
	require.NoError(t, err)
	_, err = deals.ConvertToProject(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.stages)
	assert.Equal(t, 1, rec.conversions)
}
