package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/filter"
	"github.com/straye-as/renovation-api/internal/mapper"
	"github.com/straye-as/renovation-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Default probabilities by stage
var stageProbabilities = map[domain.DealStage]int{
	domain.DealStageNew:         10,
	domain.DealStageQualified:   25,
	domain.DealStageProposal:    50,
	domain.DealStageNegotiation: 75,
	domain.DealStageWon:         100,
	domain.DealStageLost:        0,
}

// StageProbability returns the win probability implied by a stage
func StageProbability(stage domain.DealStage) int {
	return stageProbabilities[stage]
}

// DealService runs the sales pipeline. Transitions are permissive: any stage
// can be reached from any other until the deal is converted to a project,
// after which it is read only.
type DealService struct {
	dealRepo     *repository.DealRepository
	historyRepo  *repository.DealStageHistoryRepository
	customerRepo *repository.CustomerRepository
	projectRepo  *repository.ProjectRepository
	customers    *CustomerService
	numbers      *NumberSequenceService
	recorder     Recorder
	logger       *zap.Logger
	db           *gorm.DB
}

func NewDealService(
	dealRepo *repository.DealRepository,
	historyRepo *repository.DealStageHistoryRepository,
	customerRepo *repository.CustomerRepository,
	projectRepo *repository.ProjectRepository,
	customers *CustomerService,
	numbers *NumberSequenceService,
	recorder Recorder,
	logger *zap.Logger,
	db *gorm.DB,
) *DealService {
	return &DealService{
		dealRepo:     dealRepo,
		historyRepo:  historyRepo,
		customerRepo: customerRepo,
		projectRepo:  projectRepo,
		customers:    customers,
		numbers:      numbers,
		recorder:     recorderOrNop(recorder),
		logger:       logger,
		db:           db,
	}
}

func (s *DealService) Create(ctx context.Context, req *domain.CreateDealRequest) (*domain.DealDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	var deal *domain.Deal
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ReferentialError{Entity: "deal", Field: "customer_id", ID: req.CustomerID, Reason: "customer does not exist"}
		}
		if err != nil {
			return fmt.Errorf("failed to get customer: %w", err)
		}

		stage := req.Stage
		if stage == "" {
			stage = domain.DealStageNew
		}
		priority := req.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}

		deal = &domain.Deal{
			Title:             req.Title,
			CustomerID:        customer.ID,
			CustomerName:      customer.Name,
			Value:             req.Value,
			Stage:             stage,
			Probability:       stageProbabilities[stage],
			Priority:          priority,
			ExpectedCloseDate: req.ExpectedCloseDate,
			Source:            req.Source,
			Notes:             req.Notes,
		}
		if err := s.dealRepo.Create(ctx, deal); err != nil {
			return fmt.Errorf("failed to create deal: %w", err)
		}

		// Record initial stage history
		if err := s.historyRepo.RecordTransition(ctx, deal.ID, nil, stage, "Deal created"); err != nil {
			return fmt.Errorf("failed to record stage history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deal created",
		zap.String("deal_id", deal.ID.String()),
		zap.String("customer_id", deal.CustomerID.String()))

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// GetByID returns a deal, converted or not
func (s *DealService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "deal", id)
	}

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// Update merges the supplied fields. A supplied stage goes through the
// same transition as ChangeStage.
func (s *DealService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDealRequest) (*domain.DealDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	var deal *domain.Deal
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		deal, err = s.loadMutable(ctx, id, "update")
		if err != nil {
			return err
		}

		if req.Title != nil {
			deal.Title = *req.Title
		}
		if req.Value != nil {
			deal.Value = *req.Value
		}
		if req.Priority != nil {
			deal.Priority = *req.Priority
		}
		if req.ExpectedCloseDate != nil {
			deal.ExpectedCloseDate = req.ExpectedCloseDate
		}
		if req.Source != nil {
			deal.Source = *req.Source
		}
		if req.Notes != nil {
			deal.Notes = *req.Notes
		}
		if req.Stage != nil && *req.Stage != deal.Stage {
			if err := s.transition(ctx, deal, *req.Stage, ""); err != nil {
				return err
			}
		}

		if err := s.dealRepo.Update(ctx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// ChangeStage moves a deal to another stage and records the transition.
// Requesting the current stage changes nothing.
func (s *DealService) ChangeStage(ctx context.Context, id uuid.UUID, req *domain.UpdateDealStageRequest) (*domain.DealDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	var (
		deal    *domain.Deal
		changed bool
	)
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		deal, err = s.loadMutable(ctx, id, "change stage of")
		if err != nil {
			return err
		}
		if deal.Stage == req.Stage {
			return nil
		}

		if err := s.transition(ctx, deal, req.Stage, req.Notes); err != nil {
			return err
		}
		if err := s.dealRepo.Update(ctx, deal); err != nil {
			return fmt.Errorf("failed to update deal stage: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		stage := string(req.Stage)
		database.AfterCommit(ctx, func() { s.recorder.ObserveStageChange(stage) })
		s.logger.Info("deal stage changed",
			zap.String("deal_id", id.String()),
			zap.String("stage", string(req.Stage)))
	}

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// Delete removes a deal and its stage history. Deleting twice fails with
// NotFoundError; converted deals cannot be deleted.
func (s *DealService) Delete(ctx context.Context, id uuid.UUID) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.loadMutable(ctx, id, "delete"); err != nil {
			return err
		}
		if err := s.historyRepo.DeleteByDealID(ctx, id); err != nil {
			return fmt.Errorf("failed to delete stage history: %w", err)
		}
		if err := s.dealRepo.Delete(ctx, id); err != nil {
			return notFoundOr(err, "deal", id)
		}
		s.logger.Info("deal deleted", zap.String("deal_id", id.String()))
		return nil
	})
}

// ConvertToProject turns a deal into a project. The project takes the deal's
// title, value, priority and expected close date; the deal is marked won,
// linked to the project and archived. Everything commits together or not at all.
func (s *DealService) ConvertToProject(ctx context.Context, id uuid.UUID) (*domain.ConversionResultDTO, error) {
	var (
		deal    *domain.Deal
		project *domain.Project
	)
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		deal, err = s.dealRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "deal", id)
		}
		if deal.IsConverted() {
			return &TerminalStateError{Entity: "deal", ID: id, Operation: "convert", ProjectID: *deal.ConvertedToProjectID}
		}

		customer, err := s.customerRepo.GetByID(ctx, deal.CustomerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ReferentialError{Entity: "deal", Field: "customer_id", ID: deal.CustomerID, Reason: "customer does not exist"}
		}
		if err != nil {
			return fmt.Errorf("failed to get customer: %w", err)
		}

		number, err := s.numbers.GenerateProjectNumber(ctx)
		if err != nil {
			return err
		}

		project = &domain.Project{
			ProjectNumber:      number,
			Title:              deal.Title,
			CustomerID:         customer.ID,
			CustomerName:       customer.Name,
			Status:             domain.ProjectStatusNotStarted,
			PercentComplete:    0,
			ContractAmount:     deal.Value,
			Priority:           deal.Priority,
			ExpectedCompletion: deal.ExpectedCloseDate,
			OriginatingDealID:  &deal.ID,
		}
		if err := s.projectRepo.Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		from := deal.Stage
		now := time.Now().UTC()
		deal.ConvertedToProjectID = &project.ID
		deal.ConvertedAt = &now
		deal.ArchivedAt = &now
		deal.Stage = domain.DealStageWon
		deal.Probability = stageProbabilities[domain.DealStageWon]
		if err := s.dealRepo.Update(ctx, deal); err != nil {
			return fmt.Errorf("failed to mark deal converted: %w", err)
		}

		notes := fmt.Sprintf("Converted to project %s", number)
		if err := s.historyRepo.RecordTransition(ctx, deal.ID, &from, domain.DealStageWon, notes); err != nil {
			return fmt.Errorf("failed to record stage history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.recorder.ObserveConversion(err)
		s.logger.Warn("deal conversion failed", zap.String("deal_id", id.String()), zap.Error(err))
		return nil, err
	}

	database.AfterCommit(ctx, func() { s.recorder.ObserveConversion(nil) })
	s.logger.Info("deal converted to project",
		zap.String("deal_id", deal.ID.String()),
		zap.String("project_id", project.ID.String()),
		zap.String("project_number", project.ProjectNumber))

	return &domain.ConversionResultDTO{
		Deal:    mapper.ToDealDTO(deal),
		Project: mapper.ToProjectDTO(project),
	}, nil
}

// GetStageHistory returns the transitions of a deal, most recent first
func (s *DealService) GetStageHistory(ctx context.Context, dealID uuid.UUID) ([]domain.DealStageHistoryDTO, error) {
	if _, err := s.dealRepo.GetByID(ctx, dealID); err != nil {
		return nil, notFoundOr(err, "deal", dealID)
	}

	history, err := s.historyRepo.GetByDealID(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage history: %w", err)
	}

	dtos := make([]domain.DealStageHistoryDTO, len(history))
	for i := range history {
		dtos[i] = mapper.ToDealStageHistoryDTO(&history[i])
	}
	return dtos, nil
}

// GetPipelineStats summarises active deals per stage. Converted and archived
// deals are left out. Every stage is listed, empty ones with zeros.
func (s *DealService) GetPipelineStats(ctx context.Context) (*domain.PipelineStatsDTO, error) {
	rows, err := s.dealRepo.AggregateActiveByStage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate pipeline: %w", err)
	}

	byStage := make(map[domain.DealStage]repository.StageAggregate, len(rows))
	for _, row := range rows {
		byStage[row.Stage] = row
	}

	stats := &domain.PipelineStatsDTO{ByStage: make([]domain.StagePipelineStats, 0, len(domain.DealStages))}
	for _, stage := range domain.DealStages {
		row := byStage[stage]
		stats.ByStage = append(stats.ByStage, domain.StagePipelineStats{
			Stage:         stage,
			Count:         int(row.Count),
			TotalValue:    row.TotalValue,
			WeightedValue: row.WeightedValue,
		})
		stats.TotalDeals += int(row.Count)
		stats.TotalValue += row.TotalValue
		stats.WeightedValue += row.WeightedValue
	}
	return stats, nil
}

// Search returns the deals matching the query in creation order.
// Converted deals are only included when includeInactive is set.
func (s *DealService) Search(ctx context.Context, query domain.ListQuery, includeInactive bool) ([]domain.Deal, error) {
	active, err := parseQuery(query)
	if err != nil {
		return nil, err
	}
	deals, err := s.dealRepo.List(ctx, repository.DealListOptions{IncludeInactive: includeInactive})
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return filter.Apply(deals, query.Search, active, DealFields, DealSearchFields), nil
}

func (s *DealService) List(ctx context.Context, page, pageSize int, query domain.ListQuery, includeInactive bool) (*domain.PaginatedResponse, error) {
	deals, err := s.Search(ctx, query, includeInactive)
	if err != nil {
		return nil, err
	}

	pageItems, resp := paginate(deals, page, pageSize)
	resp.Data = mapper.ToDealDTOs(pageItems)
	return resp, nil
}

// dealImportRow names the customer of an imported deal when no id is given
type dealImportRow struct {
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
}

// Import creates one deal per row. A row may reference its customer by
// customerId, or by customerEmail/customerName, in which case the customer is
// found or created explicitly. Each row commits on its own.
func (s *DealService) Import(ctx context.Context, rows []map[string]any) (*domain.ImportResultDTO, error) {
	result := &domain.ImportResultDTO{
		Created: make([]uuid.UUID, 0, len(rows)),
		Failed:  make([]domain.ImportRowError, 0),
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, err := s.importRow(ctx, row)
		if err != nil {
			result.Failed = append(result.Failed, importRowError(i, err))
			continue
		}
		result.Created = append(result.Created, id)
	}

	s.recorder.ObserveImport("deals", len(result.Created), len(result.Failed))
	s.logger.Info("deal import finished",
		zap.Int("created", len(result.Created)),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}

func (s *DealService) importRow(ctx context.Context, row map[string]any) (uuid.UUID, error) {
	var req domain.CreateDealRequest
	if err := decodeRow(row, &req); err != nil {
		return uuid.Nil, &ValidationError{Err: err}
	}
	var ref dealImportRow
	if err := decodeRow(row, &ref); err != nil {
		return uuid.Nil, &ValidationError{Err: err}
	}

	var created *domain.DealDTO
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if req.CustomerID == uuid.Nil {
			if ref.CustomerName == "" && ref.CustomerEmail == "" {
				return newFieldError("customerId", "customerId, customerEmail or customerName is required")
			}
			name := ref.CustomerName
			if name == "" {
				name = ref.CustomerEmail
			}
			customer, _, err := s.customers.FindOrCreate(ctx, &domain.FindOrCreateCustomerRequest{
				Name:  name,
				Email: ref.CustomerEmail,
			})
			if err != nil {
				return err
			}
			req.CustomerID = customer.ID
		}

		var err error
		created, err = s.Create(ctx, &req)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

// loadMutable loads a deal that is about to change, rejecting converted ones
func (s *DealService) loadMutable(ctx context.Context, id uuid.UUID, operation string) (*domain.Deal, error) {
	deal, err := s.dealRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "deal", id)
	}
	if deal.IsConverted() {
		return nil, &TerminalStateError{Entity: "deal", ID: id, Operation: operation, ProjectID: *deal.ConvertedToProjectID}
	}
	return deal, nil
}

// transition sets the stage and its probability and records history.
// The caller persists the deal.
func (s *DealService) transition(ctx context.Context, deal *domain.Deal, to domain.DealStage, notes string) error {
	if !to.IsValid() {
		return newFieldError("stage", fmt.Sprintf("unknown stage %q", to))
	}
	from := deal.Stage
	deal.Stage = to
	deal.Probability = stageProbabilities[to]

	if err := s.historyRepo.RecordTransition(ctx, deal.ID, &from, to, notes); err != nil {
		return fmt.Errorf("failed to record stage history: %w", err)
	}
	return nil
}
