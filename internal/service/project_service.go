package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/filter"
	"github.com/straye-as/renovation-api/internal/mapper"
	"github.com/straye-as/renovation-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProjectService struct {
	projectRepo  *repository.ProjectRepository
	customerRepo *repository.CustomerRepository
	numbers      *NumberSequenceService
	logger       *zap.Logger
	db           *gorm.DB
}

func NewProjectService(
	projectRepo *repository.ProjectRepository,
	customerRepo *repository.CustomerRepository,
	numbers *NumberSequenceService,
	logger *zap.Logger,
	db *gorm.DB,
) *ProjectService {
	return &ProjectService{
		projectRepo:  projectRepo,
		customerRepo: customerRepo,
		numbers:      numbers,
		logger:       logger,
		db:           db,
	}
}

// Create stores a new project with the next project number
func (s *ProjectService) Create(ctx context.Context, req *domain.CreateProjectRequest) (*domain.ProjectDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	var project *domain.Project
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ReferentialError{Entity: "project", Field: "customer_id", ID: req.CustomerID, Reason: "customer does not exist"}
		}
		if err != nil {
			return fmt.Errorf("failed to get customer: %w", err)
		}

		number, err := s.numbers.GenerateProjectNumber(ctx)
		if err != nil {
			return err
		}

		priority := req.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}

		project = &domain.Project{
			ProjectNumber:      number,
			Title:              req.Title,
			CustomerID:         customer.ID,
			CustomerName:       customer.Name,
			Status:             domain.ProjectStatusNotStarted,
			PercentComplete:    domain.ClampPercent(req.PercentComplete),
			ContractAmount:     req.ContractAmount,
			Priority:           priority,
			Manager:            req.Manager,
			StartDate:          req.StartDate,
			ExpectedCompletion: req.ExpectedCompletion,
		}
		if req.Status != "" {
			applyStatus(project, req.Status)
		}

		if err := s.projectRepo.Create(ctx, project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("project_number", project.ProjectNumber))

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

func (s *ProjectService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectDTO, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "project", id)
	}

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// Update merges the supplied fields. The percentage is clamped to [0,100].
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateProjectRequest) (*domain.ProjectDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	var project *domain.Project
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		project, err = s.projectRepo.GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "project", id)
		}

		if req.Title != nil {
			project.Title = *req.Title
		}
		if req.PercentComplete != nil {
			project.PercentComplete = domain.ClampPercent(*req.PercentComplete)
		}
		if req.ContractAmount != nil {
			project.ContractAmount = *req.ContractAmount
		}
		if req.Priority != nil {
			project.Priority = *req.Priority
		}
		if req.Manager != nil {
			project.Manager = *req.Manager
		}
		if req.StartDate != nil {
			project.StartDate = req.StartDate
		}
		if req.ExpectedCompletion != nil {
			project.ExpectedCompletion = req.ExpectedCompletion
		}
		if req.Status != nil {
			applyStatus(project, *req.Status)
		}

		if err := s.projectRepo.Update(ctx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToProjectDTO(project)
	return &dto, nil
}

// UpdateStatus sets the project status. Completing a project sets it to 100%.
func (s *ProjectService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) (*domain.ProjectDTO, error) {
	req := &domain.UpdateProjectStatusRequest{Status: status}
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}
	return s.Update(ctx, id, &domain.UpdateProjectRequest{Status: &status})
}

// Delete removes a project. A project created by converting a deal cannot be
// deleted, since the deal keeps pointing at it.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		project, err := s.projectRepo.GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "project", id)
		}
		if project.OriginatingDealID != nil {
			return &ReferentialError{
				Entity: "project",
				Field:  "originating_deal_id",
				ID:     *project.OriginatingDealID,
				Reason: "project was converted from this deal",
			}
		}

		if err := s.projectRepo.Delete(ctx, id); err != nil {
			return notFoundOr(err, "project", id)
		}
		s.logger.Info("project deleted", zap.String("project_id", id.String()))
		return nil
	})
}

// Search returns every project matching the query, in creation order
func (s *ProjectService) Search(ctx context.Context, query domain.ListQuery) ([]domain.Project, error) {
	active, err := parseQuery(query)
	if err != nil {
		return nil, err
	}
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return filter.Apply(projects, query.Search, active, ProjectFields, ProjectSearchFields), nil
}

func (s *ProjectService) List(ctx context.Context, page, pageSize int, query domain.ListQuery) (*domain.PaginatedResponse, error) {
	projects, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	pageItems, resp := paginate(projects, page, pageSize)
	resp.Data = mapper.ToProjectDTOs(pageItems)
	return resp, nil
}

func applyStatus(project *domain.Project, status domain.ProjectStatus) {
	project.Status = status
	if status == domain.ProjectStatusCompleted {
		project.PercentComplete = 100
	}
}
