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

type CustomerService struct {
	customerRepo *repository.CustomerRepository
	dealRepo     *repository.DealRepository
	projectRepo  *repository.ProjectRepository
	recorder     Recorder
	logger       *zap.Logger
	db           *gorm.DB
}

func NewCustomerService(
	customerRepo *repository.CustomerRepository,
	dealRepo *repository.DealRepository,
	projectRepo *repository.ProjectRepository,
	recorder Recorder,
	logger *zap.Logger,
	db *gorm.DB,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		dealRepo:     dealRepo,
		projectRepo:  projectRepo,
		recorder:     recorderOrNop(recorder),
		logger:       logger,
		db:           db,
	}
}

// Create stores a new customer. Status defaults to prospect and type to individual.
// Email is not required to be unique.
func (s *CustomerService) Create(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.CustomerDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	customer := &domain.Customer{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		City:         req.City,
		PostalCode:   req.PostalCode,
		Status:       req.Status,
		CustomerType: req.CustomerType,
		Notes:        req.Notes,
	}
	if customer.Status == "" {
		customer.Status = domain.CustomerStatusProspect
	}
	if customer.CustomerType == "" {
		customer.CustomerType = domain.CustomerTypeIndividual
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer created", zap.String("customer_id", customer.ID.String()))

	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerDTO, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "customer", id)
	}

	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

// Update merges the supplied fields into the customer
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCustomerRequest) (*domain.CustomerDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	var customer *domain.Customer
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		customer, err = s.customerRepo.GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "customer", id)
		}

		if req.Name != nil {
			customer.Name = *req.Name
		}
		if req.Email != nil {
			customer.Email = *req.Email
		}
		if req.Phone != nil {
			customer.Phone = *req.Phone
		}
		if req.Address != nil {
			customer.Address = *req.Address
		}
		if req.City != nil {
			customer.City = *req.City
		}
		if req.PostalCode != nil {
			customer.PostalCode = *req.PostalCode
		}
		if req.Status != nil {
			customer.Status = *req.Status
		}
		if req.CustomerType != nil {
			customer.CustomerType = *req.CustomerType
		}
		if req.Notes != nil {
			customer.Notes = *req.Notes
		}

		if err := s.customerRepo.Update(ctx, customer); err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

// SetStatus changes only the status of a customer
func (s *CustomerService) SetStatus(ctx context.Context, id uuid.UUID, status domain.CustomerStatus) error {
	_, err := s.Update(ctx, id, &domain.UpdateCustomerRequest{Status: &status})
	return err
}

// Delete removes a customer that no deal or project references
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.customerRepo.GetByID(ctx, id); err != nil {
			return notFoundOr(err, "customer", id)
		}

		deals, err := s.dealRepo.CountByCustomerID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count deals: %w", err)
		}
		projects, err := s.projectRepo.CountByCustomerID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count projects: %w", err)
		}
		if deals > 0 || projects > 0 {
			return &ReferentialError{
				Entity: "customer",
				Field:  "id",
				ID:     id,
				Reason: fmt.Sprintf("still referenced by %d deals and %d projects", deals, projects),
			}
		}

		if err := s.customerRepo.Delete(ctx, id); err != nil {
			return notFoundOr(err, "customer", id)
		}
		s.logger.Info("customer deleted", zap.String("customer_id", id.String()))
		return nil
	})
}

// Search returns every customer matching the query, in creation order
func (s *CustomerService) Search(ctx context.Context, query domain.ListQuery) ([]domain.Customer, error) {
	active, err := parseQuery(query)
	if err != nil {
		return nil, err
	}
	customers, err := s.customerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return filter.Apply(customers, query.Search, active, CustomerFields, CustomerSearchFields), nil
}

func (s *CustomerService) List(ctx context.Context, page, pageSize int, query domain.ListQuery) (*domain.PaginatedResponse, error) {
	customers, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	pageItems, resp := paginate(customers, page, pageSize)
	resp.Data = mapper.ToCustomerDTOs(pageItems)
	return resp, nil
}

// FindOrCreate returns the oldest customer with the same email, compared
// case-insensitively, or creates one. Without an email a new customer is
// always created. The bool reports whether a customer was created.
func (s *CustomerService) FindOrCreate(ctx context.Context, req *domain.FindOrCreateCustomerRequest) (*domain.CustomerDTO, bool, error) {
	if err := validate.Struct(req); err != nil {
		return nil, false, newValidationError(err)
	}

	if req.Email != "" {
		existing, err := s.customerRepo.GetByEmail(ctx, req.Email)
		switch {
		case err == nil:
			dto := mapper.ToCustomerDTO(existing)
			return &dto, false, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, false, fmt.Errorf("failed to look up customer by email: %w", err)
		}
	}

	created, err := s.Create(ctx, &domain.CreateCustomerRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		CustomerType: req.CustomerType,
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// Import creates one customer per row. Rows are independent: a rejected row
// is reported and does not affect the others.
func (s *CustomerService) Import(ctx context.Context, rows []map[string]any) (*domain.ImportResultDTO, error) {
	result := &domain.ImportResultDTO{
		Created: make([]uuid.UUID, 0, len(rows)),
		Failed:  make([]domain.ImportRowError, 0),
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var req domain.CreateCustomerRequest
		if err := decodeRow(row, &req); err != nil {
			result.Failed = append(result.Failed, importRowError(i, &ValidationError{Err: err}))
			continue
		}

		customer, err := s.Create(ctx, &req)
		if err != nil {
			result.Failed = append(result.Failed, importRowError(i, err))
			continue
		}
		result.Created = append(result.Created, customer.ID)
	}

	s.recorder.ObserveImport("customers", len(result.Created), len(result.Failed))
	s.logger.Info("customer import finished",
		zap.Int("created", len(result.Created)),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}
