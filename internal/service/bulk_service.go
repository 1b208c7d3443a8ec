package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/straye-as/renovation-api/internal/domain"
	"go.uber.org/zap"
)

// Bulk action targets
const (
	BulkEntityCustomers = "customers"
	BulkEntityDeals     = "deals"
	BulkEntityProjects  = "projects"
)

// ErrUnknownEntity is returned for a bulk target other than customers, deals or projects
var ErrUnknownEntity = errors.New("unknown bulk entity")

// BulkOptions configures how bulk actions execute
type BulkOptions struct {
	Policy      bulk.Policy
	Concurrency int
}

// TxRunFunc runs fn in one transaction
type TxRunFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// BulkService applies catalog actions to records selected from a filtered list.
// The selectable records are exactly those matching the request's search and
// filters; ids outside that set are ignored.
type BulkService struct {
	customers *CustomerService
	deals     *DealService
	projects  *ProjectService
	opts      BulkOptions
	runInTx   TxRunFunc
	recorder  Recorder
	logger    *zap.Logger
}

func NewBulkService(
	customers *CustomerService,
	deals *DealService,
	projects *ProjectService,
	opts BulkOptions,
	runInTx TxRunFunc,
	recorder Recorder,
	logger *zap.Logger,
) *BulkService {
	return &BulkService{
		customers: customers,
		deals:     deals,
		projects:  projects,
		opts:      opts,
		runInTx:   runInTx,
		recorder:  recorderOrNop(recorder),
		logger:    logger,
	}
}

// Actions returns the catalog of an entity
func (s *BulkService) Actions(entity string) ([]domain.BulkActionDTO, error) {
	orchestrator, err := s.orchestrator(entity, bulk.NewSelection[uuid.UUID](nil))
	if err != nil {
		return nil, err
	}

	catalog := orchestrator.Catalog()
	dtos := make([]domain.BulkActionDTO, len(catalog))
	for i, a := range catalog {
		dtos[i] = domain.BulkActionDTO{
			ID:                   a.ID,
			Label:                a.Label,
			RequiresConfirmation: a.RequiresConfirmation,
			ConfirmationMessage:  a.ConfirmationMessage,
		}
	}
	return dtos, nil
}

// Execute runs req.Action on the selected records of entity.
//
// Actions that require confirmation return *bulk.ConfirmationRequiredError
// unless req.Confirm is set. When some items fail, the per-item report is
// returned together with a *bulk.BatchPartialFailureError.
func (s *BulkService) Execute(ctx context.Context, entity string, req *domain.BulkActionRequest) (*domain.BulkActionResultDTO, error) {
	if err := validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	visible, err := s.visibleIDs(ctx, entity, domain.ListQuery{Search: req.Search, Filters: req.Filters})
	if err != nil {
		return nil, err
	}

	selection := bulk.NewSelection(visible)
	if req.SelectAll {
		selection.ToggleAll()
	} else {
		selection.Select(req.IDs...)
	}

	orchestrator, err := s.orchestrator(entity, selection)
	if err != nil {
		return nil, err
	}

	report, err := orchestrator.Run(ctx, req.Action)
	if errors.Is(err, bulk.ErrConfirmationRequired) && req.Confirm {
		report, err = orchestrator.Confirm(ctx)
	}
	if report == nil {
		return nil, err
	}

	return toBulkResultDTO(report, selection.SelectedIDs()), err
}

func (s *BulkService) orchestrator(entity string, selection *bulk.Selection[uuid.UUID]) (*bulk.Orchestrator[uuid.UUID], error) {
	catalog, err := s.catalog(entity)
	if err != nil {
		return nil, err
	}
	return bulk.NewOrchestrator(bulk.Config{
		Entity:      entity,
		Policy:      s.opts.Policy,
		Concurrency: s.opts.Concurrency,
		RunInTx:     s.runInTx,
		Logger:      s.logger,
		Recorder:    s.recorder,
	}, selection, catalog...), nil
}

func (s *BulkService) visibleIDs(ctx context.Context, entity string, query domain.ListQuery) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	switch entity {
	case BulkEntityCustomers:
		customers, err := s.customers.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, c := range customers {
			ids = append(ids, c.ID)
		}
	case BulkEntityDeals:
		deals, err := s.deals.Search(ctx, query, false)
		if err != nil {
			return nil, err
		}
		for _, d := range deals {
			ids = append(ids, d.ID)
		}
	case BulkEntityProjects:
		projects, err := s.projects.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return ids, nil
}

func (s *BulkService) catalog(entity string) ([]bulk.Action[uuid.UUID], error) {
	switch entity {
	case BulkEntityCustomers:
		return s.customerActions(), nil
	case BulkEntityDeals:
		return s.dealActions(), nil
	case BulkEntityProjects:
		return s.projectActions(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
}

func (s *BulkService) customerActions() []bulk.Action[uuid.UUID] {
	actions := make([]bulk.Action[uuid.UUID], 0, len(domain.CustomerStatuses))
	for _, status := range domain.CustomerStatuses {
		status := status
		actions = append(actions, bulk.Action[uuid.UUID]{
			ID:    "status-" + string(status),
			Label: "Set status: " + string(status),
			Apply: func(ctx context.Context, id uuid.UUID) error {
				return s.customers.SetStatus(ctx, id, status)
			},
		})
	}
	return actions
}

func (s *BulkService) dealActions() []bulk.Action[uuid.UUID] {
	actions := make([]bulk.Action[uuid.UUID], 0, len(domain.DealStages)+2)
	for _, stage := range domain.DealStages {
		stage := stage
		actions = append(actions, bulk.Action[uuid.UUID]{
			ID:    "stage-" + string(stage),
			Label: "Move to " + string(stage),
			Apply: func(ctx context.Context, id uuid.UUID) error {
				_, err := s.deals.ChangeStage(ctx, id, &domain.UpdateDealStageRequest{Stage: stage, Notes: "Bulk stage change"})
				return err
			},
		})
	}

	return append(actions,
		bulk.Action[uuid.UUID]{
			ID:                   "convert",
			Label:                "Convert to project",
			RequiresConfirmation: true,
			ConfirmationMessage:  "Convert the selected deals to projects? Converted deals become read only.",
			Apply: func(ctx context.Context, id uuid.UUID) error {
				_, err := s.deals.ConvertToProject(ctx, id)
				return err
			},
		},
		bulk.Action[uuid.UUID]{
			ID:                   "delete",
			Label:                "Delete",
			RequiresConfirmation: true,
			ConfirmationMessage:  "Delete the selected deals and their stage history? This cannot be undone.",
			Apply:                s.deals.Delete,
		},
	)
}

func (s *BulkService) projectActions() []bulk.Action[uuid.UUID] {
	actions := make([]bulk.Action[uuid.UUID], 0, len(domain.ProjectStatuses)+1)
	for _, status := range domain.ProjectStatuses {
		status := status
		actions = append(actions, bulk.Action[uuid.UUID]{
			ID:    "status-" + string(status),
			Label: "Set status: " + string(status),
			Apply: func(ctx context.Context, id uuid.UUID) error {
				_, err := s.projects.UpdateStatus(ctx, id, status)
				return err
			},
		})
	}

	return append(actions, bulk.Action[uuid.UUID]{
		ID:                   "delete",
		Label:                "Delete",
		RequiresConfirmation: true,
		ConfirmationMessage:  "Delete the selected projects? This cannot be undone.",
		Apply:                s.projects.Delete,
	})
}

func toBulkResultDTO(report *bulk.Report[uuid.UUID], selected []uuid.UUID) *domain.BulkActionResultDTO {
	dto := &domain.BulkActionResultDTO{
		Action:    report.ActionID,
		Results:   make([]domain.BulkItemResultDTO, len(report.Results)),
		Succeeded: len(report.Succeeded),
		Failed:    len(report.Failed),
		Selected:  selected,
	}
	for i, r := range report.Results {
		item := domain.BulkItemResultDTO{ID: r.ID, OK: r.OK()}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		dto.Results[i] = item
	}
	return dto
}
