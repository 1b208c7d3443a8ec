package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/straye-as/renovation-api/internal/mapper"
	"github.com/straye-as/renovation-api/internal/repository"
	"github.com/straye-as/renovation-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SnapshotService reads every collection at one point in time
type SnapshotService struct {
	customerRepo *repository.CustomerRepository
	dealRepo     *repository.DealRepository
	projectRepo  *repository.ProjectRepository
	db           *gorm.DB
}

func NewSnapshotService(
	customerRepo *repository.CustomerRepository,
	dealRepo *repository.DealRepository,
	projectRepo *repository.ProjectRepository,
	db *gorm.DB,
) *SnapshotService {
	return &SnapshotService{
		customerRepo: customerRepo,
		dealRepo:     dealRepo,
		projectRepo:  projectRepo,
		db:           db,
	}
}

// Snapshot returns all customers, deals (converted ones included) and
// projects, read in a single transaction
func (s *SnapshotService) Snapshot(ctx context.Context) (*domain.SnapshotDTO, error) {
	var (
		customers []domain.Customer
		deals     []domain.Deal
		projects  []domain.Project
	)

	read := func(tx *gorm.DB) error {
		ctx := database.WithTx(ctx, tx)
		var err error
		if customers, err = s.customerRepo.List(ctx); err != nil {
			return fmt.Errorf("failed to read customers: %w", err)
		}
		if deals, err = s.dealRepo.List(ctx, repository.DealListOptions{IncludeInactive: true}); err != nil {
			return fmt.Errorf("failed to read deals: %w", err)
		}
		if projects, err = s.projectRepo.List(ctx); err != nil {
			return fmt.Errorf("failed to read projects: %w", err)
		}
		return nil
	}

	if err := database.Conn(ctx, s.db).Transaction(read, s.txOptions()...); err != nil {
		return nil, err
	}

	return &domain.SnapshotDTO{
		TakenAt:   time.Now().UTC().Format(time.RFC3339),
		Customers: mapper.ToCustomerDTOs(customers),
		Deals:     mapper.ToDealDTOs(deals),
		Projects:  mapper.ToProjectDTOs(projects),
	}, nil
}

// txOptions asks postgres for a repeatable read snapshot. sqlite serializes
// everything on its single connection and takes no options.
func (s *SnapshotService) txOptions() []*sql.TxOptions {
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

// ExportService writes snapshots as CSV files to object storage
type ExportService struct {
	snapshots *SnapshotService
	store     storage.Storage
	prefix    string
	recorder  Recorder
	logger    *zap.Logger
}

func NewExportService(
	snapshots *SnapshotService,
	store storage.Storage,
	prefix string,
	recorder Recorder,
	logger *zap.Logger,
) *ExportService {
	if prefix == "" {
		prefix = "exports"
	}
	return &ExportService{
		snapshots: snapshots,
		store:     store,
		prefix:    prefix,
		recorder:  recorderOrNop(recorder),
		logger:    logger,
	}
}

// Export writes customers.csv, deals.csv and projects.csv under
// <prefix>/<timestamp>/
func (s *ExportService) Export(ctx context.Context) (*domain.ExportResultDTO, error) {
	result, err := s.export(ctx)
	s.recorder.ObserveExport(err)
	if err != nil {
		s.logger.Error("snapshot export failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("snapshot exported",
		zap.String("prefix", result.Prefix),
		zap.Strings("files", result.Files))
	return result, nil
}

func (s *ExportService) export(ctx context.Context) (*domain.ExportResultDTO, error) {
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	dir := path.Join(s.prefix, time.Now().UTC().Format("20060102T150405Z"))
	files := []struct {
		name string
		rows [][]string
	}{
		{"customers.csv", customerRows(snap.Customers)},
		{"deals.csv", dealRows(snap.Deals)},
		{"projects.csv", projectRows(snap.Projects)},
	}

	result := &domain.ExportResultDTO{Prefix: dir, Files: make([]string, 0, len(files))}
	for _, f := range files {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(f.rows); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", f.name, err)
		}

		key := path.Join(dir, f.name)
		if _, err := s.store.Put(ctx, key, "text/csv", &buf); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", key, err)
		}
		result.Files = append(result.Files, key)
	}
	return result, nil
}

func customerRows(customers []domain.CustomerDTO) [][]string {
	rows := [][]string{{"id", "name", "email", "phone", "address", "city", "postal_code", "status", "customer_type", "created_at"}}
	for _, c := range customers {
		rows = append(rows, []string{
			c.ID.String(), c.Name, c.Email, c.Phone, c.Address, c.City, c.PostalCode,
			string(c.Status), string(c.CustomerType), c.CreatedAt,
		})
	}
	return rows
}

func dealRows(deals []domain.DealDTO) [][]string {
	rows := [][]string{{"id", "title", "customer_id", "customer_name", "value", "stage", "probability", "priority", "expected_close_date", "converted_to_project_id", "archived", "created_at"}}
	for _, d := range deals {
		converted := ""
		if d.ConvertedToProjectID != nil {
			converted = d.ConvertedToProjectID.String()
		}
		rows = append(rows, []string{
			d.ID.String(), d.Title, d.CustomerID.String(), d.CustomerName,
			strconv.FormatFloat(d.Value, 'f', 2, 64), string(d.Stage), strconv.Itoa(d.Probability),
			string(d.Priority), deref(d.ExpectedCloseDate), converted,
			strconv.FormatBool(d.Archived), d.CreatedAt,
		})
	}
	return rows
}

func projectRows(projects []domain.ProjectDTO) [][]string {
	rows := [][]string{{"id", "project_number", "title", "customer_id", "customer_name", "status", "percent_complete", "contract_amount", "priority", "manager", "start_date", "expected_completion", "originating_deal_id", "created_at"}}
	for _, p := range projects {
		origin := ""
		if p.OriginatingDealID != nil {
			origin = p.OriginatingDealID.String()
		}
		rows = append(rows, []string{
			p.ID.String(), p.ProjectNumber, p.Title, p.CustomerID.String(), p.CustomerName,
			string(p.Status), strconv.Itoa(p.PercentComplete), strconv.FormatFloat(p.ContractAmount, 'f', 2, 64),
			string(p.Priority), p.Manager, deref(p.StartDate), deref(p.ExpectedCompletion), origin, p.CreatedAt,
		})
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
