package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DealListOptions narrows a deal listing at the database level.
// Free-text search and structured filters are applied by the filter engine.
type DealListOptions struct {
	// IncludeInactive also returns converted and archived deals
	IncludeInactive bool
	CustomerID      *uuid.UUID
}

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	return database.Conn(ctx, r.db).Create(deal).Error
}

func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// GetByIDForUpdate loads a deal holding a row lock for the rest of the
// surrounding transaction. The lock is a no-op on sqlite, where writers are
// already serialized.
func (r *DealRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return database.Conn(ctx, r.db).Save(deal).Error
}

// Delete removes a deal. Returns gorm.ErrRecordNotFound when nothing was deleted.
func (r *DealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&domain.Deal{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns deals in creation order. Converted and archived deals are
// left out unless opts.IncludeInactive is set.
func (r *DealRepository) List(ctx context.Context, opts DealListOptions) ([]domain.Deal, error) {
	var deals []domain.Deal
	query := database.Conn(ctx, r.db).Model(&domain.Deal{})
	if !opts.IncludeInactive {
		query = query.Where("converted_to_project_id IS NULL AND archived_at IS NULL")
	}
	if opts.CustomerID != nil {
		query = query.Where("customer_id = ?", *opts.CustomerID)
	}
	err := query.Order("created_at ASC, id ASC").Find(&deals).Error
	return deals, err
}

// CountByCustomerID counts deals referencing a customer, converted ones included
func (r *DealRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&domain.Deal{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}

// StageAggregate is one row of the active pipeline summary
type StageAggregate struct {
	Stage         domain.DealStage
	Count         int64
	TotalValue    float64
	WeightedValue float64
}

// AggregateActiveByStage sums active deals per stage
func (r *DealRepository) AggregateActiveByStage(ctx context.Context) ([]StageAggregate, error) {
	var rows []StageAggregate
	err := database.Conn(ctx, r.db).Model(&domain.Deal{}).
		Select("stage, COUNT(*) AS count, COALESCE(SUM(value), 0) AS total_value, COALESCE(SUM(value * probability / 100.0), 0) AS weighted_value").
		Where("converted_to_project_id IS NULL AND archived_at IS NULL").
		Group("stage").
		Scan(&rows).Error
	return rows, err
}
