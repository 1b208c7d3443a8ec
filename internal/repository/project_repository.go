package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	return database.Conn(ctx, r.db).Create(project).Error
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) GetByProjectNumber(ctx context.Context, number string) (*domain.Project, error) {
	var project domain.Project
	err := database.Conn(ctx, r.db).Where("project_number = ?", number).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	return database.Conn(ctx, r.db).Save(project).Error
}

// Delete removes a project. Returns gorm.ErrRecordNotFound when nothing was deleted.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&domain.Project{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns every project in creation order
func (r *ProjectRepository) List(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	err := database.Conn(ctx, r.db).
		Order("created_at ASC, id ASC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&domain.Project{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}
