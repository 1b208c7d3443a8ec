package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return database.Conn(ctx, r.db).Create(customer).Error
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByEmail finds a customer by case-insensitive email.
// When several customers share the email the oldest one wins.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var customer domain.Customer
	err := database.Conn(ctx, r.db).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("created_at ASC").
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	return database.Conn(ctx, r.db).Save(customer).Error
}

// Delete removes a customer. Returns gorm.ErrRecordNotFound when nothing was deleted.
func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&domain.Customer{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns every customer in creation order
func (r *CustomerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := database.Conn(ctx, r.db).
		Order("created_at ASC, id ASC").
		Find(&customers).Error
	return customers, err
}

// ListByIDs returns the customers with the given ids, keyed by id
func (r *CustomerRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Customer, error) {
	result := make(map[uuid.UUID]domain.Customer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var customers []domain.Customer
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, err
	}
	for _, c := range customers {
		result[c.ID] = c
	}
	return result, nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&domain.Customer{}).Count(&count).Error
	return count, err
}
