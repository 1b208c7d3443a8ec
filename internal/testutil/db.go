package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens an isolated in-memory sqlite database with the schema migrated.
// Each call gets its own database, closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "failed to open in-memory sqlite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// CreateTestCustomer creates a test customer and returns it
func CreateTestCustomer(t *testing.T, db *gorm.DB, name string) *domain.Customer {
	t.Helper()
	customer := &domain.Customer{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Phone:        "12345678",
		City:         "Oslo",
		Status:       domain.CustomerStatusActive,
		CustomerType: domain.CustomerTypeIndividual,
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

// CreateTestDeal creates a deal in the new stage for customer
func CreateTestDeal(t *testing.T, db *gorm.DB, customer *domain.Customer, title string, value float64) *domain.Deal {
	t.Helper()
	deal := &domain.Deal{
		Title:        title,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Value:        value,
		Stage:        domain.DealStageNew,
		Probability:  10,
		Priority:     domain.PriorityMedium,
	}
	require.NoError(t, db.Create(deal).Error)
	return deal
}

// CreateTestProject creates a not-started project for customer
func CreateTestProject(t *testing.T, db *gorm.DB, customer *domain.Customer, title string) *domain.Project {
	t.Helper()
	project := &domain.Project{
		ProjectNumber: "TEST-" + uuid.NewString()[:8],
		Title:         title,
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		Status:        domain.ProjectStatusNotStarted,
		Priority:      domain.PriorityMedium,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}
