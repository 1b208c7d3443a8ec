package service_test

import (
	"testing"

	"github.com/straye-as/renovation-api/internal/bulk"
	"github.com/straye-as/renovation-api/internal/database"
	"github.com/straye-as/renovation-api/internal/repository"
	"github.com/straye-as/renovation-api/internal/service"
	"github.com/straye-as/renovation-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServices struct {
	db        *gorm.DB
	customers *service.CustomerService
	deals     *service.DealService
	projects  *service.ProjectService
	numbers   *service.NumberSequenceService
	snapshots *service.SnapshotService
	bulk      *service.BulkService
}

func setupServices(t *testing.T) *testServices {
	return setupServicesWithPolicy(t, bulk.PolicyBestEffort)
}

func setupServicesWithPolicy(t *testing.T, policy bulk.Policy) *testServices {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	customerRepo := repository.NewCustomerRepository(db)
	dealRepo := repository.NewDealRepository(db)
	historyRepo := repository.NewDealStageHistoryRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	numberRepo := repository.NewNumberSequenceRepository(db)

	numbers := service.NewNumberSequenceService(numberRepo, logger)
	customers := service.NewCustomerService(customerRepo, dealRepo, projectRepo, nil, logger, db)
	deals := service.NewDealService(dealRepo, historyRepo, customerRepo, projectRepo, customers, numbers, nil, logger, db)
	projects := service.NewProjectService(projectRepo, customerRepo, numbers, logger, db)

	return &testServices{
		db:        db,
		customers: customers,
		deals:     deals,
		projects:  projects,
		numbers:   numbers,
		snapshots: service.NewSnapshotService(customerRepo, dealRepo, projectRepo, db),
		bulk: service.NewBulkService(customers, deals, projects,
			service.BulkOptions{Policy: policy, Concurrency: 3},
			database.NewTxRunner(db).Run, nil, logger),
	}
}

func strPtr(s string) *string { return &s }
