package mocks

import (
	"context"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/persistence"
	"github.com/dukex/gtfs-pathways/pkg/query"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

//nolint:ireturn
func (m *MockPersistence) Pathways() persistence.PathwayRepository {
	args := m.Called()

	return args.Get(0).(persistence.PathwayRepository)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockPathwayRepository is a mock implementation of persistence.PathwayRepository interface.
type MockPathwayRepository struct {
	mock.Mock
}

func (m *MockPathwayRepository) List(ctx context.Context, params query.ListParams) ([]*models.PathwayVersion, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.PathwayVersion), args.Error(1)
}

func (m *MockPathwayRepository) FileUploadPath(ctx context.Context, recordID string) (string, error) {
	args := m.Called(ctx, recordID)

	return args.String(0), args.Error(1)
}

func (m *MockPathwayRepository) FindOverlapping(ctx context.Context, projectGroupID, stationID string, from, to time.Time) (string, error) {
	args := m.Called(ctx, projectGroupID, stationID, from, to)

	return args.String(0), args.Error(1)
}

func (m *MockPathwayRepository) Insert(ctx context.Context, record *models.PathwayVersion) (*models.PathwayVersion, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.PathwayVersion), args.Error(1)
}
