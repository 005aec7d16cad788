package mocks

import (
	"context"
	"io"

	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/storage"
	"github.com/stretchr/testify/mock"
)

// MockStationResolver is a mock implementation of services.StationResolver interface.
type MockStationResolver struct {
	mock.Mock
}

func (m *MockStationResolver) Resolve(ctx context.Context, stationID, projectGroupID string) (*models.StationRef, error) {
	args := m.Called(ctx, stationID, projectGroupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.StationRef), args.Error(1)
}

// MockPermissionChecker is a mock implementation of services.PermissionChecker interface.
type MockPermissionChecker struct {
	mock.Mock
}

func (m *MockPermissionChecker) CanUpload(ctx context.Context, userID, projectGroupID string) (bool, error) {
	args := m.Called(ctx, userID, projectGroupID)

	return args.Bool(0), args.Error(1)
}

// MockStorage is a mock implementation of storage.Storage interface. Upload drains the body
// so calls can assert on what was written.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, filePath, contentType string, body io.Reader) (string, error) {
	content, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	args := m.Called(ctx, filePath, contentType, string(content))

	return args.String(0), args.Error(1)
}

func (m *MockStorage) Open(ctx context.Context, remoteURL string) (*storage.FileHandle, error) {
	args := m.Called(ctx, remoteURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*storage.FileHandle), args.Error(1)
}

// MockRecordCreator is a mock implementation of services.RecordCreator interface.
type MockRecordCreator struct {
	mock.Mock
}

func (m *MockRecordCreator) Create(ctx context.Context, record *models.PathwayVersion) (*models.PathwayVersion, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.PathwayVersion), args.Error(1)
}
