package services

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/metrics"
	"github.com/dukex/gtfs-pathways/pkg/mocks"
	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const uploadTopic = "pathways-upload"

type admissionFixture struct {
	store       *mocks.MockStorage
	permissions *mocks.MockPermissionChecker
	bus         *mocks.MockEventBus
	metrics     *metrics.Metrics
	admission   *Admission
}

func newAdmissionFixture() *admissionFixture {
	f := &admissionFixture{
		store:       &mocks.MockStorage{},
		permissions: &mocks.MockPermissionChecker{},
		bus:         &mocks.MockEventBus{},
		metrics:     metrics.New(prometheus.NewRegistry()),
	}
	f.admission = NewAdmission(f.store, f.permissions, f.bus, uploadTopic, f.metrics, testLogger())
	f.admission.now = func() time.Time { return time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC) }

	return f
}

func pathSuffix(suffix string) any {
	return mock.MatchedBy(func(path string) bool { return strings.HasSuffix(path, suffix) })
}

func TestAdmission_Admit(t *testing.T) {
	f := newAdmissionFixture()
	meta := validMeta()

	var published *models.QueueMessageEnvelope

	f.permissions.On("CanUpload", mock.Anything, "user-1", "pg-1").Return(true, nil)
	f.store.On("Upload", mock.Anything, pathSuffix("/gtfs.zip"), "application/zip", "zip-bytes").
		Return("https://store.example/pathways/2024/3/pg-1/rec/gtfs.zip", nil)
	f.store.On("Upload", mock.Anything, pathSuffix("/meta.json"), "application/json", mock.Anything).
		Return("https://store.example/pathways/2024/3/pg-1/rec/meta.json", nil)
	f.bus.On("Publish", mock.Anything, uploadTopic, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).(*models.QueueMessageEnvelope) }).
		Return(nil)

	recordID, err := f.admission.Admit(t.Context(), UploadRequest{
		FileName:      "gtfs.zip",
		File:          strings.NewReader("zip-bytes"),
		Meta:          metaJSON(t, meta),
		Authorization: bearer(t, "user-1"),
	})
	require.NoError(t, err)
	f.admission.Wait()

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), recordID)

	require.NotNil(t, published)
	assert.Equal(t, recordID, published.RecordID)
	assert.Equal(t, "user-1", published.UserID)
	assert.Equal(t, "pg-1", published.ProjectGroupID)
	assert.Equal(t, UploadStage, published.Stage)
	assert.True(t, published.Response.Success)
	assert.Equal(t, "https://store.example/pathways/2024/3/pg-1/rec/gtfs.zip", published.FileUploadPath())

	var request models.UploadMeta
	require.NoError(t, json.Unmarshal(published.Request, &request))
	assert.Equal(t, meta.StationID, request.StationID)

	f.store.AssertCalled(t, "Upload", mock.Anything, "2024/3/pg-1/"+recordID+"/gtfs.zip", "application/zip", "zip-bytes")
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Uploads().WithLabelValues(metrics.OutcomeAccepted)), 0)
	f.store.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestAdmission_Admit_RejectsNonZip(t *testing.T) {
	f := newAdmissionFixture()

	_, err := f.admission.Admit(t.Context(), UploadRequest{
		FileName: "pathways.txt",
		File:     strings.NewReader("stops"),
		Meta:     "not even json",
	})
	require.Error(t, err)

	assert.Equal(t, KindFileType, KindOf(err))
	assert.Equal(t, "Invalid file type.", PublicMessage(err))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Uploads().WithLabelValues(metrics.OutcomeRejected)), 0)
	f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.permissions.AssertNotCalled(t, "CanUpload", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmission_Admit_AcceptsUpperCaseExtension(t *testing.T) {
	f := newAdmissionFixture()

	_, err := f.admission.Admit(t.Context(), UploadRequest{FileName: "GTFS.ZIP", Meta: "{"})
	require.Error(t, err)

	assert.Equal(t, KindInput, KindOf(err))
}

func TestAdmission_Admit_InvalidMeta(t *testing.T) {
	f := newAdmissionFixture()
	meta := validMeta()
	meta.CollectionMethod = ""

	_, err := f.admission.Admit(t.Context(), UploadRequest{
		FileName:      "gtfs.zip",
		Meta:          metaJSON(t, meta),
		Authorization: bearer(t, "user-1"),
	})
	require.Error(t, err)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 400, StatusCode(err))
	assert.Contains(t, PublicMessage(err), "collection_method")
	f.permissions.AssertNotCalled(t, "CanUpload", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmission_Admit_Unauthorized(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		setup         func(p *mocks.MockPermissionChecker)
	}{
		{
			name:          "missing token",
			authorization: "",
			setup:         func(*mocks.MockPermissionChecker) {},
		},
		{
			name:          "role missing",
			authorization: "user-1",
			setup: func(p *mocks.MockPermissionChecker) {
				p.On("CanUpload", mock.Anything, "user-1", "pg-1").Return(false, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdmissionFixture()
			tt.setup(f.permissions)

			authorization := ""
			if tt.authorization != "" {
				authorization = bearer(t, tt.authorization)
			}

			_, err := f.admission.Admit(t.Context(), UploadRequest{
				FileName:      "gtfs.zip",
				Meta:          metaJSON(t, validMeta()),
				Authorization: authorization,
			})
			require.Error(t, err)

			assert.Equal(t, KindUnauthenticated, KindOf(err))
			assert.Equal(t, 401, StatusCode(err))
			f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.permissions.AssertExpectations(t)
		})
	}
}

func TestAdmission_Admit_PermissionAuthorityUnavailable(t *testing.T) {
	f := newAdmissionFixture()
	f.permissions.On("CanUpload", mock.Anything, "user-1", "pg-1").Return(false, errors.New("connection reset"))

	_, err := f.admission.Admit(t.Context(), UploadRequest{
		FileName:      "gtfs.zip",
		Meta:          metaJSON(t, validMeta()),
		Authorization: bearer(t, "user-1"),
	})
	require.Error(t, err)

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, 500, StatusCode(err))
	assert.Equal(t, permissionCheckMsg, PublicMessage(err))
	assert.NotContains(t, PublicMessage(err), "connection reset")
	f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmission_Admit_UploadFailure(t *testing.T) {
	f := newAdmissionFixture()

	f.permissions.On("CanUpload", mock.Anything, "user-1", "pg-1").Return(true, nil)
	f.store.On("Upload", mock.Anything, pathSuffix("/gtfs.zip"), "application/zip", "zip").
		Return("", errors.New("bucket missing"))

	_, err := f.admission.Admit(t.Context(), UploadRequest{
		FileName:      "gtfs.zip",
		File:          strings.NewReader("zip"),
		Meta:          metaJSON(t, validMeta()),
		Authorization: bearer(t, "user-1"),
	})
	require.Error(t, err)
	f.admission.Wait()

	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, "Error while uploading the file", PublicMessage(err))
	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmission_Admit_PublishFailureStillAccepts(t *testing.T) {
	f := newAdmissionFixture()

	f.permissions.On("CanUpload", mock.Anything, "user-1", "pg-1").Return(true, nil)
	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("file:///tmp/x", nil)
	f.bus.On("Publish", mock.Anything, uploadTopic, mock.Anything).Return(errors.New("broker down"))

	recordID, err := f.admission.Admit(t.Context(), UploadRequest{
		FileName:      "gtfs.zip",
		ContentType:   "application/x-zip-compressed",
		File:          strings.NewReader("zip"),
		Meta:          metaJSON(t, validMeta()),
		Authorization: bearer(t, "user-1"),
	})
	require.NoError(t, err)
	f.admission.Wait()

	assert.NotEmpty(t, recordID)
	f.store.AssertCalled(t, "Upload", mock.Anything, pathSuffix("/gtfs.zip"), "application/x-zip-compressed", "zip")
	f.bus.AssertExpectations(t)
}
