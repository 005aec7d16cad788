package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukex/gtfs-pathways/pkg/metrics"
	"github.com/dukex/gtfs-pathways/pkg/mocks"
	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/persistence"
	"github.com/dukex/gtfs-pathways/pkg/query"
	"github.com/dukex/gtfs-pathways/pkg/services"
	"github.com/dukex/gtfs-pathways/pkg/storage"
	"github.com/dukex/gtfs-pathways/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const validMeta = `{"collected_by":"surveyor","collection_date":"2023-12-20","tdei_station_id":"st-1",` +
	`"tdei_project_group_id":"pg-1","collection_method":"manual","data_source":"TDEITools",` +
	`"pathways_schema_version":"v1.0","valid_from":"2024-01-01","valid_to":"2024-01-31"}`

type testEnv struct {
	app         *fiber.App
	repo        *mocks.MockPathwayRepository
	store       *mocks.MockStorage
	permissions *mocks.MockPermissionChecker
	bus         *mocks.MockEventBus
	database    *mocks.MockPersistence
	admission   *services.Admission
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		repo:        &mocks.MockPathwayRepository{},
		store:       &mocks.MockStorage{},
		permissions: &mocks.MockPermissionChecker{},
		bus:         &mocks.MockEventBus{},
		database:    &mocks.MockPersistence{},
	}

	pathways := services.NewPathways(env.repo, env.store, &mocks.MockStationResolver{}, logger)
	env.admission = services.NewAdmission(env.store, env.permissions, env.bus, "pathways-upload", metrics.Nop(), logger)

	handlers := web.NewAPIHandlers(pathways, env.admission, env.database, logger)

	env.app = fiber.New()
	env.app.Get("/health", handlers.HealthCheck)

	p := env.app.Group("/pathways")
	p.Get("/", handlers.ListPathways)
	p.Post("/", handlers.CreatePathway)
	p.Get("/versions/info", handlers.VersionsInfo)
	p.Get("/:id", handlers.DownloadPathway)

	return env
}

func decodeProblem(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))

	return problem
}

func uploadRequest(t *testing.T, fileName, meta, authorization string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte("zip-content"))
		require.NoError(t, err)
	}

	require.NoError(t, writer.WriteField("meta", meta))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/pathways", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	return req
}

func bearer(t *testing.T, subject string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject}).SignedString([]byte("secret"))
	require.NoError(t, err)

	return "Bearer " + token
}

func TestAPIHandlers_ListPathways(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	expected := query.ListParams{StationID: "st-1", BBox: []float64{1, 2, 3, 4}, PageNo: 2}
	env.repo.On("List", mock.Anything, expected).
		Return([]*models.PathwayVersion{{RecordID: "rec-1", StationID: "st-1"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/pathways?tdei_station_id=st-1&bbox=1,2&bbox=3,4&page_no=2", nil)

	resp, err := env.app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var records []models.PathwayVersion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].RecordID)
	env.repo.AssertExpectations(t)
}

func TestAPIHandlers_ListPathways_Empty(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	env.repo.On("List", mock.Anything, mock.Anything).Return(nil, nil)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/pathways", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAPIHandlers_ListPathways_BadFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
		repo   error
		detail string
	}{
		{"non numeric bbox", "/pathways?bbox=a,b,c,d", nil, query.ErrInvalidBBox.Error()},
		{"bad page", "/pathways?page_size=ten", nil, "page_size must be a positive integer"},
		{"bbox count", "/pathways?bbox=1,2,3", query.ErrInvalidBBox, query.ErrInvalidBBox.Error()},
		{"bad date", "/pathways?date_time=2024-02-30", query.ErrInvalidDate, query.ErrInvalidDate.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := setupTestApp(t)
			if tt.repo != nil {
				env.repo.On("List", mock.Anything, mock.Anything).Return(nil, tt.repo)
			}

			resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.detail, decodeProblem(t, resp)["detail"])
		})
	}
}

func TestAPIHandlers_ListPathways_DatabaseFailure(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	env.repo.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("pq: too many connections"))

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/pathways", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	problem := decodeProblem(t, resp)
	assert.Equal(t, "Error while fetching the pathways information", problem["detail"])
	assert.NotContains(t, problem["detail"], "pq:")
}

func TestAPIHandlers_DownloadPathway(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	env.repo.On("FileUploadPath", mock.Anything, "rec-1").Return("file:///data/rec-1/gtfs pathways.zip", nil)
	env.store.On("Open", mock.Anything, "file:///data/rec-1/gtfs pathways.zip").Return(&storage.FileHandle{
		FileName: "gtfs pathways.zip",
		MimeType: "application/zip",
		Body:     io.NopCloser(strings.NewReader("zip-content")),
	}, nil)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/pathways/rec-1", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="gtfs pathways.zip"`, resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "zip-content", string(body))
}

func TestAPIHandlers_DownloadPathway_NotFound(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	env.repo.On("FileUploadPath", mock.Anything, "missing").
		Return("", persistence.NewRecordError("file_upload_path", "missing", persistence.ErrRecordNotFound))

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/pathways/missing", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	problem := decodeProblem(t, resp)
	assert.Equal(t, "not_found", problem["type"])
	assert.Equal(t, "/pathways/missing", problem["instance"])
}

func TestAPIHandlers_CreatePathway(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	env.permissions.On("CanUpload", mock.Anything, "user-1", "pg-1").Return(true, nil)
	env.store.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("file:///data/x", nil)
	env.bus.On("Publish", mock.Anything, "pathways-upload", mock.Anything).Return(nil)

	resp, err := env.app.Test(uploadRequest(t, "gtfs.zip", validMeta, bearer(t, "user-1")))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	env.admission.Wait()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created web.CreatePathwayResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Len(t, created.RecordID, 32)
	env.store.AssertNumberOfCalls(t, "Upload", 2)
	env.bus.AssertExpectations(t)
}

func TestAPIHandlers_CreatePathway_PermissionServiceDown(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)
	env.permissions.On("CanUpload", mock.Anything, "user-1", "pg-1").Return(false, errors.New("dial tcp: connection refused"))

	resp, err := env.app.Test(uploadRequest(t, "gtfs.zip", validMeta, bearer(t, "user-1")))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	problem := decodeProblem(t, resp)
	assert.Equal(t, "upstream", problem["type"])
	assert.NotContains(t, problem["detail"], "connection refused")
	env.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAPIHandlers_CreatePathway_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		fileName   string
		meta       string
		wantStatus int
		wantType   string
		wantDetail string
	}{
		{
			name:       "wrong extension",
			fileName:   "pathways.csv",
			meta:       validMeta,
			wantStatus: http.StatusBadRequest,
			wantType:   "file_type",
			wantDetail: "Invalid file type.",
		},
		{
			name:       "missing file",
			meta:       validMeta,
			wantStatus: http.StatusBadRequest,
			wantType:   "file_type",
		},
		{
			name:       "malformed meta",
			fileName:   "gtfs.zip",
			meta:       `{"collected_by":`,
			wantStatus: http.StatusBadRequest,
			wantType:   "input",
		},
		{
			name:       "empty collection method",
			fileName:   "gtfs.zip",
			meta:       strings.Replace(validMeta, `"collection_method":"manual"`, `"collection_method":""`, 1),
			wantStatus: http.StatusBadRequest,
			wantType:   "validation",
			wantDetail: "collection_method",
		},
		{
			name:       "no token",
			fileName:   "gtfs.zip",
			meta:       validMeta,
			wantStatus: http.StatusUnauthorized,
			wantType:   "unauthenticated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := setupTestApp(t)

			resp, err := env.app.Test(uploadRequest(t, tt.fileName, tt.meta, ""))
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			problem := decodeProblem(t, resp)
			assert.Equal(t, tt.wantType, problem["type"])

			if tt.wantDetail != "" {
				assert.Contains(t, problem["detail"], tt.wantDetail)
			}

			env.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAPIHandlers_VersionsInfo(t *testing.T) {
	t.Parallel()

	env := setupTestApp(t)

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/pathways/versions/info", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var info models.VersionsInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.NotEmpty(t, info.Versions)
	assert.Equal(t, "v1.0", info.Versions[0].Version)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		dbErr      error
		wantStatus int
		wantState  string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := setupTestApp(t)
			env.database.On("HealthCheck", mock.Anything).Return(tt.dbErr)

			resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var health web.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
			assert.Equal(t, tt.wantState, health.Status)
		})
	}
}
