package web

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/models"
	"github.com/dukex/gtfs-pathways/pkg/services"
	"github.com/gofiber/fiber/v3"
)

const defaultMimeType = "application/octet-stream"

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type APIHandlers struct {
	pathways  *services.Pathways
	admission *services.Admission
	database  HealthChecker
	logger    *slog.Logger
}

func NewAPIHandlers(
	pathways *services.Pathways,
	admission *services.Admission,
	database HealthChecker,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		pathways:  pathways,
		admission: admission,
		database:  database,
		logger:    logger.With("module", "web"),
	}
}

func (h *APIHandlers) ListPathways(c fiber.Ctx) error {
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	params, err := ListParamsFromQuery(values)
	if err != nil {
		return badRequest(c, err.Error())
	}

	records, err := h.pathways.List(c.Context(), params)
	if err != nil {
		return h.serviceError(c, err)
	}

	if records == nil {
		records = []*models.PathwayVersion{}
	}

	return c.JSON(records)
}

// DownloadPathway streams the stored file of a record. The body is closed once it has been sent.
func (h *APIHandlers) DownloadPathway(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Record ID is required")
	}

	handle, err := h.pathways.DownloadHandle(c.Context(), id)
	if err != nil {
		return h.serviceError(c, err)
	}

	mimeType := handle.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	c.Set(fiber.HeaderContentType, mimeType)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": handle.FileName}))

	return c.SendStream(handle.Body)
}

// CreatePathway admits a multipart upload made of a `file` part and a `meta` JSON field.
func (h *APIHandlers) CreatePathway(c fiber.Ctx) error {
	req := services.UploadRequest{
		Meta:          c.FormValue("meta"),
		Authorization: c.Get(fiber.HeaderAuthorization),
	}

	fileHeader, err := c.FormFile("file")
	if err == nil {
		file, openErr := fileHeader.Open()
		if openErr != nil {
			return badRequest(c, "Unable to read the uploaded file")
		}
		defer file.Close()

		req.FileName = fileHeader.Filename
		req.ContentType = fileHeader.Header.Get(fiber.HeaderContentType)
		req.File = file
	}

	recordID, err := h.admission.Admit(c.Context(), req)
	if err != nil {
		return h.serviceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(CreatePathwayResponse{RecordID: recordID})
}

func (h *APIHandlers) VersionsInfo(c fiber.Ctx) error {
	return c.JSON(models.SupportedVersions())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	databaseCheck := "ok"

	err := h.database.HealthCheck(c.Context())
	if err != nil {
		databaseCheck = err.Error()
	}

	response := HealthResponse{
		Status:    "healthy",
		Message:   "Pathways API is healthy",
		Checkers:  map[string]string{"database": databaseCheck},
		Timestamp: time.Now().UTC(),
	}

	httpStatus := http.StatusOK
	if err != nil {
		response.Status = "unhealthy"
		response.Message = "Pathways API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(response)
}

func (h *APIHandlers) serviceError(c fiber.Ctx, err error) error {
	if services.StatusCode(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Context(), "request failed", "path", c.Path(), "error", err)
	}

	return handleServiceError(c, err)
}
