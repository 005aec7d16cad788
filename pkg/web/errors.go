package web

import (
	"github.com/dukex/gtfs-pathways/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("input").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

// handleServiceError maps a service error to its problem response. Details of errors that are
// not service errors never reach the response.
func handleServiceError(c fiber.Ctx, err error) error {
	kind := services.KindOf(err)
	status := kind.Status()

	problemType := kind.String()
	if kind == services.KindUnknown {
		problemType = "internal_error"
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(services.PublicMessage(err))

	return c.Status(status).JSON(problem)
}
