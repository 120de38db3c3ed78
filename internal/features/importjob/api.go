package importjob

import (
	"go-ledger/internal/config"
	"go-ledger/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ImportJobApi struct {
	ImportJobController *ImportJobController
	Config              *config.Config
}

func NewImportJobApi(importJobController *ImportJobController, config *config.Config) *ImportJobApi {
	return &ImportJobApi{
		ImportJobController: importJobController,
		Config:              config,
	}
}

func (api *ImportJobApi) Setup(app *fiber.App) {
	group := app.Group("/api/import", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Get("/jobs", api.ImportJobController.ListJobs)
	group.Get("/jobs/:jobNumber", api.ImportJobController.GetJob)
	group.Get("/jobs/:jobNumber/errors", api.ImportJobController.GetJobErrors)
}
