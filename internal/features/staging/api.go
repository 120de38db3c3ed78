package staging

import (
	"go-ledger/internal/config"
	"go-ledger/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type StagingApi struct {
	StagingController *StagingController
	Config            *config.Config
}

func NewStagingApi(stagingController *StagingController, config *config.Config) *StagingApi {
	return &StagingApi{
		StagingController: stagingController,
		Config:            config,
	}
}

func (api *StagingApi) Setup(app *fiber.App) {
	group := app.Group("/api/staging", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Post("/sessions", api.StagingController.CreateSession)
	group.Get("/sessions/:id", api.StagingController.GetSession)
	group.Delete("/sessions/:id", api.StagingController.DiscardSession)
	group.Post("/sessions/:id/commit", api.StagingController.CommitSession)
	group.Get("/target-fields/:formatType", api.StagingController.ListTargetFields)
}
