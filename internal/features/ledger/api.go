package ledger

import (
	"go-ledger/internal/config"
	"go-ledger/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LedgerApi struct {
	LedgerController *LedgerController
	Config           *config.Config
}

func NewLedgerApi(ledgerController *LedgerController, config *config.Config) *LedgerApi {
	return &LedgerApi{
		LedgerController: ledgerController,
		Config:           config,
	}
}

func (api *LedgerApi) Setup(app *fiber.App) {
	group := app.Group("/api/ledger", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Get("/exists", api.LedgerController.CheckExists)
	group.Get("/export", api.LedgerController.Export)
}
