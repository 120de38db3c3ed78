package account

import (
	"go-ledger/internal/config"
	"go-ledger/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AccountApi struct {
	AccountController *AccountController
	Config            *config.Config
}

func NewAccountApi(accountController *AccountController, config *config.Config) *AccountApi {
	return &AccountApi{
		AccountController: accountController,
		Config:            config,
	}
}

func (api *AccountApi) Setup(app *fiber.App) {
	group := app.Group("/api/accounts", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Get("/master", api.AccountController.ListMasters)
	group.Post("/master/upload", api.AccountController.UploadMaster)
	group.Get("/master/template", api.AccountController.DownloadTemplate)
	group.Get("/shop", api.AccountController.ListShopAccounts)
	group.Put("/shop/:id/mapping", api.AccountController.MapShopAccount)
	group.Get("/matching-stats", api.AccountController.GetMatchingStats)
}
