package account

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-ledger/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AccountController struct {
	AccountService AccountService
	UploadDir      string
}

func NewAccountController(accountService AccountService, cfg *config.Config) *AccountController {
	if _, err := os.Stat(cfg.FSPath); os.IsNotExist(err) {
		os.MkdirAll(cfg.FSPath, 0755)
	}
	return &AccountController{
		AccountService: accountService,
		UploadDir:      cfg.FSPath,
	}
}

// ListMasters returns the master chart of accounts.
func (c *AccountController) ListMasters(ctx *fiber.Ctx) error {
	accounts, err := c.AccountService.ListMasters(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if accounts == nil {
		accounts = []MasterAccount{}
	}
	return ctx.JSON(accounts)
}

// ListShopAccounts returns the shop chart for a program+shop.
func (c *AccountController) ListShopAccounts(ctx *fiber.Ctx) error {
	programID := ctx.Query("program_id")
	shopID := ctx.Query("shop_id")
	if programID == "" || shopID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "program_id and shop_id are required"})
	}

	accounts, err := c.AccountService.ListShopAccounts(ctx.UserContext(), programID, shopID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if accounts == nil {
		accounts = []ShopAccount{}
	}
	return ctx.JSON(accounts)
}

// MapShopAccount links a shop account to a master account number.
func (c *AccountController) MapShopAccount(ctx *fiber.Ctx) error {
	var body struct {
		MasterAccountNumber string `json:"master_account_number"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.AccountService.MapShopAccount(ctx.UserContext(), ctx.Params("id"), body.MasterAccountNumber); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Account mapped"})
}

// GetMatchingStats returns the reconciliation summary that gates ledger import.
func (c *AccountController) GetMatchingStats(ctx *fiber.Ctx) error {
	programID := ctx.Query("program_id")
	shopID := ctx.Query("shop_id")
	if programID == "" || shopID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "program_id and shop_id are required"})
	}

	stats, err := c.AccountService.MatchingStats(ctx.UserContext(), programID, shopID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(stats)
}

// UploadMaster accepts a master chart file and returns the import job handle.
func (c *AccountController) UploadMaster(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	userID, _ := ctx.Locals("user_id").(string)

	originalName := filepath.Base(fileHeader.Filename)
	uniqueName := fmt.Sprintf("%s_%s", uuid.NewString(), strings.ReplaceAll(originalName, " ", "_"))
	dstPath := filepath.Join(c.UploadDir, uniqueName)

	if err := ctx.SaveFile(fileHeader, dstPath); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error saving file"})
	}

	job, err := c.AccountService.UploadMaster(ctx.UserContext(), dstPath, originalName, userID)
	if err != nil {
		os.Remove(dstPath)
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(job)
}

// DownloadTemplate streams a blank master chart workbook.
func (c *AccountController) DownloadTemplate(ctx *fiber.Ctx) error {
	data, err := c.AccountService.Template()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="master_accounts_template.xlsx"`)
	return ctx.Send(data)
}
