package ledger

import (
	"github.com/gofiber/fiber/v2"
)

type LedgerController struct {
	LedgerService LedgerService
}

func NewLedgerController(ledgerService LedgerService) *LedgerController {
	return &LedgerController{
		LedgerService: ledgerService,
	}
}

// CheckExists reports whether a ledger already exists for the shop+period.
// Purely informational; committing replaces prior entries regardless.
func (c *LedgerController) CheckExists(ctx *fiber.Ctx) error {
	shopID := ctx.Query("shop_id")
	periodDate := ctx.Query("period_date")
	if shopID == "" || periodDate == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "shop_id and period_date are required"})
	}

	exists, count, err := c.LedgerService.Exists(ctx.UserContext(), shopID, periodDate)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"exists":      exists,
		"entry_count": count,
	})
}

// Export streams the shop+period entries as an XLSX workbook.
func (c *LedgerController) Export(ctx *fiber.Ctx) error {
	shopID := ctx.Query("shop_id")
	periodDate := ctx.Query("period_date")
	if shopID == "" || periodDate == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "shop_id and period_date are required"})
	}

	data, err := c.LedgerService.Export(ctx.UserContext(), shopID, periodDate)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="general_ledger.xlsx"`)
	return ctx.Send(data)
}
