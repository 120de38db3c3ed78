package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-ledger/internal/config"
	"go-ledger/internal/features/importjob"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	validator "gopkg.in/go-playground/validator.v9"
)

type StagingController struct {
	StagingService StagingService
	UploadDir      string

	validate *validator.Validate
}

func NewStagingController(stagingService StagingService, cfg *config.Config) *StagingController {
	if _, err := os.Stat(cfg.FSPath); os.IsNotExist(err) {
		os.MkdirAll(cfg.FSPath, 0755)
	}
	return &StagingController{
		StagingService: stagingService,
		UploadDir:      cfg.FSPath,
		validate:       validator.New(),
	}
}

// CreateSession stages an upload: saves the file, parses the selected sheet
// and returns the detected columns and preview rows.
func (c *StagingController) CreateSession(ctx *fiber.Ctx) error {
	programID := ctx.FormValue("program_id")
	shopID := ctx.FormValue("shop_id")
	periodDate := ctx.FormValue("period_date")
	sheetName := ctx.FormValue("sheet_name")

	if programID == "" || shopID == "" || periodDate == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "program_id, shop_id and period_date are required"})
	}

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

	session := &StagedSession{
		UserID:     userID,
		ProgramID:  programID,
		ShopID:     shopID,
		PeriodDate: periodDate,
		FileName:   originalName,
		FilePath:   dstPath,
		SheetName:  sheetName,
	}

	staged, err := c.StagingService.Stage(ctx.UserContext(), session)
	if err != nil {
		os.Remove(dstPath)
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(staged)
}

// GetSession returns a staged session.
func (c *StagingController) GetSession(ctx *fiber.Ctx) error {
	session, err := c.StagingService.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	return ctx.JSON(session)
}

// DiscardSession marks a staged session as discarded.
func (c *StagingController) DiscardSession(ctx *fiber.Ctx) error {
	if err := c.StagingService.Discard(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	return ctx.JSON(fiber.Map{"message": "Session discarded"})
}

// ListTargetFields returns the fixed target schema for a format type.
func (c *StagingController) ListTargetFields(ctx *fiber.Ctx) error {
	formatType := importjob.FormatType(ctx.Params("formatType"))

	fields := TargetFieldsFor(formatType)
	if fields == nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown format type"})
	}
	return ctx.JSON(fields)
}

// CommitSession accepts the mapping set and starts the import job.
func (c *StagingController) CommitSession(ctx *fiber.Ctx) error {
	var req CommitRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.SessionID = ctx.Params("id")

	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	userID, _ := ctx.Locals("user_id").(string)

	job, err := c.StagingService.Commit(ctx.UserContext(), &req, userID)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(job)
}
