package importjob

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type ImportJobController struct {
	ImportJobService ImportJobService
}

func NewImportJobController(importJobService ImportJobService) *ImportJobController {
	return &ImportJobController{
		ImportJobService: importJobService,
	}
}

// GetJob returns the current state of an import job. This is the poll target;
// clients call it every couple of seconds until the status is terminal.
func (c *ImportJobController) GetJob(ctx *fiber.Ctx) error {
	jobNumber, err := strconv.Atoi(ctx.Params("jobNumber"))
	if err != nil || jobNumber <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job number"})
	}

	job, err := c.ImportJobService.GetJob(ctx.UserContext(), jobNumber)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}

	return ctx.JSON(job)
}

// GetJobErrors returns the per-row rejection list for a job.
func (c *ImportJobController) GetJobErrors(ctx *fiber.Ctx) error {
	jobNumber, err := strconv.Atoi(ctx.Params("jobNumber"))
	if err != nil || jobNumber <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid job number"})
	}

	errs, err := c.ImportJobService.ListErrors(ctx.UserContext(), jobNumber)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if errs == nil {
		errs = []ImportError{}
	}

	return ctx.JSON(errs)
}

// ListJobs returns recent import jobs.
func (c *ImportJobController) ListJobs(ctx *fiber.Ctx) error {
	jobs, err := c.ImportJobService.ListRecentJobs(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if jobs == nil {
		jobs = []ImportJob{}
	}

	return ctx.JSON(jobs)
}
