package notification

import (
	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	service NotificationService
}

func NewNotificationController(service NotificationService) *NotificationController {
	return &NotificationController{
		service: service,
	}
}

func (c *NotificationController) List(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals("user_id").(string)

	notifications, err := c.service.GetUserNotifications(ctx.UserContext(), userID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if notifications == nil {
		notifications = []Notification{}
	}

	return ctx.JSON(notifications)
}

func (c *NotificationController) GetUnreadCount(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals("user_id").(string)

	count, err := c.service.GetUnreadCount(ctx.UserContext(), userID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"count": count})
}

func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals("user_id").(string)

	if err := c.service.MarkAsRead(ctx.UserContext(), ctx.Params("id"), userID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "success"})
}

func (c *NotificationController) Create(ctx *fiber.Ctx) error {
	userID, _ := ctx.Locals("user_id").(string)

	var body struct {
		Level     NotificationLevel `json:"level"`
		Message   string            `json:"message"`
		JobNumber int               `json:"job_number"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if body.Message == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}
	if body.Level == "" {
		body.Level = LevelInfo
	}

	if err := c.service.Notify(ctx.UserContext(), userID, body.Level, body.Message, body.JobNumber); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "created"})
}
