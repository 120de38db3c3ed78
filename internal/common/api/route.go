package api

import "github.com/gofiber/fiber/v2"

// Route is implemented by every feature API so Fx can collect them
// into a single group and register them against the app.
type Route interface {
	Setup(app *fiber.App)
}
