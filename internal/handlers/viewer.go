package handlers

import "github.com/gofiber/fiber/v2"

// Viewer is the seam to the template-rendering collaborator. Handlers
// produce a render instruction (view name plus a key-value map) or a
// redirect; turning that into HTML is not this core's concern.
type Viewer interface {
	Render(c *fiber.Ctx, view string, data fiber.Map) error
	Redirect(c *fiber.Ctx, location string) error
}

// PassthroughViewer emits the render instruction as JSON. The production
// deployment swaps in a template-backed implementation.
type PassthroughViewer struct{}

func (PassthroughViewer) Render(c *fiber.Ctx, view string, data fiber.Map) error {
	return c.JSON(fiber.Map{
		"view": view,
		"data": data,
	})
}

func (PassthroughViewer) Redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}
