package handlers

import (
	"github.com/gofiber/fiber/v2"

	"dimria/internal/middleware"
	"dimria/internal/services"
	"dimria/pkg/security"
)

// PropertyAPIHandler is the JSON mirror of the property flows. Every
// response uses the {success, data?, error?, message?} envelope; write
// operations require a bearer token. Untrusted payload strings are run
// through a sanitizer bound to the caller's network origin before they
// reach the service, so audit events from API rejections carry the real
// ip and user agent.
type PropertyAPIHandler struct {
	properties *services.PropertyService
	sanitizer  *security.Sanitizer
}

// NewPropertyAPIHandler creates a new PropertyAPIHandler.
func NewPropertyAPIHandler(properties *services.PropertyService, sanitizer *security.Sanitizer) *PropertyAPIHandler {
	return &PropertyAPIHandler{
		properties: properties,
		sanitizer:  sanitizer,
	}
}

// RegisterRoutes registers the API routes. authRequired guards the write
// operations and the personalized recommendations.
func (h *PropertyAPIHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	api := router.Group("/api/properties")
	api.Get("/", h.Index)
	api.Get("/search", h.Search)
	api.Get("/statistics", h.Statistics)
	api.Get("/report", h.Report)
	api.Get("/recommendations", authRequired, h.Recommendations)
	api.Get("/:id<int>", h.Show)
	api.Post("/", authRequired, h.Create)
	api.Put("/:id<int>", authRequired, h.Update)
	api.Delete("/:id<int>", authRequired, h.Delete)
}

// Index lists properties with filters and pagination, bundling the
// statistics aggregate the way the admin dashboard consumes it.
func (h *PropertyAPIHandler) Index(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	properties, err := h.properties.List(filtersFromQuery(c), limit, offset)
	if err != nil {
		return err
	}
	stats, err := h.properties.Statistics()
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"properties": properties,
			"statistics": stats,
			"pagination": fiber.Map{
				"limit":  limit,
				"offset": offset,
				"total":  stats.Total,
			},
		},
	})
}

// Show returns a single property.
func (h *PropertyAPIHandler) Show(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}
	property, err := h.properties.Get(uint(id))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": property})
}

// Create inserts a new property owned by the token's user.
func (h *PropertyAPIHandler) Create(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	var input services.CreatePropertyInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}
	h.sanitizeCreateInput(c, &input)

	property, err := h.properties.Create(input, userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    property,
		"message": "property created successfully",
	})
}

// Update applies a partial payload to a property the user owns.
func (h *PropertyAPIHandler) Update(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}

	var input services.UpdatePropertyInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}
	h.sanitizeUpdateInput(c, &input)

	property, err := h.properties.Update(uint(id), input, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    property,
		"message": "property updated successfully",
	})
}

// Delete removes a property the user owns.
func (h *PropertyAPIHandler) Delete(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}

	if _, err := h.properties.Delete(uint(id), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "property deleted successfully",
	})
}

// Search returns substring-search results. The query is required.
func (h *PropertyAPIHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "search query is required",
		})
	}
	query = h.bound(c).Sanitize(query, "search_query")

	results, err := h.properties.Search(query, filtersFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"query":   query,
			"results": results,
			"count":   len(results),
		},
	})
}

// Statistics returns the full statistics aggregate.
func (h *PropertyAPIHandler) Statistics(c *fiber.Ctx) error {
	stats, err := h.properties.Statistics()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// Report streams the property report in the requested encoding.
func (h *PropertyAPIHandler) Report(c *fiber.Ctx) error {
	format := c.Query("format", "json")
	switch format {
	case "json":
		report, err := h.properties.GenerateReport("json")
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(report)
	case "csv":
		report, err := h.properties.GenerateReport("csv")
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="properties_report.csv"`)
		return c.SendString(report)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "unsupported format",
		})
	}
}

// Recommendations returns listings for the token's user. The underlying
// query is fail-soft, so this never errors on persistence trouble.
func (h *PropertyAPIHandler) Recommendations(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	limit := c.QueryInt("limit", 0)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.properties.Recommend(userID, limit),
	})
}

// bound attaches the request's network origin to the sanitizer.
func (h *PropertyAPIHandler) bound(c *fiber.Ctx) *security.Sanitizer {
	return h.sanitizer.Bind(c.IP(), c.Get("User-Agent"))
}

// sanitizeCreateInput cleans the payload's string fields in place. The
// service sanitizes again, but by then the values are already clean, so
// any rejection fires exactly once, here, with the caller's origin.
func (h *PropertyAPIHandler) sanitizeCreateInput(c *fiber.Ctx, input *services.CreatePropertyInput) {
	s := h.bound(c)
	input.Title = s.Sanitize(input.Title, "property_title")
	input.Description = s.Sanitize(input.Description, "property_description")
	input.Address = s.Sanitize(input.Address, "property_address")
	input.Type = s.Sanitize(input.Type, "property_type")
	input.Status = s.Sanitize(input.Status, "property_status")
}

// sanitizeUpdateInput cleans the supplied string fields of a partial
// payload; nil fields stay nil.
func (h *PropertyAPIHandler) sanitizeUpdateInput(c *fiber.Ctx, input *services.UpdatePropertyInput) {
	s := h.bound(c)
	if input.Title != nil {
		clean := s.Sanitize(*input.Title, "property_title")
		input.Title = &clean
	}
	if input.Description != nil {
		clean := s.Sanitize(*input.Description, "property_description")
		input.Description = &clean
	}
	if input.Address != nil {
		clean := s.Sanitize(*input.Address, "property_address")
		input.Address = &clean
	}
	if input.Type != nil {
		clean := s.Sanitize(*input.Type, "property_type")
		input.Type = &clean
	}
	if input.Status != nil {
		clean := s.Sanitize(*input.Status, "property_status")
		input.Status = &clean
	}
}
