package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"dimria/internal/errs"
	"dimria/internal/repositories"
	"dimria/internal/services"
	"dimria/pkg/security"
)

// PropertyHandler drives the HTML flows: listing, search, create/edit
// forms and their submissions. Authentication comes from the session;
// ownership is enforced by the service.
type PropertyHandler struct {
	properties *services.PropertyService
	store      *session.Store
	viewer     Viewer
	sanitizer  *security.Sanitizer
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(properties *services.PropertyService, store *session.Store, viewer Viewer, sanitizer *security.Sanitizer) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		store:      store,
		viewer:     viewer,
		sanitizer:  sanitizer,
	}
}

// RegisterRoutes registers the HTML property routes. Static segments are
// registered before the numeric-capture patterns; matching is first
// registered, first matched.
func (h *PropertyHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/properties")
	g.Get("/", h.Index)
	g.Post("/", h.Store)
	g.Get("/create", h.CreateForm)
	g.Get("/my", h.My)
	g.Get("/search", h.Search)
	g.Get("/:id<int>", h.Show)
	g.Post("/:id<int>", h.Update)
	g.Get("/:id<int>/edit", h.EditForm)
	g.Post("/:id<int>/edit", h.Update)
	g.Get("/:id<int>/delete", h.Delete)
	g.Post("/:id<int>/delete", h.Delete)
}

// Index renders the filtered listing overview.
func (h *PropertyHandler) Index(c *fiber.Ctx) error {
	filters := filtersFromQuery(c)
	properties, err := h.properties.List(filters, 0, 0)
	if err != nil {
		return err
	}
	return h.viewer.Render(c, "properties/index", fiber.Map{
		"properties": properties,
		"filters":    filters,
	})
}

// Show renders a single listing.
func (h *PropertyHandler) Show(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}
	property, err := h.properties.Get(uint(id))
	if err != nil {
		if errs.IsNotFound(err) {
			c.Status(fiber.StatusNotFound)
			return h.viewer.Render(c, "error", fiber.Map{"message": "property not found"})
		}
		return err
	}
	return h.viewer.Render(c, "properties/show", fiber.Map{"property": property})
}

// CreateForm renders the create form, flashing back previous errors.
func (h *PropertyHandler) CreateForm(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	if _, ok := currentUser(sess); !ok {
		return h.viewer.Redirect(c, "/login")
	}
	data := fiber.Map{
		"errors": takeFlash(sess, "property_errors"),
	}
	if err := sess.Save(); err != nil {
		return err
	}
	return h.viewer.Render(c, "properties/create", data)
}

// Store handles the create-form submission.
func (h *PropertyHandler) Store(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	userID, ok := currentUser(sess)
	if !ok {
		return h.viewer.Redirect(c, "/login")
	}

	input := h.createInputFromForm(c)
	property, err := h.properties.Create(input, userID)
	if err != nil {
		if errs.IsValidation(err) {
			flash(sess, "property_errors", errs.Problems(err))
			if err := sess.Save(); err != nil {
				return err
			}
			return h.viewer.Redirect(c, "/properties/create")
		}
		return err
	}

	return h.viewer.Redirect(c, fmt.Sprintf("/properties/%d", property.ID))
}

// EditForm renders the edit form for a listing the user owns.
func (h *PropertyHandler) EditForm(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	userID, ok := currentUser(sess)
	if !ok {
		return h.viewer.Redirect(c, "/login")
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}
	property, err := h.properties.Get(uint(id))
	if err != nil {
		if errs.IsNotFound(err) {
			c.Status(fiber.StatusNotFound)
			return h.viewer.Render(c, "error", fiber.Map{"message": "property not found"})
		}
		return err
	}
	if !property.OwnedBy(userID) {
		c.Status(fiber.StatusForbidden)
		return h.viewer.Render(c, "error", fiber.Map{"message": "access denied"})
	}

	data := fiber.Map{
		"property": property,
		"errors":   takeFlash(sess, "property_errors"),
	}
	if err := sess.Save(); err != nil {
		return err
	}
	return h.viewer.Render(c, "properties/edit", data)
}

// Update handles the edit-form submission.
func (h *PropertyHandler) Update(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	userID, ok := currentUser(sess)
	if !ok {
		return h.viewer.Redirect(c, "/login")
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}

	input := h.updateInputFromForm(c)
	property, err := h.properties.Update(uint(id), input, userID)
	if err != nil {
		switch {
		case errs.IsValidation(err):
			flash(sess, "property_errors", errs.Problems(err))
			if err := sess.Save(); err != nil {
				return err
			}
			return h.viewer.Redirect(c, fmt.Sprintf("/properties/%d/edit", id))
		case errs.IsNotFound(err):
			c.Status(fiber.StatusNotFound)
			return h.viewer.Render(c, "error", fiber.Map{"message": "property not found"})
		case errs.IsAuthorization(err):
			c.Status(fiber.StatusForbidden)
			return h.viewer.Render(c, "error", fiber.Map{"message": "access denied"})
		}
		return err
	}

	return h.viewer.Redirect(c, fmt.Sprintf("/properties/%d", property.ID))
}

// Delete removes a listing the user owns.
func (h *PropertyHandler) Delete(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	userID, ok := currentUser(sess)
	if !ok {
		return h.viewer.Redirect(c, "/login")
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.ErrNotFound
	}

	if _, err := h.properties.Delete(uint(id), userID); err != nil {
		switch {
		case errs.IsNotFound(err):
			c.Status(fiber.StatusNotFound)
			return h.viewer.Render(c, "error", fiber.Map{"message": "property not found"})
		case errs.IsAuthorization(err):
			c.Status(fiber.StatusForbidden)
			return h.viewer.Render(c, "error", fiber.Map{"message": "access denied"})
		}
		return err
	}

	return h.viewer.Redirect(c, "/properties")
}

// Search renders substring-search results. An empty query goes back to
// the listing overview.
func (h *PropertyHandler) Search(c *fiber.Ctx) error {
	s := h.sanitizer.Bind(c.IP(), c.Get("User-Agent"))
	query := s.Sanitize(c.Query("q"), "search_query")
	if query == "" {
		return h.viewer.Redirect(c, "/properties")
	}

	properties, err := h.properties.Search(query, filtersFromQuery(c))
	if err != nil {
		return err
	}
	return h.viewer.Render(c, "properties/search", fiber.Map{
		"properties": properties,
		"query":      query,
	})
}

// My renders the user's own listings plus a handful of recommendations.
func (h *PropertyHandler) My(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	userID, ok := currentUser(sess)
	if !ok {
		return h.viewer.Redirect(c, "/login")
	}

	properties, err := h.properties.ListByOwner(userID)
	if err != nil {
		return err
	}
	return h.viewer.Render(c, "properties/my", fiber.Map{
		"properties":  properties,
		"recommended": h.properties.Recommend(userID, 0),
	})
}

func (h *PropertyHandler) createInputFromForm(c *fiber.Ctx) services.CreatePropertyInput {
	s := h.sanitizer.Bind(c.IP(), c.Get("User-Agent"))
	return services.CreatePropertyInput{
		Title:       s.Sanitize(c.FormValue("title"), "property_title"),
		Description: s.Sanitize(c.FormValue("description"), "property_description"),
		Address:     s.Sanitize(c.FormValue("address"), "property_address"),
		Price:       parseFloat(c.FormValue("price")),
		Rooms:       parseInt(c.FormValue("rooms")),
		Area:        parseFloat(c.FormValue("area")),
		Type:        s.Sanitize(c.FormValue("type"), "property_type"),
		Status:      s.Sanitize(c.FormValue("status"), "property_status"),
	}
}

func (h *PropertyHandler) updateInputFromForm(c *fiber.Ctx) services.UpdatePropertyInput {
	s := h.sanitizer.Bind(c.IP(), c.Get("User-Agent"))
	input := services.UpdatePropertyInput{}
	if v := c.FormValue("title"); v != "" {
		clean := s.Sanitize(v, "property_title")
		input.Title = &clean
	}
	if v := c.FormValue("description"); v != "" {
		clean := s.Sanitize(v, "property_description")
		input.Description = &clean
	}
	if v := c.FormValue("address"); v != "" {
		clean := s.Sanitize(v, "property_address")
		input.Address = &clean
	}
	if v := c.FormValue("price"); v != "" {
		price := parseFloat(v)
		input.Price = &price
	}
	if v := c.FormValue("rooms"); v != "" {
		rooms := parseInt(v)
		input.Rooms = &rooms
	}
	if v := c.FormValue("area"); v != "" {
		area := parseFloat(v)
		input.Area = &area
	}
	if v := c.FormValue("type"); v != "" {
		clean := s.Sanitize(v, "property_type")
		input.Type = &clean
	}
	if v := c.FormValue("status"); v != "" {
		clean := s.Sanitize(v, "property_status")
		input.Status = &clean
	}
	return input
}

// filtersFromQuery builds the sparse filter set from query parameters.
// Absent or malformed values stay at their zero value, which the
// repository treats as "not provided".
func filtersFromQuery(c *fiber.Ctx) repositories.Filters {
	return repositories.Filters{
		Type:     c.Query("type"),
		Status:   c.Query("status"),
		MinPrice: parseFloat(c.Query("min_price")),
		MaxPrice: parseFloat(c.Query("max_price")),
		MinRooms: parseInt(c.Query("rooms")),
	}
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return i
}

// currentUser extracts the authenticated user id from the session.
func currentUser(sess *session.Session) (uint, bool) {
	id, ok := sess.Get("user_id").(uint)
	return id, ok && id > 0
}
