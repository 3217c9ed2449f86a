package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"dimria/internal/errs"
	"dimria/internal/services"
	"dimria/pkg/security"
)

// AuthHandler handles login, registration and session introspection for
// the HTML flows, plus the token endpoints of the JSON API.
type AuthHandler struct {
	accounts  *services.AccountService
	store     *session.Store
	viewer    Viewer
	sanitizer *security.Sanitizer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *services.AccountService, store *session.Store, viewer Viewer, sanitizer *security.Sanitizer) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		store:     store,
		viewer:    viewer,
		sanitizer: sanitizer,
	}
}

// RegisterRoutes registers the authentication routes. rateLimit guards the
// credential-accepting endpoints.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, rateLimit fiber.Handler) {
	router.Get("/login", h.ShowLogin)
	router.Post("/login", rateLimit, h.HandleLogin)
	router.Get("/register", h.ShowRegister)
	router.Post("/register", rateLimit, h.HandleRegister)
	router.Get("/auth", h.HandleAuth)

	router.Post("/api/auth/login", rateLimit, h.APILogin)
	router.Post("/api/auth/register", rateLimit, h.APIRegister)
}

// ShowLogin renders the login form with any flashed errors and old input.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	data := fiber.Map{
		"errors":    takeFlash(sess, "login_errors"),
		"old_input": takeFlash(sess, "old_input"),
	}
	if err := sess.Save(); err != nil {
		return err
	}
	return h.viewer.Render(c, "login", data)
}

// HandleLogin verifies credentials and establishes a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	s := h.sanitizer.Bind(c.IP(), c.Get("User-Agent"))
	email := s.SanitizeEmail(c.FormValue("email"))
	password := c.FormValue("password")

	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}

	var problems []string
	if email == "" {
		problems = append(problems, "email is required")
	}
	if password == "" {
		problems = append(problems, "password is required")
	}
	if len(problems) > 0 {
		flash(sess, "login_errors", problems)
		flash(sess, "old_input", []string{email})
		if err := sess.Save(); err != nil {
			return err
		}
		return h.viewer.Redirect(c, "/login")
	}

	user, err := h.accounts.Authenticate(email, password)
	if err != nil {
		return err
	}
	if user == nil {
		log.Printf("auth: failed login attempt (email=%s ip=%s)", email, c.IP())
		flash(sess, "login_errors", []string{"invalid email or password"})
		flash(sess, "old_input", []string{email})
		if err := sess.Save(); err != nil {
			return err
		}
		return h.viewer.Redirect(c, "/login")
	}

	sess.Set("user_id", user.ID)
	sess.Set("user_email", user.Email)
	sess.Set("user_name", user.Name)
	if err := sess.Save(); err != nil {
		return err
	}

	log.Printf("auth: user logged in (id=%d email=%s)", user.ID, user.Email)
	return h.viewer.Redirect(c, "/properties")
}

// ShowRegister renders the registration form with flashed state.
func (h *AuthHandler) ShowRegister(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	data := fiber.Map{
		"errors":    takeFlash(sess, "register_errors"),
		"old_input": takeFlash(sess, "old_input"),
	}
	if err := sess.Save(); err != nil {
		return err
	}
	return h.viewer.Render(c, "register", data)
}

// HandleRegister creates an account and logs the new user in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	s := h.sanitizer.Bind(c.IP(), c.Get("User-Agent"))
	email := s.SanitizeEmail(c.FormValue("email"))
	password := s.SanitizePassword(c.FormValue("password"))
	confirm := s.SanitizePassword(c.FormValue("confirm_password"))
	name := s.SanitizeName(c.FormValue("name"))

	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}

	if password != confirm {
		flash(sess, "register_errors", []string{"passwords do not match"})
		flash(sess, "old_input", []string{email, name})
		if err := sess.Save(); err != nil {
			return err
		}
		return h.viewer.Redirect(c, "/register")
	}

	userID, err := h.accounts.Register(email, password, name)
	if err != nil {
		var message []string
		switch {
		case errors.Is(err, errs.ErrEmailTaken):
			message = []string{"email already registered"}
		case errs.IsValidation(err):
			message = errs.Problems(err)
		default:
			return err
		}
		flash(sess, "register_errors", message)
		flash(sess, "old_input", []string{email, name})
		if err := sess.Save(); err != nil {
			return err
		}
		return h.viewer.Redirect(c, "/register")
	}

	sess.Set("user_id", userID)
	sess.Set("user_email", email)
	sess.Set("user_name", name)
	if err := sess.Save(); err != nil {
		return err
	}
	return h.viewer.Redirect(c, "/properties")
}

// HandleAuth serves session introspection (?action=check) and termination
// (?action=logout). Any other action redirects to the login form.
func (h *AuthHandler) HandleAuth(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}

	switch c.Query("action") {
	case "check":
		id, ok := sess.Get("user_id").(uint)
		if !ok || id == 0 {
			return c.JSON(fiber.Map{"authenticated": false, "user": nil})
		}
		return c.JSON(fiber.Map{
			"authenticated": true,
			"user": fiber.Map{
				"id":    id,
				"email": sess.Get("user_email"),
				"name":  sess.Get("user_name"),
			},
		})
	case "logout":
		if err := sess.Destroy(); err != nil {
			return err
		}
		return h.viewer.Redirect(c, "/login")
	default:
		return h.viewer.Redirect(c, "/login")
	}
}

// APILogin verifies credentials and issues a bearer token for the JSON
// API mirror.
func (h *AuthHandler) APILogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	user, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		return err
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "invalid credentials",
		})
	}

	token, err := h.accounts.TokenFor(user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"token": token, "user": user},
	})
}

// APIRegister creates an account over the JSON API and returns a token.
func (h *AuthHandler) APIRegister(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	userID, err := h.accounts.Register(req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, errs.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "email already registered",
			})
		}
		return err
	}

	user, err := h.accounts.GetByID(userID)
	if err != nil {
		return err
	}
	token, err := h.accounts.TokenFor(user)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"token": token, "user": user},
		"message": "user registered successfully",
	})
}

// flash stores one-shot values read back by the next form render. Values
// are joined into a single string so the session codec only ever sees
// basic types.
func flash(sess *session.Session, key string, values []string) {
	sess.Set(key, strings.Join(values, "\n"))
}

// takeFlash reads and clears a flashed value.
func takeFlash(sess *session.Session, key string) []string {
	joined, _ := sess.Get(key).(string)
	sess.Delete(key)
	if joined == "" {
		return nil
	}
	return strings.Split(joined, "\n")
}
