package handler

import (
	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordResetRequest represents the forgot password request body
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Email and password are required"})
	}

	response, err := h.authService.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(response)
}

// SignUp registers a new account. New accounts always start as cashier.
// POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req service.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	user, err := h.authService.SignUp(c.UserContext(), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Account created", "data": user})
}

// Logout ends every session of the caller.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.SignOut(c.UserContext(), currentSession(c)); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Signed out"})
}

// ForgotPassword starts a password reset. The answer is the same whether or not
// the account exists.
// POST /api/v1/auth/password-reset/request
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if req.Email == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Email is required"})
	}

	if _, err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "If the account exists, reset instructions have been sent"})
}

// ResetPassword completes a password reset with the emailed token
// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req service.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if err := h.authService.ConfirmPasswordReset(c.UserContext(), &req); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// ChangePassword handles password change for the signed in user
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req service.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if err := h.authService.ChangePassword(c.UserContext(), currentSession(c), &req); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully, please sign in again"})
}

func (h *AuthHandler) Heartbeat(c *fiber.Ctx) error {
	if err := h.authService.Heartbeat(c.UserContext(), currentSession(c)); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Heartbeat received", "status": "online"})
}

// ValidateTokenRequest represents the validate token request body
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken handles JWT token validation
// POST /api/v1/auth/validate-token
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req ValidateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	if req.Token == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Token is required"})
	}

	sess, err := h.authService.ValidateToken(c.UserContext(), req.Token)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"valid": true, "session": sess})
}

// Session returns the caller's role, privileges and screens.
// GET /api/v1/auth/session
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	return c.JSON(currentSession(c))
}
